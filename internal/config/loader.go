package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// EnvPrefix prefixes environment overrides, e.g. DUPBACK_PASS.
const EnvPrefix = "DUPBACK"

// Load reads the JSON configuration at path, applies defaults and
// validates it.
func (c *Config) Load(path string) error {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
	}
	return c.decode(v)
}

// LoadReader is Load for a document read from r, typically stdin.
func (c *Config) LoadReader(r io.Reader) error {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return fmt.Errorf("%w: read config: %v", ErrLoadConfig, err)
	}
	return c.decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	// Lets the default secret stay out of the document.
	_ = v.BindEnv("pass")
	return v
}

func (c *Config) decode(v *viper.Viper) error {
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}
	if c.Host == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("%w: no host given and hostname unknown: %v", ErrLoadConfig, err)
		}
		c.Host = host
	}
	return c.Validate()
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Name == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	switch {
	case c.Timeout < 0:
		result = multierror.Append(result, fmt.Errorf("timeout %s is negative", c.Timeout))
	case c.Timeout > 0 && c.Timeout < time.Second:
		// A bare number decodes as nanoseconds.
		result = multierror.Append(result, fmt.Errorf("timeout %s is under a second (use a duration such as \"6h\")", c.Timeout))
	}
	if err := validateVaultSecret("pass_vault", c.PassVault); err != nil {
		result = multierror.Append(result, err)
	}

	sinks := make(map[string]bool, len(c.SFTPSinks))
	for i, s := range c.SFTPSinks {
		field := fmt.Sprintf("sftp_sinks[%d]", i)
		if s.Hostname == "" {
			result = multierror.Append(result, fmt.Errorf("%s: hostname is required", field))
		}
		if s.Username == "" {
			result = multierror.Append(result, fmt.Errorf("%s: username is required", field))
		}
		if s.Directory == "" {
			result = multierror.Append(result, fmt.Errorf("%s: directory is required", field))
		}
		if s.Keyfile == "" {
			result = multierror.Append(result, fmt.Errorf("%s: keyfile is required", field))
		}
		if s.Port <= 0 || s.Port > 65535 {
			result = multierror.Append(result, fmt.Errorf("%s: port %d out of range", field, s.Port))
		}
		name := s.DisplayName()
		if sinks[name] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate sink name %q", field, name))
		}
		sinks[name] = true
	}

	jobs := make(map[string]bool, len(c.Jobs))
	for i, j := range c.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if j.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", field))
		} else if jobs[j.Name] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate job name %q", field, j.Name))
		}
		jobs[j.Name] = true
		if j.Path == "" {
			result = multierror.Append(result, fmt.Errorf("%s: path is required", field))
		}
		if err := validateVaultSecret(field+".pass_vault", j.PassVault); err != nil {
			result = multierror.Append(result, err)
		}
		if r := c.ResolveJob(j); r.Pass == "" && r.PassVault == nil {
			result = multierror.Append(result, fmt.Errorf("%s: no passphrase (set pass, pass_vault or a default)", field))
		}
		for _, name := range j.Sinks {
			if !sinks[name] {
				result = multierror.Append(result, fmt.Errorf("%s: unknown sink %q", field, name))
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidateConfig, err)
	}
	return nil
}

func validateVaultSecret(field string, s *VaultSecret) error {
	if s == nil {
		return nil
	}
	if s.Path == "" || s.Field == "" {
		return fmt.Errorf("%s: path and field are required", field)
	}
	return nil
}
