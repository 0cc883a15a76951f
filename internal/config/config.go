package config

import "time"

// Config is the job set document.
type Config struct {
	Name      string       `mapstructure:"name"`
	Host      string       `mapstructure:"host"`
	Pass      string       `mapstructure:"pass"`
	PassVault *VaultSecret `mapstructure:"pass_vault"`

	// Engine is the backup engine executable. Empty means duplicity.
	Engine string `mapstructure:"engine"`
	// Timeout bounds every engine run. Zero means no bound.
	Timeout time.Duration `mapstructure:"timeout"`

	Vault     VaultConfig  `mapstructure:"vault"`
	Jobs      []JobConfig  `mapstructure:"jobs"`
	SFTPSinks []SinkConfig `mapstructure:"sftp_sinks"`
}

// VaultConfig holds connection settings for HashiCorp Vault.
type VaultConfig struct {
	Address  string `mapstructure:"address"`
	Token    string `mapstructure:"token"`
	RoleID   string `mapstructure:"role_id"`
	RoleName string `mapstructure:"role_name"`
}

// VaultSecret points at one field of a Vault secret.
type VaultSecret struct {
	Path  string `mapstructure:"path"`
	Field string `mapstructure:"field"`
}

// JobConfig describes one source path. Empty Pass and Sinks fall back to
// the set defaults.
type JobConfig struct {
	Name        string       `mapstructure:"name"`
	Path        string       `mapstructure:"path"`
	Exclude     []string     `mapstructure:"exclude"`
	MonthlyFull *bool        `mapstructure:"monthly_full"`
	Pass        string       `mapstructure:"pass"`
	PassVault   *VaultSecret `mapstructure:"pass_vault"`
	// Sinks names a subset of the set's sinks.
	Sinks []string `mapstructure:"sinks"`
}

// SinkConfig describes one SFTP sink.
type SinkConfig struct {
	Name       string `mapstructure:"name"`
	Hostname   string `mapstructure:"hostname"`
	Username   string `mapstructure:"username"`
	Directory  string `mapstructure:"directory"`
	Port       int    `mapstructure:"port"`
	Keyfile    string `mapstructure:"keyfile"`
	Protocol   string `mapstructure:"protocol"`
	KnownHosts string `mapstructure:"known_hosts"`
}

// DisplayName is the sink's name, or its hostname when unnamed.
func (s SinkConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Hostname
}

// ResolvedJob is a job with every default applied.
type ResolvedJob struct {
	Name        string
	Path        string
	Host        string
	Pass        string
	PassVault   *VaultSecret
	Exclude     []string
	MonthlyFull bool
	Sinks       []SinkConfig
}

// ResolveJob merges j with the set defaults: the job's value if set, else
// the set's, else nothing.
func (c Config) ResolveJob(j JobConfig) ResolvedJob {
	r := ResolvedJob{
		Name:        j.Name,
		Path:        j.Path,
		Host:        c.Host,
		Exclude:     j.Exclude,
		MonthlyFull: true,
	}
	if j.MonthlyFull != nil {
		r.MonthlyFull = *j.MonthlyFull
	}

	switch {
	case j.Pass != "" || j.PassVault != nil:
		r.Pass, r.PassVault = j.Pass, j.PassVault
	default:
		r.Pass, r.PassVault = c.Pass, c.PassVault
	}
	if r.Pass != "" {
		r.PassVault = nil
	}

	if len(j.Sinks) == 0 {
		r.Sinks = c.SFTPSinks
		return r
	}
	for _, name := range j.Sinks {
		if s, ok := c.sinkByName(name); ok {
			r.Sinks = append(r.Sinks, s)
		}
	}
	return r
}

// UsesVault reports whether any passphrase is read from Vault.
func (c Config) UsesVault() bool {
	for _, j := range c.Jobs {
		if c.ResolveJob(j).PassVault != nil {
			return true
		}
	}
	return false
}

func (c Config) sinkByName(name string) (SinkConfig, bool) {
	for _, s := range c.SFTPSinks {
		if s.DisplayName() == name {
			return s, true
		}
	}
	return SinkConfig{}, false
}
