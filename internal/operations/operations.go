package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kebairia/dupback/internal/config"
	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
	"github.com/kebairia/dupback/internal/vault"
)

// ErrInitialize indicates the job set could not be built. Nothing has run
// when it is returned.
var ErrInitialize = errors.New("job set initialization failed")

// SecretSource looks up a passphrase stored outside the configuration.
type SecretSource interface {
	GetSecretField(ctx context.Context, path, field string) (string, error)
}

// RunOptions selects what one run does.
type RunOptions struct {
	// Verify runs a verify pass after the backup pass.
	Verify bool
	// CheckSinks probes every sink before anything runs.
	CheckSinks bool
	// ReportDir, when set, receives a run record.
	ReportDir string
}

// ManagerOption lets you override default settings on an OperationManager.
type ManagerOption func(*OperationManager)

// OperationManager builds the job set from the configuration and runs it.
type OperationManager struct {
	cfg     config.Config
	secrets SecretSource
	runner  engine.Runner
	log     logger.Logger
}

// WithManagerRunner overrides how the engine is run.
func WithManagerRunner(r engine.Runner) ManagerOption {
	return func(om *OperationManager) {
		om.runner = r
	}
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(log logger.Logger) ManagerOption {
	return func(om *OperationManager) {
		om.log = log
	}
}

// WithSecretSource overrides where Vault passphrases are read from.
func WithSecretSource(src SecretSource) ManagerOption {
	return func(om *OperationManager) {
		om.secrets = src
	}
}

// NewOperationManager prepares runs of cfg. A Vault client is only created
// when some job reads its passphrase from Vault.
func NewOperationManager(ctx context.Context, cfg config.Config, opts ...ManagerOption) (*OperationManager, error) {
	om := &OperationManager{cfg: cfg, log: logger.Global()}
	for _, opt := range opts {
		opt(om)
	}

	if om.runner == nil {
		om.runner = engine.NewExecRunner(
			engine.WithBinary(cfg.Engine),
			engine.WithTimeout(cfg.Timeout),
		)
	}

	if om.secrets == nil && cfg.UsesVault() {
		vaultClient, err := vault.NewClient(ctx,
			vault.WithAddress(cfg.Vault.Address),
			vault.WithToken(cfg.Vault.Token),
			vault.WithAppRole(cfg.Vault.RoleID, cfg.Vault.RoleName),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: vault client init: %w", ErrInitialize, err)
		}
		om.secrets = vaultClient
	}

	return om, nil
}

// InitializeSinks builds every configured sink, keyed by display name.
func (om *OperationManager) InitializeSinks() (map[string]sink.Sink, error) {
	sinks := make(map[string]sink.Sink, len(om.cfg.SFTPSinks))
	for _, sc := range om.cfg.SFTPSinks {
		s, err := newSFTPSink(sc)
		if err != nil {
			return nil, fmt.Errorf("%w: sink %q: %w", ErrInitialize, sc.DisplayName(), err)
		}
		sinks[sc.DisplayName()] = s
	}
	return sinks, nil
}

// InitializeJobSet builds the job set, resolving passphrases. Every outcome
// of the set's jobs is passed to rec.
func (om *OperationManager) InitializeJobSet(ctx context.Context, log logger.Logger, rec Recorder) (*JobSet, error) {
	sinks, err := om.InitializeSinks()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(om.cfg.Jobs))
	for _, jc := range om.cfg.Jobs {
		r := om.cfg.ResolveJob(jc)

		pass, err := om.passphrase(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("%w: job %q: %w", ErrInitialize, r.Name, err)
		}

		jobSinks := make([]sink.Sink, 0, len(r.Sinks))
		for _, sc := range r.Sinks {
			jobSinks = append(jobSinks, sinks[sc.DisplayName()])
		}
		if len(jobSinks) == 0 {
			log.Warn(fmt.Sprintf("Job %s has no sinks.", r.Name), "job", r.Name)
		}

		jobs = append(jobs, NewJob(r.Name, r.Path, r.Host, pass, jobSinks,
			WithExclude(r.Exclude),
			WithMonthlyFull(r.MonthlyFull),
			WithRunner(om.runner),
			WithLogger(log),
			WithRecorder(rec),
		))
	}
	if len(jobs) == 0 {
		log.Warn(fmt.Sprintf("Backup set %s has no jobs.", om.cfg.Name), "set", om.cfg.Name)
	}

	return NewJobSet(om.cfg.Name, om.cfg.Host, jobs, log), nil
}

// CheckSinks probes every sink and returns Yes if any is unreachable.
func (om *OperationManager) CheckSinks(ctx context.Context, log logger.Logger) (outcome.Flags, error) {
	sinks, err := om.InitializeSinks()
	if err != nil {
		return outcome.OK, err
	}

	var flags outcome.Flags
	for _, sc := range om.cfg.SFTPSinks {
		name := sc.DisplayName()
		if err := sinks[name].Probe(ctx); err != nil {
			log.Error(fmt.Sprintf("Sink %s is not reachable.", name), "sink", name, "error", err.Error())
			flags = flags.Combine(outcome.Yes)
			continue
		}
		log.Info(fmt.Sprintf("Sink %s is reachable.", name), "sink", name)
	}
	return flags, nil
}

// RunAll runs the backup pass and, if asked, the verify pass of the whole
// set. The returned error is set only when nothing could be run.
func (om *OperationManager) RunAll(ctx context.Context, opts RunOptions) (outcome.Flags, error) {
	runID := uuid.NewString()
	log := om.log.With("run_id", runID)
	record := NewRunRecord(runID, om.cfg.Name, om.cfg.Host)

	set, err := om.InitializeJobSet(ctx, log, record)
	if err != nil {
		return outcome.OK, err
	}

	var flags outcome.Flags
	if opts.CheckSinks {
		probeFlags, err := om.CheckSinks(ctx, log)
		if err != nil {
			return outcome.OK, err
		}
		flags = flags.Combine(probeFlags)
	}

	flags = flags.Combine(set.Run(ctx))
	if opts.Verify {
		flags = flags.Combine(set.Verify(ctx))
	}

	record.Complete(flags)
	if opts.ReportDir != "" {
		path, err := record.Write(opts.ReportDir)
		if err != nil {
			log.Error("Could not write run record.", "error", err.Error())
		} else {
			log.Debug("run record written", "path", path)
		}
	}
	return flags, nil
}

func (om *OperationManager) passphrase(ctx context.Context, r config.ResolvedJob) (string, error) {
	if r.PassVault == nil {
		return r.Pass, nil
	}
	if om.secrets == nil {
		return "", errors.New("passphrase is stored in vault but no vault client is configured")
	}
	pass, err := om.secrets.GetSecretField(ctx, r.PassVault.Path, r.PassVault.Field)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}

func newSFTPSink(sc config.SinkConfig) (*sink.SFTP, error) {
	return sink.NewSFTP(sc.Hostname, sc.Username, sc.Port, sc.Keyfile,
		sink.WithSFTPName(sc.Name),
		sink.WithSFTPDirectory(sc.Directory),
		sink.WithSFTPProtocol(sc.Protocol),
		sink.WithSFTPKnownHosts(sc.KnownHosts),
	)
}
