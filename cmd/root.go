package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kebairia/dupback/internal/config"
	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/operations"
)

// ExitSetupFailure is returned when nothing could run: bad arguments, a
// malformed configuration or a missing keyfile. It is outside the range of
// error flag values.
const ExitSetupFailure = 4

type rootOptions struct {
	verify     bool
	checkSinks bool
	reportDir  string
	schedule   string
	syslog     bool
	debug      bool
}

var (
	opts     rootOptions
	exitCode int

	// rootCmd is the base command for dupback.
	rootCmd = &cobra.Command{
		Use:   "dupback [flags] [backup_spec_file]",
		Short: "Run and verify duplicity backups to SFTP sinks",
		Long: `dupback backs up every job of a backup set to its SFTP sinks with
duplicity, optionally verifies them, and logs the classified outcome.

The backup set is read as JSON from backup_spec_file, or from standard input
when no file (or "-") is given. The exit code is the union of the error
flags: 0 ok, 1 unrecognized output, 2 or 3 error.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return ExitSetupFailure
	}
	return exitCode
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVarP(&opts.verify, "verify", "v", true, "verify the backup after running it")
	noVerify := flags.VarPF(negatedBool{&opts.verify}, "no-verify", "n", "do not verify the backup")
	noVerify.NoOptDefVal = "true"
	flags.BoolVar(&opts.checkSinks, "check-sinks", false, "log in to every sink over SFTP before running")
	flags.StringVar(&opts.reportDir, "report-dir", "", "write a compressed JSON run record to this directory")
	flags.StringVar(&opts.schedule, "schedule", "", "run on this cron schedule until interrupted")
	flags.BoolVar(&opts.syslog, "syslog", false, "also send events to the local syslog daemon")
	flags.BoolVar(&opts.debug, "debug", false, "log debug events")
}

// negatedBool is a boolean flag that stores the inverse of its value in
// target, so --verify and --no-verify share one setting and the last one
// given wins.
type negatedBool struct {
	target *bool
}

func (b negatedBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.target = !v
	return nil
}

func (b negatedBool) String() string {
	if b.target == nil {
		return "false"
	}
	return strconv.FormatBool(!*b.target)
}

func (b negatedBool) Type() string { return "bool" }

func (b negatedBool) IsBoolFlag() bool { return true }

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	log, err := logger.Init(logger.Options{
		Debug:  opts.debug,
		Syslog: opts.syslog,
		Tag:    cmd.Root().Name(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	om, err := operations.NewOperationManager(ctx, cfg, operations.WithManagerLogger(log))
	if err != nil {
		log.Error("Could not prepare backup set.", "error", err.Error())
		return err
	}

	runOpts := operations.RunOptions{
		Verify:     opts.verify,
		CheckSinks: opts.checkSinks,
		ReportDir:  opts.reportDir,
	}

	if opts.schedule != "" {
		err = runScheduled(ctx, om, runOpts, opts.schedule, log)
	} else {
		err = runOnce(ctx, om, runOpts)
	}
	if err != nil {
		log.Error("Could not run backup set.", "error", err.Error())
		return err
	}

	log.Info("Exiting.")
	return nil
}

func runOnce(ctx context.Context, om *operations.OperationManager, runOpts operations.RunOptions) error {
	flags, err := om.RunAll(ctx, runOpts)
	if err != nil {
		return err
	}
	exitCode = flags.ExitCode()
	return nil
}

func loadConfig(args []string, stdin io.Reader) (config.Config, error) {
	var cfg config.Config
	var err error
	if len(args) == 0 || args[0] == "-" {
		err = cfg.LoadReader(stdin)
	} else {
		err = cfg.Load(args[0])
	}
	if err != nil {
		if errors.Is(err, config.ErrValidateConfig) {
			return cfg, fmt.Errorf("invalid backup spec: %w", err)
		}
		return cfg, fmt.Errorf("failed to load backup spec: %w", err)
	}
	return cfg, nil
}
