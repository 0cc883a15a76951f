package cmd

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/operations"
)

// cronLogger adapts Logger to the logger cron expects.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err.Error())...)
}

// runScheduled runs the backup set on spec until ctx is done. A run that is
// still going when the next one is due makes the next one skip, so runs
// never overlap.
func runScheduled(ctx context.Context, om *operations.OperationManager, runOpts operations.RunOptions, spec string, log logger.Logger) error {
	// Fail on bad sinks or secrets now rather than at the first tick.
	if _, err := om.InitializeJobSet(ctx, log, nil); err != nil {
		return err
	}

	clog := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	_, err := c.AddFunc(spec, func() {
		flags, err := om.RunAll(ctx, runOpts)
		if err != nil {
			log.Error("Scheduled run could not start.", "error", err.Error())
			return
		}
		log.Debug("scheduled run finished", "result", flags.String())
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	log.Notice(fmt.Sprintf("Scheduled backups on %q.", spec), "schedule", spec)
	c.Start()
	<-ctx.Done()
	log.Notice("Stopping scheduler, waiting for the running backup.")
	<-c.Stop().Done()
	return nil
}
