package operations

import (
	"fmt"
	"strings"

	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/outcome"
)

// Reporter turns classified outcomes into log events. Clean runs get one
// line; anything else gets the full engine output.
type Reporter struct {
	log logger.Logger
}

func NewReporter(log logger.Logger) *Reporter {
	return &Reporter{log: log}
}

// ReportBackup logs the result of backing job up to sinkName.
func (r *Reporter) ReportBackup(job, sinkName string, out outcome.BackupOutcome) {
	if !out.Error.IsOK() {
		r.reportFailure(job, sinkName, out.Error, out.RawOutput)
		return
	}

	prefix := ""
	if out.WasFull {
		prefix = "[Full] "
	}
	size := outcome.HumanStat(out.Stats, outcome.StatRawDeltaSize)
	if size == "" {
		size = "unknown"
	}
	r.log.Info(
		fmt.Sprintf("%sBackup of %s to %s completed successfully. Raw delta size: %s",
			prefix, job, sinkName, size),
		"job", job, "sink", sinkName, "full", out.WasFull,
	)
}

// ReportVerify logs the result of verifying job on sinkName.
func (r *Reporter) ReportVerify(job, sinkName string, out outcome.VerifyOutcome) {
	if !out.Error.IsOK() {
		r.reportFailure(job, sinkName, out.Error, out.RawOutput)
		return
	}
	r.log.Info(fmt.Sprintf("Verify of %s on %s completed successfully.", job, sinkName),
		"job", job, "sink", sinkName)
}

func (r *Reporter) reportFailure(job, sinkName string, flags outcome.Flags, output string) {
	if flags.Has(outcome.Yes) {
		r.log.Error("Error was detected:", "job", job, "sink", sinkName)
	}
	if flags.Has(outcome.Maybe) {
		r.log.Info("Unrecognized output from duplicity:", "job", job, "sink", sinkName)
	}
	for _, line := range outputLines(output) {
		r.log.Info("> "+line, "job", job, "sink", sinkName)
	}
}

func outputLines(output string) []string {
	output = strings.TrimSuffix(output, "\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
