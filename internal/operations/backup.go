package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
)

// BackupToSink runs one backup of the job to s and classifies it.
func (j *Job) BackupToSink(ctx context.Context, s sink.Sink) outcome.BackupOutcome {
	args := engine.BackupArgs(j.engineFlags(), j.path, s.EngineArgs(j.host, j.name))
	j.log.Debug("engine invocation", "job", j.name, "sink", s.GetName(), "args", args)

	res := j.run(ctx, args)
	out := j.classifier.ClassifyBackup(res.Output, res.ExitCode)

	j.recorder.Record(Entry{
		Job:      j.name,
		Sink:     s.GetName(),
		Mode:     ModeBackup,
		Result:   out.Error.String(),
		Flags:    out.Error,
		Full:     out.WasFull,
		ExitCode: res.ExitCode,
		Stats:    out.Stats,
		Output:   out.RawOutput,
	})
	return out
}

// Run backs the job up to every sink in order and returns the union of
// their flags. A failing sink does not stop the others.
func (j *Job) Run(ctx context.Context) outcome.Flags {
	var flags outcome.Flags
	for _, s := range j.sinks {
		j.log.Info(fmt.Sprintf("Starting backup %s to %s.", j.name, s.GetName()),
			"job", j.name, "sink", s.GetName())

		out := j.BackupToSink(ctx, s)
		flags = flags.Combine(out.Error)

		j.reporter.ReportBackup(j.name, s.GetName(), out)
	}
	return flags
}

// run calls the engine. A start failure becomes part of the output with a
// nonzero exit code so it is classified and reported like any other failure.
func (j *Job) run(ctx context.Context, args []string) engine.Result {
	res, err := j.runner.Run(ctx, j.invocation(args))
	if err != nil {
		res.Output += err.Error() + "\n"
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
	}
	return res
}
