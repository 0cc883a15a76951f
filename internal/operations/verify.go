package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
)

// VerifyOnSink compares the backup on s with the source path. The engine
// exits nonzero if any file differs.
func (j *Job) VerifyOnSink(ctx context.Context, s sink.Sink) outcome.VerifyOutcome {
	args := engine.VerifyArgs(j.engineFlags(), j.path, s.EngineArgs(j.host, j.name))
	j.log.Debug("engine invocation", "job", j.name, "sink", s.GetName(), "args", args)

	res := j.run(ctx, args)
	out := j.classifier.ClassifyVerify(res.Output, res.ExitCode)

	j.recorder.Record(Entry{
		Job:      j.name,
		Sink:     s.GetName(),
		Mode:     ModeVerify,
		Result:   out.Error.String(),
		Flags:    out.Error,
		ExitCode: res.ExitCode,
		Output:   out.RawOutput,
	})
	return out
}

// Verify checks the job on every sink in order and returns the union of
// their flags.
func (j *Job) Verify(ctx context.Context) outcome.Flags {
	var flags outcome.Flags
	for _, s := range j.sinks {
		j.log.Info(fmt.Sprintf("Verifying backup %s on %s.", j.name, s.GetName()),
			"job", j.name, "sink", s.GetName())

		out := j.VerifyOnSink(ctx, s)
		flags = flags.Combine(out.Error)

		j.reporter.ReportVerify(j.name, s.GetName(), out)
	}
	return flags
}
