package operations

import (
	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
)

// JobOption lets you override default settings on a Job.
type JobOption func(*Job)

// Job backs one source path up to an ordered list of sinks.
type Job struct {
	name        string
	path        string
	host        string
	sinks       []sink.Sink
	pass        string
	exclude     []string
	monthlyFull bool

	runner     engine.Runner
	classifier *outcome.Classifier
	reporter   *Reporter
	recorder   Recorder
	log        logger.Logger
}

// NewJob returns a Job for path on host, encrypted with pass. Monthly full
// backups are on unless disabled.
func NewJob(name, path, host, pass string, sinks []sink.Sink, opts ...JobOption) *Job {
	j := &Job{
		name:        name,
		path:        path,
		host:        host,
		sinks:       sinks,
		pass:        pass,
		monthlyFull: true,
		recorder:    nopRecorder{},
		log:         logger.Global(),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.runner == nil {
		j.runner = engine.NewExecRunner()
	}
	j.classifier = outcome.NewClassifier(j.log)
	j.reporter = NewReporter(j.log)
	return j
}

// WithExclude sets the exclude patterns passed to the engine.
func WithExclude(patterns []string) JobOption {
	return func(j *Job) {
		j.exclude = append([]string(nil), patterns...)
	}
}

// WithMonthlyFull toggles forcing a full backup once the last one is a
// month old.
func WithMonthlyFull(on bool) JobOption {
	return func(j *Job) {
		j.monthlyFull = on
	}
}

// WithRunner overrides how the engine is run.
func WithRunner(r engine.Runner) JobOption {
	return func(j *Job) {
		if r != nil {
			j.runner = r
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) JobOption {
	return func(j *Job) {
		if log != nil {
			j.log = log
		}
	}
}

// WithRecorder stores every outcome in rec.
func WithRecorder(rec Recorder) JobOption {
	return func(j *Job) {
		if rec != nil {
			j.recorder = rec
		}
	}
}

func (j *Job) GetName() string {
	return j.name
}

func (j *Job) GetSinks() []sink.Sink {
	return j.sinks
}

func (j *Job) engineFlags() engine.JobFlags {
	return engine.JobFlags{Exclude: j.exclude, MonthlyFull: j.monthlyFull}
}

func (j *Job) invocation(args []string) engine.Invocation {
	return engine.Invocation{
		Args: args,
		Env:  map[string]string{engine.PassphraseEnv: j.pass},
	}
}
