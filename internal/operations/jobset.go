package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/outcome"
)

// JobSet runs a named group of jobs for one host and reports a single
// pass/fail.
type JobSet struct {
	name string
	host string
	jobs []*Job
	log  logger.Logger
}

func NewJobSet(name, host string, jobs []*Job, log logger.Logger) *JobSet {
	if log == nil {
		log = logger.Global()
	}
	return &JobSet{name: name, host: host, jobs: jobs, log: log}
}

func (s *JobSet) GetName() string {
	return s.name
}

func (s *JobSet) GetJobs() []*Job {
	return s.jobs
}

// Run backs up every job and returns the union of their flags.
func (s *JobSet) Run(ctx context.Context) outcome.Flags {
	var flags outcome.Flags
	for _, j := range s.jobs {
		flags = flags.Combine(j.Run(ctx))
	}

	s.summarize(flags,
		fmt.Sprintf("[ OK ] Backup set %s on %s done.", s.name, s.host),
		fmt.Sprintf("[FAIL] Backup set %s on %s is in error.", s.name, s.host),
	)
	return flags
}

// Verify verifies every job and returns the union of their flags.
func (s *JobSet) Verify(ctx context.Context) outcome.Flags {
	var flags outcome.Flags
	for _, j := range s.jobs {
		flags = flags.Combine(j.Verify(ctx))
	}

	s.summarize(flags,
		fmt.Sprintf("[ OK ] Verified backup set %s on %s.", s.name, s.host),
		fmt.Sprintf("[FAIL] Could not verify backup set %s on %s.", s.name, s.host),
	)
	return flags
}

// summarize logs okMsg at notice, or failMsg at error when a definite
// failure was seen and at warning when the outcome is only unknown.
func (s *JobSet) summarize(flags outcome.Flags, okMsg, failMsg string) {
	if flags.IsOK() {
		s.log.Notice(okMsg, "set", s.name, "host", s.host)
		return
	}
	level := logger.LevelWarning
	if flags.Has(outcome.Yes) {
		level = logger.LevelError
	}
	s.log.Log(level, failMsg, "set", s.name, "host", s.host, "result", flags.String())
}
