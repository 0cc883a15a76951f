package operations

import (
	"context"

	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/logger"
	"github.com/kebairia/dupback/internal/sink"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	twoLineLog = "Local and Remote metadata are synchronized, no sync needed.\n" +
		"Last full backup date: Sun Oct  2 03:00:01 2016\n"
	cleanStats = "Errors 0\nRawDeltaSize 100 (100 bytes)\n-------\n"
)

// fakeRunner replays canned results in order and records invocations.
type fakeRunner struct {
	results []engine.Result
	errs    []error
	calls   []engine.Invocation
}

func (f *fakeRunner) Run(_ context.Context, inv engine.Invocation) (engine.Result, error) {
	i := len(f.calls)
	f.calls = append(f.calls, inv)

	var res engine.Result
	if i < len(f.results) {
		res = f.results[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

type fakeSink struct {
	name     string
	probeErr error
}

var _ sink.Sink = (*fakeSink)(nil)

func (s *fakeSink) GetName() string { return s.name }

func (s *fakeSink) EngineArgs(host, job string) []string {
	return []string{"sftp://" + s.name + "/" + host + "/" + job + "/"}
}

func (s *fakeSink) Probe(context.Context) error { return s.probeErr }

func newObservedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.New(zap.New(core)), logs
}

func severities(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.AllUntimed() {
		out = append(out, e.ContextMap()[logger.SeverityKey].(string))
	}
	return out
}
