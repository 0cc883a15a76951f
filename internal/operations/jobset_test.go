package operations

import (
	"context"
	"testing"

	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestJobSetRun_MaybeIsWarning(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{
		{Output: twoLineLog + outcome.StatsHeader + cleanStats},
		{Output: "unexpected\n"},
	}}
	jobs := []*Job{
		NewJob("ok", "/a", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
		NewJob("odd", "/b", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
	}
	set := NewJobSet("daily", "h", jobs, log)

	flags := set.Run(context.Background())

	assert.Equal(t, outcome.Maybe, flags)
	summary := logs.FilterMessage("[FAIL] Backup set daily on h is in error.")
	require.Equal(t, 1, summary.Len())
	assert.Equal(t, zapcore.WarnLevel, summary.All()[0].Level)
	assert.Equal(t, "warning", summary.All()[0].ContextMap()["severity"])
}

func TestJobSetRun_YesIsError(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{ExitCode: 2}, {Output: "x\n"}}}
	jobs := []*Job{
		NewJob("a", "/a", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
		NewJob("b", "/b", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
	}
	set := NewJobSet("daily", "h", jobs, log)

	flags := set.Run(context.Background())

	assert.Equal(t, outcome.Yes|outcome.Maybe, flags)
	assert.Equal(t, 3, flags.ExitCode())
	summary := logs.FilterMessageSnippet("[FAIL]")
	require.Equal(t, 1, summary.Len())
	assert.Equal(t, "error", summary.All()[0].ContextMap()["severity"])
	assert.Len(t, runner.calls, 2, "a failing job does not stop the next")
}

func TestJobSetRun_OKIsNotice(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{Output: twoLineLog + outcome.StatsHeader + cleanStats}}}
	set := NewJobSet("daily", "h", []*Job{
		NewJob("a", "/a", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
	}, log)

	assert.Equal(t, outcome.OK, set.Run(context.Background()))

	summary := logs.FilterMessage("[ OK ] Backup set daily on h done.")
	require.Equal(t, 1, summary.Len())
	assert.Equal(t, "notice", summary.All()[0].ContextMap()["severity"])
}

func TestJobSetVerify(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{}, {}}}
	set := NewJobSet("daily", "h", []*Job{
		NewJob("a", "/a", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
		NewJob("b", "/b", "h", "p", []sink.Sink{&fakeSink{name: "nas"}}, WithRunner(runner), WithLogger(log)),
	}, log)

	assert.Equal(t, outcome.OK, set.Verify(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("[ OK ] Verified backup set daily on h.").Len())
}

func TestJobSet_Empty(t *testing.T) {
	log, logs := newObservedLogger()
	set := NewJobSet("empty", "h", nil, log)

	assert.Equal(t, outcome.OK, set.Run(context.Background()))
	assert.Equal(t, 1, logs.FilterMessageSnippet("[ OK ]").Len())
}
