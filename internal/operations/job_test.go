package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kebairia/dupback/internal/engine"
	"github.com/kebairia/dupback/internal/outcome"
	"github.com/kebairia/dupback/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRun_CleanBackup(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{
		{Output: twoLineLog + outcome.StatsHeader + cleanStats},
	}}
	job := NewJob("root-home", "/root", "host1", "s3cret",
		[]sink.Sink{&fakeSink{name: "nas"}},
		WithRunner(runner), WithLogger(log))

	flags := job.Run(context.Background())

	assert.Equal(t, outcome.OK, flags)
	success := logs.FilterMessageSnippet("completed successfully")
	require.Equal(t, 1, success.Len())
	assert.Contains(t, success.All()[0].Message, "100 bytes")
	assert.Equal(t, "Backup of root-home to nas completed successfully. Raw delta size: 100 bytes",
		success.All()[0].Message)
	assert.Equal(t, 0, logs.FilterMessageSnippet("> ").Len())
}

func TestJobRun_NonzeroExitDumpsOutput(t *testing.T) {
	log, logs := newObservedLogger()
	output := twoLineLog + outcome.StatsHeader + "Errors 0\n"
	runner := &fakeRunner{results: []engine.Result{{Output: output, ExitCode: 30}}}
	job := NewJob("root-home", "/root", "host1", "s3cret",
		[]sink.Sink{&fakeSink{name: "nas"}},
		WithRunner(runner), WithLogger(log))

	flags := job.Run(context.Background())

	assert.Equal(t, outcome.Yes, flags)
	assert.Equal(t, 1, logs.FilterMessage("Error was detected:").Len())
	assert.Equal(t, 0, logs.FilterMessage("Unrecognized output from duplicity:").Len())
	dump := logs.FilterMessageSnippet("> ")
	assert.Equal(t, 4, dump.Len())
	assert.Equal(t, "> "+"Local and Remote metadata are synchronized, no sync needed.", dump.All()[0].Message)
	assert.Equal(t, 0, logs.FilterMessageSnippet("completed successfully").Len())
}

func TestJobRun_FullBackupLine(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{
		Output: twoLineLog + "Last full backup is too old, forcing full backup\n" +
			outcome.StatsHeader + "Errors 0\nRawDeltaSize 1048576 (1.00 MB)\n",
	}}}
	job := NewJob("etc", "/etc", "host1", "p", []sink.Sink{&fakeSink{name: "nas"}},
		WithRunner(runner), WithLogger(log))

	require.Equal(t, outcome.OK, job.Run(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage(
		"[Full] Backup of etc to nas completed successfully. Raw delta size: 1.00 MB").Len())
}

func TestJobRun_AllSinksAttempted(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{
		{Output: "boom\n", ExitCode: 1},
		{Output: "odd\n"},
		{Output: twoLineLog + outcome.StatsHeader + cleanStats},
	}}
	sinks := []sink.Sink{&fakeSink{name: "a"}, &fakeSink{name: "b"}, &fakeSink{name: "c"}}
	job := NewJob("j", "/data", "h", "p", sinks, WithRunner(runner), WithLogger(log))

	flags := job.Run(context.Background())

	assert.Equal(t, outcome.Yes|outcome.Maybe, flags)
	assert.Len(t, runner.calls, 3)
	assert.Equal(t, 2, logs.FilterMessage("Unrecognized output from duplicity:").Len())
	assert.Equal(t, 1, logs.FilterMessage("Error was detected:").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Backup of j to c completed").Len())
}

func TestJobRun_MaybeSeverity(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{Output: "one\n"}}}
	job := NewJob("j", "/data", "h", "p", []sink.Sink{&fakeSink{name: "a"}},
		WithRunner(runner), WithLogger(log))

	assert.Equal(t, outcome.Maybe, job.Run(context.Background()))

	// start line, invocation, unrecognized marker, one output line
	assert.Equal(t, []string{"info", "debug", "info", "info"}, severities(logs))
}

func TestJobRun_StartFailure(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{errs: []error{errors.New("exec: duplicity: not found")}}
	job := NewJob("j", "/data", "h", "p", []sink.Sink{&fakeSink{name: "a"}},
		WithRunner(runner), WithLogger(log))

	assert.True(t, job.Run(context.Background()).Has(outcome.Yes))
	assert.Equal(t, 1, logs.FilterMessage("> exec: duplicity: not found").Len())
}

func TestJobRun_Invocation(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{{Output: twoLineLog}}}
	job := NewJob("root-home", "/root", "host1", "s3cret",
		[]sink.Sink{&fakeSink{name: "nas"}},
		WithRunner(runner), WithLogger(log),
		WithExclude([]string{"/root/.cache"}), WithMonthlyFull(false))

	job.Run(context.Background())

	require.Len(t, runner.calls, 1)
	inv := runner.calls[0]
	assert.Equal(t, map[string]string{"PASSPHRASE": "s3cret"}, inv.Env)
	assert.Equal(t, []string{
		"--allow-source-mismatch", "--exclude-if-present", ".nobackup",
		"--exclude", "/root/.cache",
		"/root",
		"sftp://nas/host1/root-home/",
	}, inv.Args)
	assert.NotContains(t, inv.Args, "s3cret")

	for _, e := range logs.AllUntimed() {
		assert.NotContains(t, e.Message, "s3cret")
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "s3cret")
		}
	}
}

func TestJobVerify(t *testing.T) {
	log, logs := newObservedLogger()
	runner := &fakeRunner{results: []engine.Result{
		{Output: "anything\nat\nall\nhere\n"},
		{Output: twoLineLog, ExitCode: 1},
	}}
	sinks := []sink.Sink{&fakeSink{name: "a"}, &fakeSink{name: "b"}}
	job := NewJob("j", "/data", "h", "p", sinks, WithRunner(runner), WithLogger(log))

	flags := job.Verify(context.Background())

	assert.Equal(t, outcome.Yes, flags)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "verify", runner.calls[0].Args[0])
	assert.Equal(t, "/data", runner.calls[0].Args[len(runner.calls[0].Args)-1])
	assert.Equal(t, 1, logs.FilterMessage("Verify of j on a completed successfully.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Error was detected:").Len())
}

func TestJob_RecordsOutcomes(t *testing.T) {
	log, _ := newObservedLogger()
	rec := NewRunRecord("id", "set", "h")
	runner := &fakeRunner{results: []engine.Result{
		{Output: twoLineLog + outcome.StatsHeader + cleanStats},
		{ExitCode: 1},
	}}
	job := NewJob("j", "/data", "h", "p", []sink.Sink{&fakeSink{name: "a"}},
		WithRunner(runner), WithLogger(log), WithRecorder(rec))

	job.Run(context.Background())
	job.Verify(context.Background())

	require.Len(t, rec.Entries, 2)
	assert.Equal(t, ModeBackup, rec.Entries[0].Mode)
	assert.Equal(t, "100 (100 bytes)", rec.Entries[0].Stats["RawDeltaSize"])
	assert.Equal(t, ModeVerify, rec.Entries[1].Mode)
	assert.Equal(t, outcome.Yes, rec.Entries[1].Flags)
	assert.Equal(t, 1, rec.Entries[1].ExitCode)
}
