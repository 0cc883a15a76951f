package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/dupback/internal/outcome"
)

const (
	ModeBackup = "backup"
	ModeVerify = "verify"

	recordTimeFormat = "20060102T150405Z"
)

// Recorder receives every per-sink outcome of a run.
type Recorder interface {
	Record(e Entry)
}

type nopRecorder struct{}

func (nopRecorder) Record(Entry) {}

// Entry is one backup or verify of one job on one sink.
type Entry struct {
	Job      string        `json:"job"`
	Sink     string        `json:"sink"`
	Mode     string        `json:"mode"`
	Result   string        `json:"result"`
	Flags    outcome.Flags `json:"flags"`
	Full     bool          `json:"full,omitempty"`
	ExitCode int           `json:"exit_code"`
	Stats    outcome.Stats `json:"stats,omitempty"`
	Output   string        `json:"output"`
}

// RunRecord is the audit record of one run of a job set.
type RunRecord struct {
	RunID       string        `json:"run_id"`
	Set         string        `json:"set"`
	Host        string        `json:"host"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	DurationMS  int64         `json:"duration_ms"`
	Result      string        `json:"result"`
	Flags       outcome.Flags `json:"flags"`
	Entries     []Entry       `json:"entries"`
}

// Ensure RunRecord satisfies Recorder.
var _ Recorder = (*RunRecord)(nil)

func NewRunRecord(runID, set, host string) *RunRecord {
	return &RunRecord{
		RunID:     runID,
		Set:       set,
		Host:      host,
		StartedAt: time.Now().UTC(),
	}
}

func (r *RunRecord) Record(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Complete stamps the end of the run and its final flags.
func (r *RunRecord) Complete(flags outcome.Flags) {
	r.CompletedAt = time.Now().UTC()
	r.DurationMS = r.CompletedAt.Sub(r.StartedAt).Milliseconds()
	r.Flags = flags
	r.Result = flags.String()
}

// Filename is the record's name inside a report directory.
func (r *RunRecord) Filename() string {
	return fmt.Sprintf("run-%s-%s.json.zst", r.StartedAt.Format(recordTimeFormat), r.RunID)
}

// Write stores the record zstd-compressed in dirPath and returns its path.
func (r *RunRecord) Write(dirPath string) (string, error) {
	if err := os.MkdirAll(dirPath, 0o750); err != nil {
		return "", fmt.Errorf("ensure report directory %q: %w", dirPath, err)
	}
	filePath := filepath.Join(dirPath, r.Filename())

	err := WriteZstd(filePath, func(enc *json.Encoder) error {
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	})
	if err != nil {
		return "", fmt.Errorf("write run record %q: %w", filePath, err)
	}
	return filePath, nil
}

// LoadRunRecord reads a record written by Write.
func LoadRunRecord(filePath string) (*RunRecord, error) {
	var r RunRecord
	err := ReadZstd(filePath, func(dec *json.Decoder) error {
		return dec.Decode(&r)
	})
	if err != nil {
		return nil, fmt.Errorf("load run record %q: %w", filePath, err)
	}
	return &r, nil
}
