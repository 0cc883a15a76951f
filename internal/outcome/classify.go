package outcome

import (
	"regexp"
	"slices"
	"strings"

	"github.com/kebairia/dupback/internal/logger"
)

const (
	// StatsHeader separates the engine's log section from its statistics.
	StatsHeader = "--------------[ Backup Statistics ]--------------\n"

	fullBackupLine = "Last full backup is too old, forcing full backup\n"
	badKeyLine     = "gpg: decryption failed: bad key\n"

	// StatErrors is compared against "0" to detect failed files.
	StatErrors = "Errors"
	// StatRawDeltaSize is shown on the success line of a backup.
	StatRawDeltaSize = "RawDeltaSize"
)

var (
	borderLine = regexp.MustCompile(`^-*$`)
	humanValue = regexp.MustCompile(`^\d+ \((.*)\)$`)
)

// Stats maps statistic names to the values printed by the engine.
type Stats map[string]string

// BackupOutcome is the classified result of one backup to one sink.
type BackupOutcome struct {
	Error     Flags
	WasFull   bool
	RawOutput string
	Stats     Stats
}

// VerifyOutcome is the classified result of one verify on one sink.
type VerifyOutcome struct {
	Error     Flags
	RawOutput string
}

// Classifier turns engine output into Flags. The only event it logs itself
// is a bad encryption key, which needs a distinct message.
type Classifier struct {
	log logger.Logger
}

// NewClassifier returns a Classifier that reports through log. A nil log
// discards events.
func NewClassifier(log logger.Logger) *Classifier {
	if log == nil {
		log = logger.Global()
	}
	return &Classifier{log: log}
}

// Split separates engine output into its log section and, when present,
// its statistics section. Empty trailing sections count as absent.
func Split(output string) (logSection, statsSection string, hasStats bool) {
	parts := strings.Split(output, StatsHeader)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	switch len(parts) {
	case 0:
		return "", "", false
	case 1:
		return parts[0], "", false
	default:
		return parts[0], parts[1], true
	}
}

// ParseLog classifies the log section. A normal incremental run prints two
// lines; a forced full backup prints a third, known line. Anything else is
// Maybe, unless a longer log contains the bad key line, which is Yes.
func (c *Classifier) ParseLog(section string) (Flags, bool) {
	count := strings.Count(section, "\n")
	lines := strings.SplitAfter(section, "\n")

	full := count == 3 && lines[2] == fullBackupLine

	flags := Maybe
	if count == 2 || full {
		flags = OK
	}

	if count > 3 && slices.Contains(lines, badKeyLine) {
		c.log.Error("Fail: Bad encryption key. Please fix backup spec.")
		flags = Yes
	}

	return flags, full
}

// ParseStats builds the statistics map from the stats section, skipping
// blank lines and dash borders. A nonzero Errors value is Yes; a missing
// Errors key is not an error.
func (c *Classifier) ParseStats(section string) (Stats, Flags) {
	stats := Stats{}
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if borderLine.MatchString(line) {
			continue
		}
		key, value := splitStat(line)
		if key == "" {
			continue
		}
		stats[key] = value
	}

	if v, ok := stats[StatErrors]; ok && v != "0" {
		return stats, Yes
	}
	return stats, OK
}

// ClassifyBackup classifies the combined output and exit code of a backup
// run. A nonzero exit code is always Yes.
func (c *Classifier) ClassifyBackup(output string, exitCode int) BackupOutcome {
	logSection, statsSection, hasStats := Split(output)

	flags, full := c.ParseLog(logSection)

	stats := Stats{}
	if hasStats {
		var statFlags Flags
		stats, statFlags = c.ParseStats(statsSection)
		flags = flags.Combine(statFlags)
	}

	if exitCode != 0 {
		flags = flags.Combine(Yes)
	}

	return BackupOutcome{
		Error:     flags,
		WasFull:   full,
		RawOutput: output,
		Stats:     stats,
	}
}

// ClassifyVerify classifies a verify run. The engine exits nonzero when any
// file differs, so the text of the output is not inspected.
func (c *Classifier) ClassifyVerify(output string, exitCode int) VerifyOutcome {
	flags := OK
	if exitCode != 0 {
		flags = Yes
	}
	return VerifyOutcome{Error: flags, RawOutput: output}
}

// HumanStat returns the human readable part of a value shaped like
// "1048576 (1.00 MB)". Other values are returned unchanged; a missing key
// yields "".
func HumanStat(stats Stats, key string) string {
	v, ok := stats[key]
	if !ok {
		return ""
	}
	if m := humanValue.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

func splitStat(line string) (string, string) {
	line = strings.TrimLeft(line, " \t")
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i+1:], " \t")
}

