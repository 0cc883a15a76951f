package engine

// Flags shared by backup and verify runs.
var globalFlags = []string{
	"--allow-source-mismatch",
	"--exclude-if-present", ".nobackup",
}

// JobFlags describes the per-job options passed to the engine.
type JobFlags struct {
	Exclude     []string
	MonthlyFull bool
}

func (f JobFlags) args() []string {
	var args []string
	if f.MonthlyFull {
		args = append(args, "--full-if-older-than", "1M")
	}
	for _, e := range f.Exclude {
		args = append(args, "--exclude", e)
	}
	return args
}

// BackupArgs builds the argument vector of a backup:
// [global flags] [job flags] <source> <sink args>.
func BackupArgs(flags JobFlags, source string, sinkArgs []string) []string {
	args := append([]string{}, globalFlags...)
	args = append(args, flags.args()...)
	args = append(args, source)
	return append(args, sinkArgs...)
}

// VerifyArgs builds the argument vector of a verify:
// verify [global flags] [job flags] <sink args> <source>.
func VerifyArgs(flags JobFlags, source string, sinkArgs []string) []string {
	args := append([]string{"verify"}, globalFlags...)
	args = append(args, flags.args()...)
	args = append(args, sinkArgs...)
	return append(args, source)
}
