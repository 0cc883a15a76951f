package outcome

import "strings"

// Flags is the error state of a run. It is a bit set: Maybe and Yes are
// independent and only ever accumulate.
type Flags uint8

const (
	// OK means no problem was seen.
	OK Flags = 0
	// Maybe means the engine output did not match any known shape and
	// needs a human to look at it.
	Maybe Flags = 1 << 0
	// Yes means a definite failure: nonzero exit, a known failure
	// signature or a nonzero Errors statistic.
	Yes Flags = 1 << 1
)

// Combine returns the union of f and other.
func (f Flags) Combine(other Flags) Flags {
	return f | other
}

// Has reports whether every bit of flag is set in f.
func (f Flags) Has(flag Flags) bool {
	return flag != OK && f&flag == flag
}

// IsOK reports whether no flag is set.
func (f Flags) IsOK() bool {
	return f == OK
}

// ExitCode is the process exit status for f.
func (f Flags) ExitCode() int {
	return int(f)
}

func (f Flags) String() string {
	if f == OK {
		return "ok"
	}
	var parts []string
	if f.Has(Yes) {
		parts = append(parts, "error")
	}
	if f.Has(Maybe) {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "+")
}
