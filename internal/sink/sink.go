package sink

import (
	"context"
	"errors"
)

var (
	ErrKeyfileMissing = errors.New("keyfile does not exist")
	ErrInvalidSink    = errors.New("invalid sink")
	ErrProbeFailed    = errors.New("sink probe failed")
)

// Sink is a remote destination the engine can back up to.
type Sink interface {
	GetName() string
	// EngineArgs addresses the sink for the backup named job of host.
	EngineArgs(host, job string) []string
	// Probe checks the sink is reachable with its credentials.
	Probe(ctx context.Context) error
}
