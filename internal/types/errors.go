package types

import "errors"

var (
	// ErrInvalidRate marks a malformed feed update: rate <= 0 or fee outside
	// [0,1). The single update is dropped, the pass continues.
	ErrInvalidRate = errors.New("invalid rate update")

	// ErrDisconnectedBase means the base asset has no live outgoing edges;
	// the current pass is aborted and retried next tick.
	ErrDisconnectedBase = errors.New("base asset has no live edges")

	// ErrGraphInconsistency is an invariant violation inside the graph;
	// fatal for the pass, the process keeps running.
	ErrGraphInconsistency = errors.New("graph inconsistency")
)
