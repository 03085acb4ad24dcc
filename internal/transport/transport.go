// Package transport defines the minimal seam EntityInliner's fetch and
// ExecutionEngine's publish step consume (SPEC_FULL.md §4.15); the wire
// protocol a concrete implementation speaks stays out of this core's
// scope (spec.md §1).
package transport

import (
	"context"

	"github.com/signalmesh/swarmcore/pkg/event"
)

// Filter narrows a Subscribe call, mirroring the author/kind/since filters a
// Nostr-style relay accepts.
type Filter struct {
	Authors []string
	Kinds   []event.Kind
	Since   int64
}

// Transport is the minimal interface the core consumes from the shared
// event log.
type Transport interface {
	// Fetch retrieves a single event by id, for EntityInliner resolution
	// and delegation-response lookups.
	Fetch(ctx context.Context, eventID string) (*event.Event, error)

	// Publish emits e to the log. Per spec.md §7, intermediate-update
	// publish failures are logged and dropped by the caller; terminal
	// events are retried with bounded backoff by the caller.
	Publish(ctx context.Context, e *event.Event) error

	// Subscribe streams events matching filter until ctx is cancelled.
	Subscribe(ctx context.Context, filter Filter) (<-chan *event.Event, error)
}
