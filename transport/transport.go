// Package transport gives the hub (C4) a single method-dispatch surface
// over both wire formats a Profile might use, following the teacher's
// endpoint package's habit of keeping transport concerns behind a narrow
// interface rather than letting the hub know it is being called over
// XML-RPC or JSON.
package transport

import (
	"fmt"
	"sync"

	"github.com/lvalerom/samphub/sampvalue"
)

// Handler answers one dispatch-table method. Arguments and the result are
// already-decoded SAMP values; errors are either a Kinded hub error (see
// Kinded and FaultMapping) or a raw Go error, which is rendered generically.
type Handler func(args []sampvalue.Value) (sampvalue.Value, error)

// Dispatcher is the inbound half of the adapter: a method-name to Handler
// table built once at server construction, per spec §9's replacement for
// reflective method wiring.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register adds method to the dispatch table, replacing any prior handler
// under the same name.
func (d *Dispatcher) Register(method string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = h
}

// Dispatch decodes nothing itself; it looks up method and invokes its
// handler with already-decoded args. An unknown method is a RemoteFailure,
// not a panic.
func (d *Dispatcher) Dispatch(method string, args []sampvalue.Value) (sampvalue.Value, error) {
	d.mu.RLock()
	h, ok := d.handlers[method]
	d.mu.RUnlock()
	if !ok {
		return nil, &RemoteFailure{Code: FaultCodeUnknownMethod, Message: fmt.Sprintf("unknown method %q", method)}
	}
	return h(args)
}

// RemoteFailure is a fault surfaced by the remote side of an outbound call,
// or synthesized locally for an unroutable inbound method.
type RemoteFailure struct {
	Code    int
	Message string
}

func (r *RemoteFailure) Error() string {
	return fmt.Sprintf("remote failure %d: %s", r.Code, r.Message)
}

// TransportFailure wraps a lower-level transport error (connection refused,
// malformed response, timeout) per spec §4.3.
type TransportFailure struct {
	Cause error
}

func (t *TransportFailure) Error() string {
	return fmt.Sprintf("transport failure: %v", t.Cause)
}

func (t *TransportFailure) Unwrap() error { return t.Cause }

// FaultCodeUnknownMethod is the code used when no handler exists for a
// dispatched method name. Apart from this and FaultCodeMethodError, fault
// codes do not distinguish failure kinds; the fault text carries the kind.
const FaultCodeUnknownMethod = 1

// FaultCodeMethodError is used when a registered method handler returns an
// error of its own — a hub.Kinded failure or any other Go error.
const FaultCodeMethodError = 2
