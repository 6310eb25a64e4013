package reactive

import "context"

// The Reactive contract of spec.md §4.3 — in this tree each live-object
// type has an unexported snapshot constructor (newDeviceSnapshot,
// newAdapterSnapshot, newItemSnapshot, ...) that fetches current state
// with no background activity; its owning service then calls
// StartMonitoring on the snapshot to obtain the live form. There are no
// exported Get/GetLive constructors.
//
// Go has no way to require a specific constructor signature through an
// interface (interfaces constrain methods on a value, not the
// functions that produce one), so this half of the pattern is a naming
// convention rather than a compiled contract. ModelMonitoring and
// ServiceMonitoring below are the part Go can actually express and
// check at compile time, via a `var _ reactive.ModelMonitoring =
// (*T)(nil)` assertion next to each live type.

// ModelMonitoring is the per-entity half of spec.md §4.3: a live
// entity that owns a background subscription wiring backend change
// events into its own Properties. StartMonitoring must observe ctx's
// cancellation and return promptly once it fires. Implementations are
// expected to be idempotent against being called once per entity
// (tray.Item, network.Device, ...).
type ModelMonitoring interface {
	StartMonitoring(ctx context.Context)
}

// ServiceMonitoring is the top-level analogue of ModelMonitoring: a
// service orchestrator that multiplexes a cancellation signal against
// one or more event sources, reconciling add/change/remove events into
// its LiveCollections. Per spec.md §4.3, the constructor/Start call
// must return only once monitoring is armed, so no event can race the
// caller's use of the service.
type ServiceMonitoring interface {
	Start(ctx context.Context) error
}
