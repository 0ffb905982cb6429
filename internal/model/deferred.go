package model

import "fmt"

// Deferred is a field whose concrete value is supplied by a later
// pipeline stage: it is either pending or resolved. The build stage's
// postcondition is that no deferred field on any planned resource is
// still pending; a pending value escaping past that point is a defect
// in the build pipeline, not a normal error path.
type Deferred[T any] struct {
	value    T
	resolved bool
}

// PendingValue returns an unresolved Deferred.
func PendingValue[T any]() Deferred[T] {
	return Deferred[T]{}
}

// ResolvedValue returns a Deferred already carrying v.
func ResolvedValue[T any](v T) Deferred[T] {
	return Deferred[T]{value: v, resolved: true}
}

// Resolve fills in the concrete value.
func (d *Deferred[T]) Resolve(v T) {
	d.value = v
	d.resolved = true
}

// Pending reports whether the value has not been resolved yet.
func (d Deferred[T]) Pending() bool {
	return !d.resolved
}

// Value returns the resolved value and whether it was resolved.
func (d Deferred[T]) Value() (T, bool) {
	return d.value, d.resolved
}

// Any returns the resolved value untyped, for use in instruction
// parameter structures.
func (d Deferred[T]) Any() any {
	return d.value
}

// MustValue returns the resolved value and panics when pending. Only
// the plan stage calls this, after the build stage has run to
// completion, so a panic here always indicates a build-step defect.
func (d Deferred[T]) MustValue() T {
	if !d.resolved {
		panic(fmt.Sprintf("deferred %T read before resolution", d.value))
	}
	return d.value
}
