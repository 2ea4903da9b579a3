// Package capability classifies framework components as synchronous or
// suspending and provides the single bridge between the two worlds.
//
// A component is SUSPENDING when it implements the context-taking variant of
// its role interface (ValidateContext, CheckContext, AllowContext, ...); its
// invocation may block on external I/O and must run on the cooperative path.
// A component is SYNC when it only implements the plain variant; it runs
// inline and must not block. The role packages own their dual interfaces and
// report the resulting Mode here; this package aggregates per-member modes
// into a Descriptor for handler objects and supplies the concurrency
// primitives (Gather, Pool) that the dispatch core builds on.
package capability

import (
	"sort"
)

// Mode classifies how invoking a component behaves.
type Mode uint8

const (
	// ModeSync marks a component that runs to completion inline.
	ModeSync Mode = iota

	// ModeSuspending marks a component whose invocation may yield to the
	// scheduler before completing.
	ModeSuspending
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeSuspending {
		return "suspending"
	}
	return "sync"
}

// Descriptor records the classification of a handler object's members.
// It is built once at registration time and read-only thereafter; the same
// handler class may be served to concurrent requests, so descriptors carry
// no mutable state.
type Descriptor struct {
	members map[string]Mode
	mode    Mode
}

// Describe builds a Descriptor from per-member modes. Members named in
// exclude are infrastructure-internal (dispatch entry points, classification
// helpers) and never considered when deciding the owning object's mode.
func Describe(members map[string]Mode, exclude ...string) *Descriptor {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}
	d := &Descriptor{members: make(map[string]Mode, len(members))}
	for name, mode := range members {
		if excluded[name] {
			continue
		}
		d.members[name] = mode
		if mode == ModeSuspending {
			d.mode = ModeSuspending
		}
	}
	return d
}

// Mode returns the aggregate mode: ModeSuspending if any considered member
// is suspending, ModeSync otherwise.
func (d *Descriptor) Mode() Mode { return d.mode }

// Member returns the mode recorded for a member name. Unknown members
// classify ModeSync; classification never fails.
func (d *Descriptor) Member(name string) Mode {
	return d.members[name]
}

// Members returns the considered member names in sorted order.
func (d *Descriptor) Members() []string {
	names := make([]string, 0, len(d.members))
	for name := range d.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Partition splits items into sync and suspending subsets, preserving the
// declared order within each subset.
func Partition[T any](items []T, classify func(T) Mode) (syncs, susps []T) {
	for _, item := range items {
		if classify(item) == ModeSuspending {
			susps = append(susps, item)
		} else {
			syncs = append(syncs, item)
		}
	}
	return syncs, susps
}
