package models

// Allocation is the closed two-state allocation value for a record:
// unallocated, or allocated to a named event. Keeping the event private
// makes the state allocated=false with a leftover event unrepresentable.
type Allocation struct {
	allocated bool
	event     string
}

// Unallocated returns the initial allocation state.
func Unallocated() Allocation {
	return Allocation{}
}

// AllocatedTo returns an allocation bound to the given event.
func AllocatedTo(event string) Allocation {
	return Allocation{allocated: true, event: event}
}

// Allocated reports whether the record is allocated.
func (a Allocation) Allocated() bool {
	return a.allocated
}

// Event returns the allocated event name; ok is false when unallocated.
func (a Allocation) Event() (string, bool) {
	if !a.allocated {
		return "", false
	}
	return a.event, true
}
