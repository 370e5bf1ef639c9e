// Package fsm defines the lifecycle state machine for rental assets.
// It is pure: validation never touches storage. Persisting a transition
// (and its audit record) is the database layer's job.
package fsm

import (
	"fmt"
	"sort"
	"strings"
)

type State string

const (
	StateAvailable   State = "available"
	StateReserved    State = "reserved"
	StatePickedUp    State = "picked_up"
	StateReturned    State = "returned"
	StateInQC        State = "in_qc"
	StateCleaning    State = "cleaning"
	StateDamaged     State = "damaged"
	StateMaintenance State = "maintenance"
	StateRetired     State = "retired"
)

// adjacency is the general transition table used for administrative and
// manual transitions. Retired is terminal.
var adjacency = map[State][]State{
	StateAvailable:   {StateReserved, StateMaintenance, StateRetired},
	StateReserved:    {StateAvailable, StatePickedUp, StateMaintenance},
	StatePickedUp:    {StateReturned},
	StateReturned:    {StateInQC},
	StateInQC:        {StateCleaning, StateDamaged},
	StateCleaning:    {StateAvailable},
	StateDamaged:     {StateMaintenance, StateRetired},
	StateMaintenance: {StateAvailable, StateRetired},
	StateRetired:     {},
}

// checkInShortcuts is a second, named transition set scoped to the staff
// check-in flow: a good-condition return goes straight back to available
// (bypassing in_qc/cleaning), a damaged return goes to maintenance. These
// are not part of the general table on purpose.
var checkInShortcuts = map[State][]State{
	StateReturned: {StateAvailable, StateMaintenance},
}

// Known reports whether s is one of the enumerated lifecycle states.
func Known(s State) bool {
	_, ok := adjacency[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s State) bool {
	return Known(s) && len(adjacency[s]) == 0
}

// IsValidTransition reports whether from -> to is in the general table.
func IsValidTransition(from, to State) bool {
	return contains(adjacency[from], to)
}

// IsCheckInTransition reports whether from -> to is one of the check-in
// shortcuts. The check-in flow accepts either set.
func IsCheckInTransition(from, to State) bool {
	return contains(checkInShortcuts[from], to)
}

// AllowedNext returns the states reachable from the given state via the
// general table, sorted for stable output.
func AllowedNext(from State) []State {
	next := append([]State(nil), adjacency[from]...)
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	return next
}

func contains(states []State, s State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

// InvalidTransitionError names the rejected pair and the allowed
// alternatives so the caller can decide what to do next.
type InvalidTransitionError struct {
	From    State
	To      State
	Allowed []State
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("transition %s -> %s is not allowed: %s is terminal", e.From, e.To, e.From)
	}
	names := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		names = append(names, string(s))
	}
	return fmt.Sprintf("transition %s -> %s is not allowed; allowed from %s: %s",
		e.From, e.To, e.From, strings.Join(names, ", "))
}

// NewInvalidTransition builds the error for a rejected pair.
func NewInvalidTransition(from, to State) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Allowed: AllowedNext(from)}
}
