// Package statemachine provides a small table-driven finite state machine used
// by appointment, bed and bed booking lifecycles.
package statemachine

import (
	"strings"

	"medicare-server/internal/apperrors"
)

// Transition is one allowed edge and the actors permitted to take it.
type Transition[S ~string, A ~string] struct {
	From   S
	To     S
	Actors []A
}

// Machine holds the transition table for one entity type.
type Machine[S ~string, A ~string] struct {
	name  string
	verbs map[S]string
	edges map[S]map[S][]A
}

// New builds a machine. name is used in error messages ("appointment"),
// verbs maps a target state to the verb describing the move ("complete").
func New[S ~string, A ~string](name string, verbs map[S]string, transitions ...Transition[S, A]) *Machine[S, A] {
	m := &Machine[S, A]{name: name, verbs: verbs, edges: make(map[S]map[S][]A)}
	for _, t := range transitions {
		if m.edges[t.From] == nil {
			m.edges[t.From] = make(map[S][]A)
		}
		m.edges[t.From][t.To] = append(m.edges[t.From][t.To], t.Actors...)
	}
	return m
}

// CanTransition reports whether actor may move an entity from one state to another.
func (m *Machine[S, A]) CanTransition(from, to S, actor A) bool {
	actors, ok := m.edges[from][to]
	if !ok {
		return false
	}
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

// Check is CanTransition with a classified error. A missing edge is a
// Conflict that names the current state; an edge the actor may not take is
// Forbidden.
func (m *Machine[S, A]) Check(from, to S, actor A) error {
	actors, ok := m.edges[from][to]
	if !ok {
		return apperrors.Conflict("wrong-current-state",
			"cannot %s %s, current status is %s", m.Verb(to), m.name, from)
	}
	for _, a := range actors {
		if a == actor {
			return nil
		}
	}
	return apperrors.Forbidden("not-owner",
		"%s is not allowed to %s this %s", actor, m.Verb(to), m.name)
}

// Terminal reports whether no transitions leave s.
func (m *Machine[S, A]) Terminal(s S) bool {
	return len(m.edges[s]) == 0
}

// Verb is the word used for a move into to ("cancel").
func (m *Machine[S, A]) Verb(to S) string {
	if v, ok := m.verbs[to]; ok {
		return v
	}
	return "move to " + strings.ToLower(string(to))
}
