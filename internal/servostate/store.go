// Package servostate tracks the last commanded servo action per device,
// together with the reconciliation mark the scheduler uses to suppress
// duplicate deliveries.
//
// State is held for the process lifetime and is deliberately not evicted
// when a device's presence lease lapses: a returning device can still read
// the command it missed. Expiring it alongside presence is a candidate
// refinement.
package servostate

import (
	"sync"

	"github.com/servopoint/servopoint/internal/model"
)

// Store owns the in-memory commanded-state and last-applied maps. The two
// are distinct: Set (a direct command) changes only the commanded state,
// while CommitApplied records a completed scheduled delivery in both.
//
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	states  map[string]model.Action
	applied map[string]model.Action
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		states:  make(map[string]model.Action),
		applied: make(map[string]model.Action),
	}
}

// Set unconditionally records action as the device's commanded state and
// returns the previous state, if any. Liveness is not checked; commanding
// an absent device is allowed.
func (s *Store) Set(code string, action model.Action) (prev model.Action, had bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had = s.states[code]
	s.states[code] = action
	return prev, had
}

// Get returns the device's commanded state. ok is false when no command has
// ever been issued for code, which is distinct from an explicit OFF.
func (s *Store) Get(code string) (model.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.states[code]
	return action, ok
}

// LastApplied returns the action most recently delivered to the device by
// the scheduler.
func (s *Store) LastApplied(code string) (model.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.applied[code]
	return action, ok
}

// CommitApplied records a successful scheduled delivery: both the commanded
// state and the reconciliation mark move to action in one step.
func (s *Store) CommitApplied(code string, action model.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[code] = action
	s.applied[code] = action
}
