package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Table is a thread-safe transition table.
// Lookups go through a nested map: [fromState][event][]Transition.
type Table struct {
	transitions map[string]map[string][]Transition
	order       map[string][]Event // events per state in registration order
	mu          sync.RWMutex
}

func newTable() *Table {
	return &Table{
		transitions: make(map[string]map[string][]Transition),
		order:       make(map[string][]Event),
	}
}

func (t *Table) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fromStateName := from.Name()
	eventName := event.Name()

	if _, ok := t.transitions[fromStateName]; !ok {
		t.transitions[fromStateName] = make(map[string][]Transition)
	}
	if len(t.transitions[fromStateName][eventName]) == 0 {
		t.order[fromStateName] = append(t.order[fromStateName], event)
	}

	// Multiple transitions allowed for same from/event to support guard-based branching
	t.transitions[fromStateName][eventName] = append(t.transitions[fromStateName][eventName], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// Fire resolves the transition for event out of from, runs its actions and
// returns the target state. The caller persists the result.
func (t *Table) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	if from == nil {
		return nil, ErrInvalidState
	}
	if event == nil {
		return nil, ErrInvalidEvent
	}

	tr, err := t.resolve(ctx, from, event, data)
	if err != nil {
		return nil, err
	}

	for _, action := range tr.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, tr.To, event, data); err != nil {
			return nil, fmt.Errorf("action failed: %w", err)
		}
	}

	return tr.To, nil
}

func (t *Table) CanFire(ctx context.Context, from State, event Event, data any) bool {
	if from == nil || event == nil {
		return false
	}
	_, err := t.resolve(ctx, from, event, data)
	return err == nil
}

// Events lists the events registered for a state, ignoring guards.
func (t *Table) Events(from State) []Event {
	if from == nil {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	events := t.order[from.Name()]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// resolve returns the first transition whose guards all pass.
// Guards run without the lock held so they may consult external state.
func (t *Table) resolve(ctx context.Context, from State, event Event, data any) (Transition, error) {
	fromStateName := from.Name()
	eventName := event.Name()

	t.mu.RLock()
	candidates := t.transitions[fromStateName][eventName]
	t.mu.RUnlock()

	if len(candidates) == 0 {
		return Transition{}, NewErrNoTransitionAvailable(fromStateName, eventName)
	}

	for _, tr := range candidates {
		allGuardsPassed := true
		for _, guard := range tr.Guards {
			if guard != nil && !guard(ctx, from, event, data) {
				allGuardsPassed = false
				break
			}
		}
		if allGuardsPassed {
			return tr, nil
		}
	}

	return Transition{}, NewErrTransitionRejected(fromStateName, eventName)
}
