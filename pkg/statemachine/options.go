package statemachine

import (
	"fmt"
)

// Option configures a state machine during construction.
type Option func(*Table) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption func(*transitionConfig)

// TransitionDef defines a transition between states.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

type transitionConfig struct {
	guards  []Guard
	actions []Action
}

// New creates a transition table from the given options.
func New(opts ...Option) (StateMachine, error) {
	sm := newTable()

	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, err
		}
	}

	return sm, nil
}

// MustNew works like New but panics if any option fails to apply.
// Transition tables are static program data, so a broken one should stop startup.
func MustNew(opts ...Option) StateMachine {
	sm, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition adds a single transition to the state machine.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(sm *Table) error {
		cfg := &transitionConfig{}
		for _, opt := range opts {
			opt(cfg)
		}

		return sm.AddTransition(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTransitions adds multiple transitions to the state machine at once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(sm *Table) error {
		for i, t := range transitions {
			if err := sm.AddTransition(t.From, t.To, t.Event, t.Guards, t.Actions); err != nil {
				// Handle nil states/events safely in error message
				fromName := "<nil>"
				toName := "<nil>"
				eventName := "<nil>"

				if t.From != nil {
					fromName = t.From.Name()
				}
				if t.To != nil {
					toName = t.To.Name()
				}
				if t.Event != nil {
					eventName = t.Event.Name()
				}

				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, fromName, toName, eventName, err)
			}
		}
		return nil
	}
}

// WithGuard adds a single guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithGuards adds multiple guards to a transition.
func WithGuards(guards ...Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		for _, guard := range guards {
			if guard != nil {
				cfg.guards = append(cfg.guards, guard)
			}
		}
	}
}

// WithAction adds a single action to a transition.
func WithAction(action Action) TransitionOption {
	return func(cfg *transitionConfig) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}

// WithActions adds multiple actions to a transition.
func WithActions(actions ...Action) TransitionOption {
	return func(cfg *transitionConfig) {
		for _, action := range actions {
			if action != nil {
				cfg.actions = append(cfg.actions, action)
			}
		}
	}
}
