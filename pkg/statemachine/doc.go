// Package statemachine provides a stateless finite-state-machine transition
// table for entities whose current state is persisted outside the process.
//
// The package revolves around two minimal interfaces, State and Event. A
// StateMachine maps (from, event) pairs to target states and handles:
//  1. Transition validation and lookup
//  2. Optional Guard evaluation to accept or reject transitions
//  3. Execution of side-effect Actions before the target state is returned
//
// Because the table never stores a "current" state, one instance is shared by
// every entity. The caller loads the entity, derives its state, calls Fire and
// persists the returned state together with whatever the actions changed,
// typically inside a single atomic update.
//
// # Usage
//
//	const (
//		Disabled = statemachine.StringState("disabled")
//		Enabled  = statemachine.StringState("enabled")
//		Enable   = statemachine.StringEvent("enable")
//	)
//
//	sm := statemachine.MustNew(
//		statemachine.WithTransition(Disabled, Enabled, Enable,
//			statemachine.WithGuard(isEligible),
//			statemachine.WithAction(issueCodes),
//		),
//	)
//
//	next, err := sm.Fire(ctx, record.State(), Enable, record)
//
// # Error Handling
//
// Fire returns *ErrNoTransitionAvailable when the pair is not registered and
// *ErrTransitionRejected when every candidate was blocked by a guard. Use the
// IsNoTransitionAvailableError and IsTransitionRejectedError predicates to
// tell them apart. Action errors are wrapped and returned unchanged otherwise.
//
// # Concurrency
//
// Table guards its map with a RWMutex. Guards and actions run without the lock
// held, so they may block on I/O.
package statemachine
