package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	ErrStateNotFound      = errors.New("state not found")
	ErrTransitionNotFound = errors.New("transition not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrNotStarted         = errors.New("controller not started")
	ErrAlreadyStarted     = errors.New("controller already started")

	// ErrUnknownActionKind indicates an action name missing from the vocabulary.
	ErrUnknownActionKind = errors.New("unknown action kind")
	// ErrUnknownPredicateKind indicates a predicate name missing from the vocabulary.
	ErrUnknownPredicateKind = errors.New("unknown predicate kind")
	// ErrUnknownStateKind indicates a state kind other than action, entry or any.
	ErrUnknownStateKind = errors.New("unknown state kind")
	// ErrUnknownTransitionPolicy indicates a policy name other than first or every.
	ErrUnknownTransitionPolicy = errors.New("unknown transition policy")

	// ErrMissingEntryState indicates a graph without an entry state.
	ErrMissingEntryState = errors.New("graph has no entry state")
	// ErrMissingAnyState indicates a graph without an any state.
	ErrMissingAnyState = errors.New("graph has no any state")
	// ErrMultipleEntryStates indicates a graph with more than one entry state.
	ErrMultipleEntryStates = errors.New("graph has more than one entry state")
	// ErrMultipleAnyStates indicates a graph with more than one any state.
	ErrMultipleAnyStates = errors.New("graph has more than one any state")
	// ErrEntryTransition indicates an entry state without exactly one transition.
	ErrEntryTransition = errors.New("entry state must have exactly one transition")
	// ErrNotEntryState indicates an entry-only query on another kind of state.
	ErrNotEntryState = errors.New("not an entry state")
	// ErrInvalidTarget indicates a transition or switch towards an entry or any state.
	ErrInvalidTarget = errors.New("entry and any states cannot be transition targets")
	// ErrDuplicateState indicates two states sharing an ID.
	ErrDuplicateState = errors.New("duplicate state id")
	// ErrDuplicateTransition indicates a second transition between the same ordered pair.
	ErrDuplicateTransition = errors.New("duplicate transition")
	// ErrStateIDRequired indicates a state without an ID.
	ErrStateIDRequired = errors.New("state id is required")
	// ErrGraphNameRequired indicates a configuration without a name.
	ErrGraphNameRequired = errors.New("graph name is required")
	// ErrNotActionState indicates an action-list edit on an entry or any state.
	ErrNotActionState = errors.New("only action states carry actions")
	// ErrCannotRemoveState indicates an attempt to remove the entry or any state.
	ErrCannotRemoveState = errors.New("entry and any states cannot be removed")
	// ErrNoConfigLoader indicates that no config loader is registered.
	ErrNoConfigLoader = errors.New("no config loader registered; use SetConfigLoader() or provide a file path")
	// ErrUnsupportedEncoding indicates asset bytes in a text encoding that cannot be decoded.
	ErrUnsupportedEncoding = errors.New("unsupported asset encoding")
	// ErrAssetTooLarge indicates an asset that decodes to more than MaxAssetSize bytes.
	ErrAssetTooLarge = errors.New("asset too large")
	// ErrAssetFetch indicates an HTTP loader response other than 200.
	ErrAssetFetch = errors.New("asset fetch failed")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("transition to %s: %v", e.To, e.Err)
	}

	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From: from,
		To:   to,
		Err:  err,
	}
}
