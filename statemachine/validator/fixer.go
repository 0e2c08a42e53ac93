// Package validator provides validation and auto-fixing for graph configurations.
package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rainbowassets/gamefsm/statemachine"
)

var (
	// ErrStateNotFound is returned when attempting to remove a state that doesn't exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrTransitionNotFound is returned when attempting to remove a transition that doesn't exist.
	ErrTransitionNotFound = errors.New("transition not found")
	// ErrDuplicateNotFound is returned when attempting to remove a duplicate that doesn't exist.
	ErrDuplicateNotFound = errors.New("duplicate not found")
	// ErrSpecialState is returned when a fix would remove the entry or any state.
	ErrSpecialState = errors.New("entry and any states cannot be removed")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(config *statemachine.Config) error
}

// EnsureEntryAndAny creates a fix that adds the missing entry and any states.
// A new entry state points at the first action state, if there is one.
func EnsureEntryAndAny() *Fix {
	return &Fix{
		Description: "Add the missing entry and any states",
		Apply: func(config *statemachine.Config) error {
			if findKind(config, statemachine.KindEntry) == nil {
				entry := statemachine.StateConfig{
					ID:       freeID(config, statemachine.EntryStateID),
					Title:    statemachine.EntryStateTitle,
					Kind:     statemachine.KindEntry.String(),
					Position: statemachine.PositionConfig(statemachine.EntryStatePosition),
				}

				for _, state := range config.States {
					if isActionState(state) && state.ID != "" {
						entry.Transitions = []statemachine.TransitionConfig{{To: state.ID}}

						break
					}
				}

				config.States = append(config.States, entry)
			}

			if findKind(config, statemachine.KindAny) == nil {
				config.States = append(config.States, statemachine.StateConfig{
					ID:       freeID(config, statemachine.AnyStateID),
					Title:    statemachine.AnyStateTitle,
					Kind:     statemachine.KindAny.String(),
					Position: statemachine.PositionConfig(statemachine.AnyStatePosition),
				})
			}

			return nil
		},
	}
}

// freeID returns preferred unless a state already uses it, else a random ID.
func freeID(config *statemachine.Config, preferred string) string {
	for _, state := range config.States {
		if state.ID == preferred {
			return uuid.NewString()
		}
	}

	return preferred
}

// RemoveDanglingTransition creates a fix that removes a transition whose
// target does not exist.
func RemoveDanglingTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove transition from '%s' to missing state '%s'", from, to),
		Apply: func(config *statemachine.Config) error {
			return removeTransition(config, from, to)
		},
	}
}

// RemoveInvalidTransition creates a fix that removes a transition targeting
// an entry or any state.
func RemoveInvalidTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove transition from '%s' to non-action state '%s'", from, to),
		Apply: func(config *statemachine.Config) error {
			return removeTransition(config, from, to)
		},
	}
}

func removeTransition(config *statemachine.Config, from, to string) error {
	for i, state := range config.States {
		if state.ID != from {
			continue
		}

		idx := slices.IndexFunc(state.Transitions, func(t statemachine.TransitionConfig) bool {
			return t.To == to
		})
		if idx < 0 {
			break
		}

		config.States[i].Transitions = slices.Delete(state.Transitions, idx, idx+1)

		return nil
	}

	return fmt.Errorf("%w: '%s' -> '%s'", ErrTransitionNotFound, from, to)
}

// RemoveDuplicateTransition creates a fix that keeps only the first of
// several transitions between the same pair of states.
func RemoveDuplicateTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove duplicate transition from '%s' to '%s'", from, to),
		Apply: func(config *statemachine.Config) error {
			for i, state := range config.States {
				if state.ID != from {
					continue
				}

				kept := make([]statemachine.TransitionConfig, 0, len(state.Transitions))
				first := true
				found := false

				for _, t := range state.Transitions {
					if t.To != to {
						kept = append(kept, t)

						continue
					}

					if first {
						kept = append(kept, t)
						first = false
					} else {
						found = true
					}
				}

				if !found {
					return ErrDuplicateNotFound
				}

				config.States[i].Transitions = kept

				return nil
			}

			return fmt.Errorf("%w: '%s'", ErrStateNotFound, from)
		},
	}
}

// RemoveUnreachableState creates a fix that removes an unreachable state and
// every transition into it.
func RemoveUnreachableState(id string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", id),
		Apply: func(config *statemachine.Config) error {
			idx := slices.IndexFunc(config.States, func(s statemachine.StateConfig) bool {
				return s.ID == id
			})
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, id)
			}

			if !isActionState(config.States[idx]) {
				return fmt.Errorf("%w: '%s'", ErrSpecialState, id)
			}

			config.States = slices.Delete(config.States, idx, idx+1)

			for i, state := range config.States {
				config.States[i].Transitions = slices.DeleteFunc(state.Transitions, func(t statemachine.TransitionConfig) bool {
					return t.To == id
				})
			}

			return nil
		},
	}
}

// Fixes collects the fixes attached to errors and, when includeWarnings is
// set, to warnings. Fixes with the same description are returned once.
func (r ValidationResult) Fixes(includeWarnings bool) []*Fix {
	var fixes []*Fix

	seen := make(map[string]bool)

	add := func(fix *Fix) {
		if fix == nil || seen[fix.Description] {
			return
		}

		seen[fix.Description] = true

		fixes = append(fixes, fix)
	}

	for _, err := range r.Errors {
		add(err.Fix)
	}

	if includeWarnings {
		for _, warn := range r.Warnings {
			add(warn.Fix)
		}
	}

	return fixes
}

// ApplyFixes applies a list of fixes to a config.
func ApplyFixes(config *statemachine.Config, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			err := fix.Apply(config)
			if err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}
