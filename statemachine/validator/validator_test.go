//nolint:varnamelen // Test file
package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func when(kinds ...statemachine.PredicateKind) statemachine.ConditionConfig {
	terms := make([]statemachine.DisjunctionConfig, len(kinds))
	for i, kind := range kinds {
		terms[i] = statemachine.DisjunctionConfig{Or: []statemachine.PredicateConfig{{Predicate: kind}}}
	}

	return statemachine.ConditionConfig{And: terms}
}

func to(target string, cond statemachine.ConditionConfig) statemachine.TransitionConfig {
	return statemachine.TransitionConfig{To: target, Condition: cond}
}

// guardConfig is a valid guard: idle and patrol alternate, any state kills.
func guardConfig() *statemachine.Config {
	return &statemachine.Config{
		Name: "guard",
		States: []statemachine.StateConfig{
			{
				ID: "entry", Title: "Entry", Kind: "entry", Position: statemachine.PositionConfig{X: 250},
				Transitions: []statemachine.TransitionConfig{to("idle", statemachine.ConditionConfig{})},
			},
			{
				ID: "any", Title: "Any", Kind: "any", Position: statemachine.PositionConfig{X: 250, Y: 50},
				Transitions: []statemachine.TransitionConfig{to("dead", when(statemachine.PredicateDieEvent))},
			},
			{
				ID: "idle", Title: "Idle", Position: statemachine.PositionConfig{X: 100, Y: 150},
				OnEnter: []statemachine.ActionConfig{{Action: statemachine.ActionPlayAnimation, Parameters: []string{"Idle"}}},
				OnTick: []statemachine.ActionConfig{
					{Action: statemachine.ActionFreeLook},
					{Action: statemachine.ActionFreeLook},
				},
				Transitions: []statemachine.TransitionConfig{to("patrol", when(statemachine.PredicateCanPatrol))},
			},
			{
				ID: "patrol", Title: "Patrol", Position: statemachine.PositionConfig{X: 300, Y: 150},
				Transitions: []statemachine.TransitionConfig{to("idle", when(statemachine.PredicateAtWaypoint))},
			},
			{
				ID: "dead", Title: "Dead", Position: statemachine.PositionConfig{X: 200, Y: 300},
			},
		},
	}
}

func stateOf(c *statemachine.Config, id string) *statemachine.StateConfig {
	for i := range c.States {
		if c.States[i].ID == id {
			return &c.States[i]
		}
	}

	panic("no state " + id)
}

func removeState(c *statemachine.Config, id string) {
	for i := range c.States {
		if c.States[i].ID == id {
			c.States = append(c.States[:i], c.States[i+1:]...)

			return
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(c *statemachine.Config)
		wantValid bool
		wantCodes []string // Errors first, then warnings
	}{
		{
			name:      "valid guard",
			mutate:    func(*statemachine.Config) {},
			wantValid: true,
		},
		{
			name:      "missing entry state",
			mutate:    func(c *statemachine.Config) { removeState(c, "entry") },
			wantCodes: []string{"MISSING_ENTRY_STATE", "UNREACHABLE_STATE", "UNREACHABLE_STATE"},
		},
		{
			name:      "missing any state",
			mutate:    func(c *statemachine.Config) { removeState(c, "any") },
			wantCodes: []string{"MISSING_ANY_STATE", "UNREACHABLE_STATE"},
		},
		{
			name: "entry with two transitions",
			mutate: func(c *statemachine.Config) {
				entry := stateOf(c, "entry")
				entry.Transitions = append(entry.Transitions, to("patrol", statemachine.ConditionConfig{}))
			},
			wantCodes: []string{"ENTRY_TRANSITION_COUNT", "SHADOWED_TRANSITION"},
		},
		{
			name:      "entry without transition",
			mutate:    func(c *statemachine.Config) { stateOf(c, "entry").Transitions = nil },
			wantCodes: []string{"ENTRY_TRANSITION_COUNT", "UNREACHABLE_STATE", "UNREACHABLE_STATE"},
		},
		{
			name: "dangling transition",
			mutate: func(c *statemachine.Config) {
				idle := stateOf(c, "idle")
				idle.Transitions = append(idle.Transitions, to("ghost", when(statemachine.PredicatePlayerInChaseRange)))
			},
			wantCodes: []string{"DANGLING_TRANSITION"},
		},
		{
			name: "transition into the any state",
			mutate: func(c *statemachine.Config) {
				patrol := stateOf(c, "patrol")
				patrol.Transitions = append(patrol.Transitions, to("any", when(statemachine.PredicatePlayerInChaseRange)))
			},
			wantCodes: []string{"INVALID_TRANSITION_TARGET"},
		},
		{
			name: "duplicate transition",
			mutate: func(c *statemachine.Config) {
				idle := stateOf(c, "idle")
				idle.Transitions = append(idle.Transitions, to("patrol", when(statemachine.PredicateSuspicionFinished)))
			},
			wantCodes: []string{"DUPLICATE_TRANSITION"},
		},
		{
			name: "duplicate state",
			mutate: func(c *statemachine.Config) {
				c.States = append(c.States, statemachine.StateConfig{ID: "dead", Title: "Dead again", Position: statemachine.PositionConfig{X: 1}})
			},
			wantCodes: []string{"DUPLICATE_STATE"},
		},
		{
			name: "unknown state kind",
			mutate: func(c *statemachine.Config) {
				c.States = append(c.States, statemachine.StateConfig{ID: "done", Kind: "final", Position: statemachine.PositionConfig{X: 1}})
			},
			wantCodes: []string{"UNKNOWN_STATE_KIND"},
		},
		{
			name: "actions on the entry state",
			mutate: func(c *statemachine.Config) {
				stateOf(c, "entry").OnEnter = []statemachine.ActionConfig{{Action: statemachine.ActionFreeLook}}
			},
			wantCodes: []string{"ACTIONS_ON_SPECIAL_STATE"},
		},
		{
			name: "unreachable state is a warning",
			mutate: func(c *statemachine.Config) {
				c.States = append(c.States, statemachine.StateConfig{
					ID: "orphan", Title: "Orphan", Position: statemachine.PositionConfig{X: 400},
					Transitions: []statemachine.TransitionConfig{to("idle", statemachine.ConditionConfig{})},
				})
			},
			wantValid: true,
			wantCodes: []string{"UNREACHABLE_STATE"},
		},
		{
			name: "empty disjunction never fires",
			mutate: func(c *statemachine.Config) {
				stateOf(c, "idle").Transitions[0].Condition.And = append(
					stateOf(c, "idle").Transitions[0].Condition.And, statemachine.DisjunctionConfig{})
			},
			wantValid: true,
			wantCodes: []string{"EMPTY_DISJUNCTION"},
		},
		{
			name: "always-true transition shadows later ones",
			mutate: func(c *statemachine.Config) {
				stateOf(c, "idle").Transitions = []statemachine.TransitionConfig{
					to("patrol", statemachine.ConditionConfig{}),
					to("dead", when(statemachine.PredicateDieEvent)),
				}
			},
			wantValid: true,
			wantCodes: []string{"SHADOWED_TRANSITION"},
		},
		{
			name: "repeated condition shadows later transition",
			mutate: func(c *statemachine.Config) {
				stateOf(c, "idle").Transitions = []statemachine.TransitionConfig{
					to("patrol", when(statemachine.PredicateCanPatrol)),
					to("dead", when(statemachine.PredicateCanPatrol)),
				}
			},
			wantValid: true,
			wantCodes: []string{"SHADOWED_TRANSITION"},
		},
		{
			name:      "unnamed graph",
			mutate:    func(c *statemachine.Config) { c.Name = "" },
			wantValid: true,
			wantCodes: []string{"OTEL_GRAPH_NAMING"},
		},
		{
			name: "state ID with spaces",
			mutate: func(c *statemachine.Config) {
				c.States = append(c.States, statemachine.StateConfig{
					ID: "look around", Position: statemachine.PositionConfig{X: 2},
				})
				stateOf(c, "patrol").Transitions = append(stateOf(c, "patrol").Transitions,
					to("look around", when(statemachine.PredicateSuspicionFinished)))
			},
			wantValid: true,
			wantCodes: []string{"OTEL_STATE_NAMING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := guardConfig()
			tt.mutate(config)

			result := Validate(config)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantCodes, nonNil(result.Codes()), result.String())
		})
	}
}

func nonNil(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}

	return codes
}

func TestValidateStrict(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	config.States = append(config.States, statemachine.StateConfig{ID: "orphan", Title: "Orphan", Position: statemachine.PositionConfig{X: 1}})

	lenient := Validate(config)
	assert.True(t, lenient.Valid)
	assert.True(t, lenient.HasWarnings())

	strict := ValidateStrict(config)
	assert.False(t, strict.Valid)
	assert.False(t, strict.HasWarnings())
	require.Len(t, strict.Errors, 1)
	assert.Equal(t, "UNREACHABLE_STATE", strict.Errors[0].Code)
	assert.Equal(t, "orphan", strict.Errors[0].Location.State)
	assert.NotNil(t, strict.Errors[0].Fix)
}

func TestValidateGraph(t *testing.T) {
	t.Parallel()

	graph, err := statemachine.NewBuilder("built").
		State("idle", "Idle").
		State("chase", "Chase").
		Entry("idle").
		Transition("idle", "chase", statemachine.When(statemachine.Either(statemachine.Is(statemachine.PredicatePlayerInChaseRange)))).
		Build()
	require.NoError(t, err)

	result := ValidateGraph(graph)
	assert.True(t, result.Valid, result.String())
	assert.Empty(t, result.Errors)

	// An editor graph that was never finalized has no entry or any state.
	editor := statemachine.NewEditor(statemachine.NewGraph("draft"))
	_, err = editor.CreateState(statemachine.KindAction, statemachine.Position{})
	require.NoError(t, err)

	result = ValidateGraph(editor.Graph())
	assert.False(t, result.Valid)
	assert.Contains(t, result.Codes(), "MISSING_ENTRY_STATE")
	assert.Contains(t, result.Codes(), "MISSING_ANY_STATE")
}

func TestShadowedTransitionRulePolicy(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	stateOf(config, "idle").Transitions = []statemachine.TransitionConfig{
		to("patrol", statemachine.ConditionConfig{}),
		to("dead", when(statemachine.PredicateDieEvent)),
	}

	assert.Len(t, NewShadowedTransitionRule(statemachine.FirstMatch).Check(config).Warnings, 1)
	assert.Empty(t, NewShadowedTransitionRule(statemachine.EveryMatch).Check(config).Warnings)
}

func TestVocabularyRule(t *testing.T) {
	t.Parallel()

	rule := NewVocabularyRule(
		[]statemachine.PredicateKind{statemachine.PredicateCanPatrol},
		[]statemachine.ActionKind{statemachine.ActionPlayAnimation},
	)

	result := rule.Check(guardConfig())

	codes := make([]string, len(result.Warnings))
	states := make([]string, len(result.Warnings))

	for i, warn := range result.Warnings {
		codes[i] = warn.Code
		states[i] = warn.Location.State
	}

	assert.Equal(t, []string{"UNHANDLED_PREDICATE", "UNHANDLED_ACTION", "UNHANDLED_PREDICATE"}, codes)
	assert.Equal(t, []string{"any", "idle", "patrol"}, states)
	assert.Contains(t, result.Warnings[0].Message, "DieEvent")
	assert.Contains(t, result.Warnings[1].Message, "FreeLook")

	assert.Empty(t, NewVocabularyRule(nil, nil).Check(guardConfig()).Warnings)
}

func TestReachable(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	config.States = append(config.States, statemachine.StateConfig{ID: "orphan"})

	reachable := Reachable(config)

	for _, id := range []string{"entry", "any", "idle", "patrol", "dead"} {
		assert.True(t, reachable[id], id)
	}

	assert.False(t, reachable["orphan"])
}

func TestApplyFixes(t *testing.T) {
	t.Parallel()

	config := &statemachine.Config{
		Name: "broken",
		States: []statemachine.StateConfig{
			{
				ID: "idle", Title: "Idle", Position: statemachine.PositionConfig{X: 100},
				Transitions: []statemachine.TransitionConfig{
					to("patrol", when(statemachine.PredicateCanPatrol)),
					to("ghost", when(statemachine.PredicatePlayerInChaseRange)),
				},
			},
			{
				ID: "patrol", Title: "Patrol", Position: statemachine.PositionConfig{X: 200},
				Transitions: []statemachine.TransitionConfig{to("idle", when(statemachine.PredicateAtWaypoint))},
			},
		},
	}

	result := Validate(config)
	require.False(t, result.Valid)
	assert.Equal(t, []string{"MISSING_ENTRY_STATE", "MISSING_ANY_STATE", "DANGLING_TRANSITION"}, result.Codes()[:3])

	fixes := result.Fixes(false)
	require.Len(t, fixes, 2, "the entry and any fix is shared")

	require.NoError(t, ApplyFixes(config, fixes))

	fixed := Validate(config)
	assert.True(t, fixed.Valid, fixed.String())
	assert.Empty(t, fixed.Warnings)

	entry := stateOf(config, statemachine.EntryStateID)
	assert.Equal(t, "entry", entry.Kind)
	require.Len(t, entry.Transitions, 1)
	assert.Equal(t, "idle", entry.Transitions[0].To)
	assert.Equal(t, "any", stateOf(config, statemachine.AnyStateID).Kind)
	assert.Len(t, stateOf(config, "idle").Transitions, 1)

	_, err := config.Graph()
	require.NoError(t, err)
}

func TestApplyWarningFixes(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	config.States = append(config.States,
		statemachine.StateConfig{
			ID: "orphan", Title: "Orphan", Position: statemachine.PositionConfig{X: 1},
			Transitions: []statemachine.TransitionConfig{to("idle", statemachine.ConditionConfig{})},
		},
		statemachine.StateConfig{
			ID: "stray", Title: "Stray", Position: statemachine.PositionConfig{X: 2},
			Transitions: []statemachine.TransitionConfig{to("orphan", statemachine.ConditionConfig{})},
		},
	)

	result := Validate(config)
	require.True(t, result.Valid)
	assert.Empty(t, result.Fixes(false))

	require.NoError(t, ApplyFixes(config, result.Fixes(true)))
	assert.Len(t, config.States, 5)
	assert.Empty(t, Validate(config).Warnings)
}

func TestFixErrors(t *testing.T) {
	t.Parallel()

	config := guardConfig()

	require.ErrorIs(t, RemoveUnreachableState("entry").Apply(config), ErrSpecialState)
	require.ErrorIs(t, RemoveUnreachableState("ghost").Apply(config), ErrStateNotFound)
	require.ErrorIs(t, RemoveDanglingTransition("idle", "ghost").Apply(config), ErrTransitionNotFound)
	require.ErrorIs(t, RemoveDuplicateTransition("idle", "patrol").Apply(config), ErrDuplicateNotFound)

	err := ApplyFixes(config, []*Fix{RemoveInvalidTransition("patrol", "any")})
	require.ErrorIs(t, err, ErrTransitionNotFound)
	assert.Contains(t, err.Error(), "non-action state")
}

func TestRemoveDuplicateTransition(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	idle := stateOf(config, "idle")
	idle.Transitions = append(idle.Transitions,
		to("patrol", when(statemachine.PredicateSuspicionFinished)),
		to("dead", statemachine.ConditionConfig{}))

	require.NoError(t, RemoveDuplicateTransition("idle", "patrol").Apply(config))
	require.Len(t, idle.Transitions, 2)
	assert.Equal(t, statemachine.PredicateCanPatrol, idle.Transitions[0].Condition.And[0].Or[0].Predicate)
	assert.Equal(t, "dead", idle.Transitions[1].To)
}

func TestEnsureEntryAndAnyAvoidsTakenIDs(t *testing.T) {
	t.Parallel()

	config := &statemachine.Config{
		Name:   "taken",
		States: []statemachine.StateConfig{{ID: "entry", Title: "Not the entry"}},
	}

	require.NoError(t, EnsureEntryAndAny().Apply(config))
	require.Len(t, config.States, 3)
	assert.NotEqual(t, "entry", config.States[1].ID)
	assert.Equal(t, "entry", config.States[1].Kind)
	assert.Equal(t, "entry", config.States[1].Transitions[0].To)
	assert.Equal(t, "any", config.States[2].ID)
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	config := guardConfig()
	idle := stateOf(config, "idle")
	idle.Transitions = append(idle.Transitions, to("ghost", when(statemachine.PredicatePlayerInChaseRange)))

	data, err := statemachine.MarshalConfig(config)
	require.NoError(t, err)

	path := filepath.Join(dir, "guard.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	result, err := ValidateFile(path)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "DANGLING_TRANSITION", result.Errors[0].Code)
	assert.Equal(t, Location{File: path, State: "idle", Target: "ghost"}, result.Errors[0].Location)

	_, err = ValidateFileStrict(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

// TestValidationMetrics checks the per-code issue counter.
//
//nolint:paralleltest // Test resets global Prometheus metric state
func TestValidationMetrics(t *testing.T) {
	validationIssuesTotal.Reset()

	config := guardConfig()
	stateOf(config, "idle").Transitions = append(stateOf(config, "idle").Transitions,
		to("ghost", statemachine.ConditionConfig{}))

	Validate(config)
	Validate(config)

	assert.InDelta(t, 2, testutil.ToFloat64(validationIssuesTotal.WithLabelValues("DANGLING_TRANSITION")), 0)
}

type namedRule struct{}

func (namedRule) Name() string       { return "Named" }
func (namedRule) Severity() Severity { return SeverityInfo }

func (namedRule) Check(config *statemachine.Config) RuleResult {
	if config.Name != "registered" {
		return RuleResult{}
	}

	return RuleResult{Warnings: []ValidationWarning{{Code: "CUSTOM", Message: "custom rule ran"}}}
}

//nolint:paralleltest // Test modifies the global rule registry
func TestRegisterRule(t *testing.T) {
	t.Cleanup(func() {
		registeredMu.Lock()
		defer registeredMu.Unlock()

		registeredRules = nil
	})

	RegisterRule(namedRule{})
	require.Len(t, RegisteredRules(), 1)
	assert.Len(t, AllRules(), len(DefaultRules())+1)

	config := guardConfig()
	config.Name = "registered"

	assert.Equal(t, []string{"CUSTOM"}, Validate(config).Codes())
}

func TestValidationResultString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result ValidationResult
		want   []string
	}{
		{
			name:   "valid result",
			result: ValidationResult{Valid: true},
			want:   []string{"✓ Configuration is valid"},
		},
		{
			name: "result with errors and warnings",
			result: ValidationResult{
				Valid: false,
				Errors: []ValidationError{
					{
						Code:     "DANGLING_TRANSITION",
						Message:  "Transition from 'idle' targets missing state 'ghost'",
						Location: Location{State: "idle"},
						Fix:      RemoveDanglingTransition("idle", "ghost"),
					},
				},
				Warnings:    []ValidationWarning{{Code: "UNREACHABLE_STATE", Message: "orphan"}},
				Suggestions: []Suggestion{{Message: "titles"}},
			},
			want: []string{
				"✗ Configuration has 1 error(s)",
				"[DANGLING_TRANSITION] Transition from 'idle' targets missing state 'ghost' (state: idle)",
				"Fix: Remove transition from 'idle' to missing state 'ghost'",
				"1 warning(s)",
				"1 suggestion(s)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := tt.result.String()
			for _, want := range tt.want {
				assert.Contains(t, result, want)
			}
		})
	}
}

func TestSuggestions(t *testing.T) {
	t.Parallel()

	config := guardConfig()
	assert.Empty(t, Validate(config).Suggestions)

	stateOf(config, "idle").Title = ""
	stateOf(config, "patrol").Position = statemachine.PositionConfig{}
	stateOf(config, "dead").Position = statemachine.PositionConfig{}
	stateOf(config, "any").Transitions = nil

	assert.Len(t, Validate(config).Suggestions, 3)
}
