package validator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rainbowassets/gamefsm/statemachine"
	"gopkg.in/yaml.v3"
)

// ValidationResult contains the results of validating a graph configuration.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with fix suggestions.
type ValidationError struct {
	Code     string   // Error code like "DANGLING_TRANSITION", "MISSING_ENTRY_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue. Warnings describe graphs
// that run but probably do not behave the way their author intended.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // YAML example showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File   string // Asset path, empty when validating in memory
	State  string // State ID if applicable
	Target string // Transition target if the issue is about a transition
}

// Validate performs comprehensive validation on a graph configuration using
// the default rules and every registered rule.
func Validate(config *statemachine.Config) ValidationResult {
	return ValidateWithRules(config, AllRules())
}

// ValidateStrict validates with the default and registered rules and treats
// warnings as errors.
func ValidateStrict(config *statemachine.Config) ValidationResult {
	return ValidateWithRulesStrict(config, AllRules())
}

// ValidateGraph validates an in-memory graph through its persisted form.
func ValidateGraph(g *statemachine.Graph) ValidationResult {
	return Validate(statemachine.NewConfig(g))
}

// ValidateFile loads an asset from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads an asset from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads an asset from a file and validates it with
// options. The asset is decoded but not checked by the loader, so structural
// problems show up as validation errors instead of a load failure.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	config, err := ReadConfig(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "CONFIG_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load config: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateStrict(config)
	} else {
		result = Validate(config)
	}

	// Set file location for all errors and warnings
	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ReadConfig reads and decodes an asset without the structural checks that
// statemachine.LoadConfig applies.
func ReadConfig(path string) (*statemachine.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	data, err = statemachine.DecodeAsset(path, data)
	if err != nil {
		return nil, err
	}

	var config statemachine.Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(config *statemachine.Config, rules []Rule) ValidationResult {
	var result ValidationResult

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	result.Suggestions = generateSuggestions(config)

	recordValidation(context.Background(), config, result)

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(config *statemachine.Config, rules []Rule) ValidationResult {
	result := ValidateWithRules(config, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// generateSuggestions provides general improvement suggestions.
func generateSuggestions(config *statemachine.Config) []Suggestion {
	var suggestions []Suggestion

	untitled := false
	stacked := 0

	for _, state := range config.States {
		if isActionState(state) && state.Title == "" {
			untitled = true
		}

		if state.Position == (statemachine.PositionConfig{}) {
			stacked++
		}
	}

	if untitled {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider giving action states a title so they read well in the editor and in traces",
			Example: `states:
  - id: patrol
    title: Patrol  # Shown on the node instead of the ID`,
		})
	}

	if stacked > 1 {
		suggestions = append(suggestions, Suggestion{
			Message: "Several states share the origin position; lay them out so the editor shows them apart",
			Example: `states:
  - id: patrol
    position: {x: 300, y: 150}`,
		})
	}

	if anyState := findAny(config); anyState != nil && len(anyState.Transitions) == 0 && len(config.States) > 3 {
		suggestions = append(suggestions, Suggestion{
			Message: "The any state has no transitions; global reactions such as death or stun belong there",
			Example: `states:
  - id: any
    kind: any
    transitions:
      - to: dead
        condition:
          and:
            - or: [{predicate: DieEvent}]`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Codes returns the codes of every error and warning, errors first.
func (r ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors)+len(r.Warnings))

	for _, err := range r.Errors {
		codes = append(codes, err.Code)
	}

	for _, warn := range r.Warnings {
		codes = append(codes, warn.Code)
	}

	return codes
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var msg strings.Builder

	if r.Valid {
		msg.WriteString("✓ Configuration is valid\n")
	} else {
		fmt.Fprintf(&msg, "✗ Configuration has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			fmt.Fprintf(&msg, "  [%s] %s", err.Code, err.Message)

			if err.Location.State != "" {
				fmt.Fprintf(&msg, " (state: %s)", err.Location.State)
			}

			msg.WriteString("\n")

			if err.Fix != nil {
				fmt.Fprintf(&msg, "    Fix: %s\n", err.Fix.Description)
			}
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&msg, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&msg, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&msg, "\n%d suggestion(s) for improvement\n", len(r.Suggestions))
	}

	return msg.String()
}
