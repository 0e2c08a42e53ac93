package validator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rainbowassets/gamefsm/statemachine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxLabelLength bounds state IDs used as span attributes and metric labels.
const maxLabelLength = 64

var validationIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "fsm_validation_issues_total",
	Help: "Total number of validation errors and warnings by code",
}, []string{"code"})

// ValidateOTELInstrumentation checks that a graph produces usable span
// attributes and metric labels. The controller labels every span and counter
// with the graph name and state IDs, so blank or unwieldy values make traces
// hard to read and can blow up label cardinality.
func ValidateOTELInstrumentation(config *statemachine.Config) []ValidationWarning {
	var warnings []ValidationWarning

	if config == nil {
		return []ValidationWarning{{
			Code:    "OTEL_CONFIG_EXISTS",
			Message: "config is nil - cannot validate OTEL instrumentation",
		}}
	}

	if strings.TrimSpace(config.Name) == "" {
		warnings = append(warnings, ValidationWarning{
			Code:    "OTEL_GRAPH_NAMING",
			Message: "graph has no name - span attribute 'graph' and metric label 'graph' will read 'unnamed'",
		})
	}

	for _, state := range config.States {
		if state.ID == "" {
			continue
		}

		if len(state.ID) > maxLabelLength || strings.IndexFunc(state.ID, notLabelRune) >= 0 {
			warnings = append(warnings, ValidationWarning{
				Code:     "OTEL_STATE_NAMING",
				Message:  fmt.Sprintf("state ID %q is long or contains spaces or control characters - span attributes 'from' and 'to' will be hard to read", state.ID),
				Location: Location{State: state.ID},
			})
		}
	}

	return warnings
}

func notLabelRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// telemetryNamingRule runs ValidateOTELInstrumentation as a rule.
type telemetryNamingRule struct{}

func (r *telemetryNamingRule) Name() string {
	return "TelemetryNaming"
}

func (r *telemetryNamingRule) Severity() Severity {
	return SeverityWarning
}

func (r *telemetryNamingRule) Check(config *statemachine.Config) RuleResult {
	return RuleResult{Warnings: ValidateOTELInstrumentation(config)}
}

// recordValidation emits a span and counts every issue by code.
func recordValidation(ctx context.Context, config *statemachine.Config, result ValidationResult) {
	_, span := otel.Tracer("statemachine/validator").Start(ctx, "fsm.validate")
	defer span.End()

	span.SetAttributes(
		attribute.String("graph", config.Name),
		attribute.Int("states", len(config.States)),
		attribute.Bool("valid", result.Valid),
		attribute.Int("errors", len(result.Errors)),
		attribute.Int("warnings", len(result.Warnings)),
	)

	for _, code := range result.Codes() {
		validationIssuesTotal.WithLabelValues(code).Inc()
	}

	if !result.Valid {
		slog.DebugContext(ctx, "Graph failed validation",
			"graph", config.Name,
			"codes", result.Codes())
	}
}
