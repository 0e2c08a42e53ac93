// Package visualizer generates Mermaid and Graphviz diagrams from graphs.
//
//nolint:varnamelen // Short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// Visualizer errors.
var (
	ErrGraphNil         = errors.New("graph cannot be nil")
	ErrNoEntryState     = errors.New("graph must have an entry state")
	ErrInvalidDirection = errors.New("direction must be TD, LR, BT or RL")
)

// GenerateMermaid converts a graph to a Mermaid state diagram.
func GenerateMermaid(g *statemachine.Graph) (string, error) {
	return GenerateMermaidWithOptions(g, DefaultOptions())
}

// GenerateMermaidFromFile loads a graph from an asset file and generates a
// Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	g, err := statemachine.LoadGraph(path)
	if err != nil {
		return "", fmt.Errorf("failed to load graph: %w", err)
	}

	return GenerateMermaid(g)
}

func checkGraph(g *statemachine.Graph, opts Options) error {
	if g == nil {
		return ErrGraphNil
	}

	if g.EntryState() == nil {
		return ErrNoEntryState
	}

	switch opts.Direction {
	case "TD", "LR", "BT", "RL":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDirection, opts.Direction)
	}
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
// The entry state is drawn as the start marker and the any state as a regular
// node whose edges apply from every state.
func GenerateMermaidWithOptions(g *statemachine.Graph, opts Options) (string, error) {
	if err := checkGraph(g, opts); err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)

	if target, err := g.EntryState().EntryTarget(); err == nil {
		fmt.Fprintf(&sb, "    [*] --> %s\n", mermaidID(target))
	}

	highlight := opts.highlighted()

	for _, state := range g.GetStates() {
		if state.Kind() == statemachine.KindEntry {
			continue
		}

		id := mermaidID(state.ID())

		fmt.Fprintf(&sb, "    state \"%s\" as %s\n", mermaidText(state.Title), id)

		if opts.ShowActions && state.Actions() != nil {
			for _, phase := range []statemachine.Phase{statemachine.PhaseEnter, statemachine.PhaseTick, statemachine.PhaseExit} {
				if actions := state.Actions().For(phase); len(actions) > 0 {
					fmt.Fprintf(&sb, "    %s : %s %s\n", id, phase, mermaidText(joinActions(actions)))
				}
			}
		}

		switch {
		case highlight[state.ID()]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case state.Kind() == statemachine.KindAny:
			fmt.Fprintf(&sb, "    class %s anyState\n", id)
		default:
			fmt.Fprintf(&sb, "    class %s actionState\n", id)
		}

		for _, transition := range state.Transitions() {
			label := ""
			if opts.ShowConditions && !transition.Condition.IsAlways() {
				label = " : " + mermaidText(transition.Condition.String())
			}

			fmt.Fprintf(&sb, "    %s --> %s%s\n", id, mermaidID(transition.Target()), label)
		}
	}

	p := opts.palette()

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    classDef actionState fill:%s,stroke:%s,stroke-width:2px\n", p.actionFill, p.actionStroke)
	fmt.Fprintf(&sb, "    classDef anyState fill:%s,stroke:%s,stroke-width:2px,stroke-dasharray:5 5\n", p.anyFill, p.anyStroke)
	fmt.Fprintf(&sb, "    classDef highlighted fill:%s,stroke:%s,stroke-width:3px\n", p.highlightFill, p.highlightStroke)

	sb.WriteString("```\n")

	return sb.String(), nil
}

func joinActions(actions []statemachine.Action) string {
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = action.String()
	}

	return strings.Join(names, ", ")
}

// mermaidID maps a state ID to a Mermaid identifier. Editor IDs are UUIDs,
// whose dashes Mermaid does not accept.
func mermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return '_'
	}, id)
}

// mermaidText strips characters that end a Mermaid statement early.
func mermaidText(s string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ", ";", ",", "#", "").Replace(s)
}
