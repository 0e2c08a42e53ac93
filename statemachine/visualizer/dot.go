package visualizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rainbowassets/gamefsm/statemachine"
)

// GenerateDOT converts a graph to a Graphviz digraph. Transitions of the any
// state are dashed.
func GenerateDOT(g *statemachine.Graph, opts Options) (string, error) {
	if err := checkGraph(g, opts); err != nil {
		return "", err
	}

	p := opts.palette()
	highlight := opts.highlighted()

	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %s {\n", strconv.Quote(g.Name))
	fmt.Fprintf(&sb, "    rankdir=%s;\n", rankdir(opts.Direction))
	fmt.Fprintf(&sb, "    node [shape=box, style=\"rounded,filled\", fillcolor=%q, color=%q];\n", p.actionFill, p.actionStroke)
	fmt.Fprintf(&sb, "    edge [color=%q];\n", p.edge)

	for _, state := range g.GetStates() {
		id := strconv.Quote(state.ID())

		var attrs []string

		switch state.Kind() {
		case statemachine.KindEntry:
			attrs = append(attrs, "shape=circle", `label="Entry"`)
		case statemachine.KindAny:
			attrs = append(attrs, "shape=diamond",
				fmt.Sprintf("fillcolor=%q", p.anyFill), fmt.Sprintf("color=%q", p.anyStroke),
				"label="+strconv.Quote(state.Title))
		case statemachine.KindAction:
			attrs = append(attrs, "label="+strconv.Quote(dotLabel(state, opts)))
		}

		if highlight[state.ID()] {
			attrs = append(attrs,
				fmt.Sprintf("fillcolor=%q", p.highlightFill),
				fmt.Sprintf("color=%q", p.highlightStroke),
				"penwidth=3")
		}

		fmt.Fprintf(&sb, "    %s [%s];\n", id, strings.Join(attrs, ", "))
	}

	for _, state := range g.GetStates() {
		for _, transition := range state.Transitions() {
			var attrs []string

			if opts.ShowConditions && !transition.Condition.IsAlways() {
				attrs = append(attrs, "label="+strconv.Quote(transition.Condition.String()))
			}

			if state.Kind() == statemachine.KindAny {
				attrs = append(attrs, "style=dashed")
			}

			if highlight[state.ID()] && highlight[transition.Target()] {
				attrs = append(attrs, "penwidth=2")
			}

			fmt.Fprintf(&sb, "    %s -> %s", strconv.Quote(state.ID()), strconv.Quote(transition.Target()))

			if len(attrs) > 0 {
				fmt.Fprintf(&sb, " [%s]", strings.Join(attrs, ", "))
			}

			sb.WriteString(";\n")
		}
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

// dotLabel is the title followed by one line per non-empty action phase.
func dotLabel(state *statemachine.State, opts Options) string {
	lines := []string{state.Title}

	if opts.ShowActions && state.Actions() != nil {
		for _, phase := range []statemachine.Phase{statemachine.PhaseEnter, statemachine.PhaseTick, statemachine.PhaseExit} {
			if actions := state.Actions().For(phase); len(actions) > 0 {
				lines = append(lines, string(phase)+": "+joinActions(actions))
			}
		}
	}

	return strings.Join(lines, "\n")
}

func rankdir(direction string) string {
	if direction == "TD" {
		return "TB"
	}

	return direction
}
