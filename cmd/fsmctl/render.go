package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/statemachine/visualizer"
)

func (a *app) render(_ context.Context, args []string) error {
	defaults := visualizer.DefaultOptions()

	fs := a.flags("render")
	format := fs.String("format", "mermaid", "output format: mermaid or dot")
	direction := fs.String("direction", defaults.Direction, "layout direction: TD, LR, BT or RL")
	theme := fs.String("theme", defaults.Theme, "colour theme: default, dark or forest")
	highlight := fs.String("highlight", "", "comma separated state IDs to highlight")
	noActions := fs.Bool("no-actions", false, "hide state actions")
	noConditions := fs.Bool("no-conditions", false, "hide transition conditions")
	output := fs.String("o", "", "write to this file instead of stdout")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var file string

	switch fs.NArg() {
	case 0:
		picked, err := a.pick(".")
		if err != nil {
			return script.ExitWithError(err)
		}

		file = picked
	case 1:
		file = fs.Arg(0)
	default:
		return script.ExitWithErrorMessage("%v: render takes one graph", errUsage)
	}

	graph, err := statemachine.LoadGraph(file)
	if err != nil {
		return script.ExitWithError(err)
	}

	opts := defaults.
		WithDirection(*direction).
		WithTheme(*theme).
		WithShowActions(!*noActions).
		WithShowConditions(!*noConditions)

	if *highlight != "" {
		opts = opts.WithHighlightPath(strings.Split(*highlight, ","))
	}

	var diagram string

	switch *format {
	case "mermaid":
		diagram, err = visualizer.GenerateMermaidWithOptions(graph, opts)
	case "dot":
		diagram, err = visualizer.GenerateDOT(graph, opts)
	default:
		return script.ExitWithErrorMessage("%v: unknown format %q", errUsage, *format)
	}

	if err != nil {
		return script.ExitWithError(err)
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(diagram), 0o600)
	}

	_, err = fmt.Fprint(a.out, diagram)

	return err
}
