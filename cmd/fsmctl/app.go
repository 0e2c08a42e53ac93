package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rainbowassets/gamefsm/cli"
	"github.com/rainbowassets/gamefsm/demo"
	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/telemetry"
)

var (
	errUsage          = errors.New("usage")
	errUnknownCommand = errors.New("unknown command")
)

const usage = `usage: fsmctl <command> [flags] [args]

commands:
  validate   check graph assets, optionally fixing them
  render     print a Mermaid or Graphviz diagram of a graph
  simulate   tick a graph with scripted or stubbed collaborators
  list       list the graph assets of a directory
  watch      validate and hot reload graph assets as they change
`

type command func(a *app, ctx context.Context, args []string) error

var commands = map[string]command{ //nolint:gochecknoglobals
	"validate": (*app).validate,
	"render":   (*app).render,
	"simulate": (*app).simulate,
	"list":     (*app).list,
	"watch":    (*app).watch,
}

type app struct {
	out        io.Writer
	onShutdown func(hook func(ctx context.Context) error)

	interactive func() bool
	confirm     func(label string) (bool, error)
	choose      func(label string, choices ...string) (string, error)
}

func newApp(out io.Writer, onShutdown func(hook func(ctx context.Context) error)) *app {
	return &app{
		out:         out,
		onShutdown:  onShutdown,
		interactive: cli.Interactive,
		confirm:     cli.PromptConfirm,
		choose:      cli.Select,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(a.out, usage)

		if len(args) == 0 {
			return script.Exit(2)
		}

		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(a.out, usage)

		return script.ExitWithError(fmt.Errorf("%w %q", errUnknownCommand, args[0]))
	}

	if err := a.setupTelemetry(ctx); err != nil {
		return err
	}

	statemachine.SetConfigLoader(demo.Loader())

	return cmd(a, logger.WithSubsystem(ctx, "fsmctl."+args[0]), args[1:])
}

// setupTelemetry starts OTLP export when OTEL_ENABLED is set and routes the
// log output through it when OTEL_LOGS_ENABLED is set too.
func (a *app) setupTelemetry(ctx context.Context) error {
	env := envutil.String(ctx, "FSM_ENV", envutil.Default("local")).ValueOrElse("local")

	cfg, err := telemetry.LoadConfigFromEnv(ctx, env)
	if err != nil {
		return err
	}

	if !cfg.Enabled {
		return nil
	}

	if err := telemetry.Initialize(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a.onShutdown(telemetry.Shutdown)

	if handler := telemetry.LogHandler(); handler != nil {
		logger.ConfigureLogging(ctx, "fsmctl", logger.WithExport(handler))
	}

	return nil
}

// flags returns a flag set that reports problems on the app's output.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)

	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, flag.ErrHelp):
		return script.Exit(0)
	default:
		return script.Exit(2)
	}
}

// pick asks for a graph asset in dir when the terminal is interactive.
func (a *app) pick(dir string) (string, error) {
	if !a.interactive() {
		return "", fmt.Errorf("%w: no graph file given", errUsage)
	}

	files, err := statemachine.NewDirLoader(os.DirFS(dir), ".").Files()
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return "", fmt.Errorf("%w: no graph assets in %s", errUsage, dir)
	}

	choice, err := a.choose("Graph", files...)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, choice), nil
}

// parseSet reads "CanPatrol=true,DieEvent=false". A bare name means true.
func parseSet(list string) (map[statemachine.PredicateKind]bool, error) {
	answers := make(map[statemachine.PredicateKind]bool)

	for item := range strings.SplitSeq(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, raw, found := strings.Cut(item, "=")

		value := true

		if found {
			parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: bad value for %s: %w", errUsage, name, err)
			}

			value = parsed
		}

		kind, err := statemachine.ParsePredicateKind(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}

		answers[kind] = value
	}

	return answers, nil
}

// stubEvaluator answers predicates from answers. With closed set, it answers
// false for every other predicate, so nothing passes unless asked to.
func stubEvaluator(answers map[statemachine.PredicateKind]bool, closed bool) statemachine.PredicateEvaluator {
	return statemachine.EvaluatorFunc(func(kind statemachine.PredicateKind, _ []string) (bool, bool) {
		if value, ok := answers[kind]; ok {
			return value, true
		}

		return false, closed
	})
}

func sortedKinds(answers map[statemachine.PredicateKind]bool) []string {
	names := make([]string, 0, len(answers))
	for kind, value := range answers {
		names = append(names, kind.String()+"="+strconv.FormatBool(value))
	}

	slices.Sort(names)

	return names
}
