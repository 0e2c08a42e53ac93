package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"facette.io/natsort"
	"github.com/rainbowassets/gamefsm/cli"
	"github.com/rainbowassets/gamefsm/demo"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/scripted"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/world"
)

const (
	defaultSimulationTicks = 10
	defaultSimulationStep  = 100 * time.Millisecond
)

func (a *app) simulate(ctx context.Context, args []string) error {
	fs := a.flags("simulate")
	ticks := fs.Int("ticks", defaultSimulationTicks, "number of ticks to run")
	dt := fs.Duration("dt", defaultSimulationStep, "simulated time per tick")
	seed := fs.Uint64("seed", 0, "seed for random action choices; 0 always picks the first option")
	set := fs.String("set", "", "predicate answers, e.g. CanPatrol=true,DieEvent=false")
	scriptPath := fs.String("script", "", "tengo script acting as performer and evaluator")
	demoMode := fs.Bool("demo", false, "run the bundled guard against the bundled player")
	tickActions := fs.Bool("tick-actions", false, "also trace actions dispatched every tick")
	verbose := fs.Bool("v", false, "log state changes")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *ticks < 0 || *dt <= 0 {
		return script.ExitWithErrorMessage("%v: -ticks must not be negative and -dt must be positive", errUsage)
	}

	trace := &tracer{out: a.out, tickActions: *tickActions, pending: map[string][]string{}}

	opts := []statemachine.Option{statemachine.WithHook(trace.hook)}

	if *seed != 0 {
		opts = append(opts, statemachine.WithRandSeed(*seed))
	} else {
		opts = append(opts, statemachine.WithChooser(statemachine.FirstChooser{}))
	}

	if !*verbose {
		opts = append(opts, statemachine.WithLogger(statemachine.NopLogger{}))
	}

	w, err := world.New(ctx, world.WithName("simulate"), world.WithControllerOptions(opts...))
	if err != nil {
		return script.ExitWithError(err)
	}

	defer func() {
		trace.mute()

		if err := w.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Get(ctx).Warn("Failed to close world", "error", err)
		}
	}()

	if *demoMode {
		err = spawnDemo(ctx, w)
	} else {
		err = a.spawnSandbox(ctx, w, fs.Args(), *set, *scriptPath)
	}

	if err != nil {
		return script.ExitWithError(err)
	}

	for tick := 1; tick <= *ticks; tick++ {
		if ctx.Err() != nil {
			break
		}

		trace.setTick(tick)

		if err := w.Step(ctx, *dt); err != nil {
			return script.ExitWithError(fmt.Errorf("tick %d: %w", tick, err))
		}
	}

	trace.flush()

	states := w.States()

	lines := make([]string, 0, len(states)+1)
	lines = append(lines, fmt.Sprintf("after %d tick(s) of %s", *ticks, *dt))

	for _, id := range w.Agents() {
		lines = append(lines, fmt.Sprintf("%s: %s", id, states[id]))
	}

	fmt.Fprint(a.out, cli.Banner(ctx, strings.Join(lines, "\n"), cli.AlignLeft))

	return nil
}

// spawnSandbox runs one agent on a graph whose predicates are answered by
// -set and, optionally, a script. Without a script, predicates missing from
// -set are false.
func (a *app) spawnSandbox(ctx context.Context, w *world.World, args []string, set, scriptPath string) error {
	var file string

	switch len(args) {
	case 0:
		picked, err := a.pick(".")
		if err != nil {
			return err
		}

		file = picked
	case 1:
		file = args[0]
	default:
		return fmt.Errorf("%w: simulate takes one graph", errUsage)
	}

	graph, err := statemachine.LoadGraph(file)
	if err != nil {
		return err
	}

	answers, err := parseSet(set)
	if err != nil {
		return err
	}

	collaborators := []any{stubEvaluator(answers, scriptPath == "")}

	if scriptPath != "" {
		collaborator, err := scripted.Load(scriptPath)
		if err != nil {
			return err
		}

		collaborators = append(collaborators, collaborator)
	}

	if len(answers) > 0 {
		fmt.Fprintf(a.out, "answers: %s\n", strings.Join(sortedKinds(answers), ", "))
	}

	return w.Spawn(ctx, graph.Name, graph, collaborators...)
}

// spawnDemo places the sample player walking towards a patrolling guard.
func spawnDemo(ctx context.Context, w *world.World) error {
	playerGraph, err := demo.LoadGraph("player")
	if err != nil {
		return err
	}

	guardGraph, err := demo.LoadGraph("guard")
	if err != nil {
		return err
	}

	log := logger.Get(ctx)

	player := demo.NewPlayer(demo.Vec3{}, log)
	player.Input.SetAxis(1, 0)

	guard := demo.NewGuard([]demo.Vec3{{X: 20}, {X: 20, Z: 20}}, player, log)

	if err := w.Spawn(ctx, "player", playerGraph, player.Collaborators()...); err != nil {
		return err
	}

	return w.Spawn(ctx, "guard", guardGraph, guard.Collaborators()...)
}

// tracer prints hook events. Agents tick concurrently, so lines are held per
// agent and written in agent order once the tick is over.
type tracer struct {
	mu          sync.Mutex
	out         io.Writer
	tick        int
	muted       bool
	tickActions bool
	pending     map[string][]string
}

// setTick writes the lines of the previous tick and starts numbering the
// next one.
func (t *tracer) setTick(tick int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushLocked()
	t.tick = tick
}

func (t *tracer) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushLocked()
}

func (t *tracer) flushLocked() {
	agents := slices.Collect(maps.Keys(t.pending))
	natsort.Sort(agents)

	for _, agent := range agents {
		for _, line := range t.pending[agent] {
			fmt.Fprint(t.out, line)
		}
	}

	clear(t.pending)
}

func (t *tracer) mute() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.muted = true
}

func (t *tracer) hook(_ context.Context, event statemachine.HookEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.muted {
		return
	}

	switch event.Kind {
	case statemachine.HookDispatch:
		if len(event.Actions) == 0 || (event.Phase == statemachine.PhaseTick && !t.tickActions) {
			return
		}

		names := make([]string, len(event.Actions))
		for i, action := range event.Actions {
			names[i] = action.String()
		}

		t.line(event.AgentID, fmt.Sprintf("  %s %s: %s", event.Phase, event.State.ID(), strings.Join(names, ", ")))
	case statemachine.HookTransition:
		from := "start"
		if event.From != nil {
			from = event.From.ID()
		}

		t.line(event.AgentID, from+" -> "+event.State.ID())
	default:
	}
}

func (t *tracer) line(agent, text string) {
	t.pending[agent] = append(t.pending[agent], fmt.Sprintf("%4d %-8s %s\n", t.tick, agent, text))
}
