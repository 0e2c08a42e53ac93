package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/scripted"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/statemachine/validator"
	"github.com/rainbowassets/gamefsm/watch"
	"github.com/rainbowassets/gamefsm/world"
)

const defaultTickRate = 100 * time.Millisecond

// watch keeps one sandbox agent per graph asset running, validates assets as
// they change and hot reloads the agents of those that pass. Scripts in the
// watched directories are handed to every agent; changing one respawns them.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	set := fs.String("set", "", "predicate answers for the sandbox agents")
	vocabulary := fs.String("vocabulary", "", "warn about kinds the named collaborator set does not handle (demo)")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	tickRate, err := envutil.Duration(ctx, "FSM_TICK_RATE",
		envutil.Default(defaultTickRate),
		envutil.Validate(envutil.Positive[time.Duration])).Value()
	if err != nil {
		return script.ExitWithError(err)
	}

	answers, err := parseSet(*set)
	if err != nil {
		return script.ExitWithError(err)
	}

	rules, err := validationRules(*vocabulary)
	if err != nil {
		return script.ExitWithError(err)
	}

	w, err := world.New(ctx, world.WithName("watch"),
		world.WithControllerOptions(statemachine.WithLogger(statemachine.NopLogger{})))
	if err != nil {
		return script.ExitWithError(err)
	}

	defer func() {
		if err := w.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Get(ctx).Warn("Failed to close world", "error", err)
		}
	}()

	box := newSandbox(a.out, w, answers, rules)

	if err := box.loadDirs(ctx, dirs); err != nil {
		return script.ExitWithError(err)
	}

	watcher, err := watch.New(dirs)
	if err != nil {
		return script.ExitWithError(err)
	}

	defer func() { _ = watcher.Close() }()

	if *metricsAddr != "" {
		a.serveMetrics(ctx, *metricsAddr)
	}

	runErr := make(chan error, 1)

	go func() {
		runErr <- w.Run(ctx, tickRate)
	}()

	fmt.Fprintf(a.out, "watching %s\n", strings.Join(dirs, ", "))

	watchErrors := watcher.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if err != nil {
				return script.ExitWithError(err)
			}

			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			box.handle(ctx, event)
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil

				continue
			}

			logger.Get(ctx).Warn("Watcher error", "error", err)
		}
	}
}

func (a *app) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	a.onShutdown(srv.Shutdown)

	logger.Get(ctx).Info("Serving metrics", "addr", addr)
}

// sandbox owns the agents fsmctl watch runs, one per graph asset.
type sandbox struct {
	out     io.Writer
	world   *world.World
	answers map[statemachine.PredicateKind]bool
	rules   []validator.Rule

	graphs  map[string]*statemachine.Graph
	scripts map[string]*scripted.Collaborator
}

func newSandbox(
	out io.Writer,
	w *world.World,
	answers map[statemachine.PredicateKind]bool,
	rules []validator.Rule,
) *sandbox {
	return &sandbox{
		out:     out,
		world:   w,
		answers: answers,
		rules:   rules,
		graphs:  make(map[string]*statemachine.Graph),
		scripts: make(map[string]*scripted.Collaborator),
	}
}

// collaborators gives an agent the stub answers and its own copy of every
// script. Without scripts, unanswered predicates are false.
func (s *sandbox) collaborators() ([]any, error) {
	out := []any{stubEvaluator(s.answers, len(s.scripts) == 0)}

	for _, path := range slices.Sorted(maps.Keys(s.scripts)) {
		clone, err := s.scripts[path].Clone()
		if err != nil {
			return nil, err
		}

		out = append(out, clone)
	}

	return out, nil
}

// loadDirs compiles the scripts of dirs, then spawns their graphs.
func (s *sandbox) loadDirs(ctx context.Context, dirs []string) error {
	var graphs []string

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			switch {
			case entry.IsDir():
			case watch.IsScript(path):
				s.compile(ctx, path)
			case statemachine.IsAssetFile(path):
				graphs = append(graphs, path)
			}
		}
	}

	for _, path := range graphs {
		s.load(ctx, path)
	}

	return nil
}

func (s *sandbox) handle(ctx context.Context, event watch.Event) {
	logger.Get(ctx).Debug("Asset event", "path", event.Path, "kind", event.Kind.String())

	switch {
	case event.Script && event.Kind == watch.Removed:
		delete(s.scripts, event.Path)
		fmt.Fprintf(s.out, "%s removed\n", event.Path)
		s.respawn(ctx)
	case event.Script:
		if s.compile(ctx, event.Path) {
			s.respawn(ctx)
		}
	case event.Kind == watch.Removed:
		s.remove(ctx, event.Name)
	default:
		s.load(ctx, event.Path)
	}
}

func (s *sandbox) compile(ctx context.Context, path string) bool {
	collaborator, err := scripted.Load(path)
	if err != nil {
		fmt.Fprintf(s.out, "%s rejected: %v\n", path, err)
		logger.Get(ctx).Warn("Script rejected", "path", path, "error", err)

		return false
	}

	s.scripts[path] = collaborator
	fmt.Fprintf(s.out, "%s compiled\n", path)

	return true
}

// load validates the asset at path and spawns or reloads its agent. A
// rejected asset leaves the running agent alone.
func (s *sandbox) load(ctx context.Context, path string) {
	config, err := validator.ReadConfig(path)
	if err != nil {
		fmt.Fprintf(s.out, "%s rejected: %v\n", path, err)

		return
	}

	result := validator.ValidateWithRules(config, s.rules)
	if !result.Valid {
		fmt.Fprintf(s.out, "%s rejected\n%s", path, result)

		return
	}

	graph, err := config.Graph()
	if err != nil {
		fmt.Fprintf(s.out, "%s rejected: %v\n", path, err)

		return
	}

	id := statemachine.AssetName(path)

	if old, ok := s.graphs[id]; ok {
		restarted, err := s.world.Reload(ctx, old.Name, graph)
		if err != nil {
			fmt.Fprintf(s.out, "%s reload failed: %v\n", path, err)

			return
		}

		s.graphs[id] = graph
		fmt.Fprintf(s.out, "%s reloaded (%d agent(s))\n", path, restarted)

		return
	}

	collaborators, err := s.collaborators()
	if err == nil {
		err = s.world.Spawn(ctx, id, graph, collaborators...)
	}

	if err != nil {
		fmt.Fprintf(s.out, "%s spawn failed: %v\n", path, err)

		return
	}

	s.graphs[id] = graph

	if result.HasWarnings() {
		fmt.Fprintf(s.out, "%s spawned as %s\n%s", path, id, result)
	} else {
		fmt.Fprintf(s.out, "%s spawned as %s\n", path, id)
	}
}

func (s *sandbox) remove(ctx context.Context, id string) {
	if _, ok := s.graphs[id]; !ok {
		return
	}

	delete(s.graphs, id)

	if err := s.world.Despawn(ctx, id); err != nil {
		fmt.Fprintf(s.out, "%s despawn failed: %v\n", id, err)

		return
	}

	fmt.Fprintf(s.out, "%s despawned\n", id)
}

// respawn restarts every agent with the current scripts.
func (s *sandbox) respawn(ctx context.Context) {
	for _, id := range slices.Sorted(maps.Keys(s.graphs)) {
		if err := s.world.Despawn(ctx, id); err != nil {
			logger.Get(ctx).Warn("Failed to despawn agent", "agent", id, "error", err)
		}

		collaborators, err := s.collaborators()
		if err == nil {
			err = s.world.Spawn(ctx, id, s.graphs[id], collaborators...)
		}

		if err != nil {
			fmt.Fprintf(s.out, "%s respawn failed: %v\n", id, err)
			delete(s.graphs, id)
		}
	}

	if len(s.graphs) > 0 {
		fmt.Fprintf(s.out, "respawned %d agent(s)\n", len(s.graphs))
	}
}
