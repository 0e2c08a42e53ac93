package statemachine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigLoader is an interface for loading graph assets by name.
// Applications can implement this to provide embedded or remote assets.
type ConfigLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	// defaultConfigLoader is the global config loader used by LoadConfig.
	defaultConfigLoader ConfigLoader //nolint:gochecknoglobals
	configLoaderMu      sync.RWMutex //nolint:gochecknoglobals
)

// SetConfigLoader sets the default config loader for name-based loading.
func SetConfigLoader(loader ConfigLoader) {
	configLoaderMu.Lock()
	defer configLoaderMu.Unlock()

	defaultConfigLoader = loader
}

func configLoader() ConfigLoader {
	configLoaderMu.RLock()
	defer configLoaderMu.RUnlock()

	return defaultConfigLoader
}

// Config is the persisted form of a graph.
type Config struct {
	Name   string        `json:"name"   yaml:"name"`
	States []StateConfig `json:"states" yaml:"states"`
}

// StateConfig defines the configuration for a state.
type StateConfig struct {
	ID          string             `json:"id"                    yaml:"id"`
	Title       string             `json:"title,omitempty"       yaml:"title,omitempty"`
	Kind        string             `json:"kind,omitempty"        yaml:"kind,omitempty"` // "action" (default), "entry", "any"
	Position    PositionConfig     `json:"position"              yaml:"position"`
	OnEnter     []ActionConfig     `json:"onEnter,omitempty"     yaml:"onEnter,omitempty"`
	OnTick      []ActionConfig     `json:"onTick,omitempty"      yaml:"onTick,omitempty"`
	OnExit      []ActionConfig     `json:"onExit,omitempty"      yaml:"onExit,omitempty"`
	Transitions []TransitionConfig `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// PositionConfig is the editor position of a state.
type PositionConfig struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ActionConfig defines the configuration for an action.
type ActionConfig struct {
	Action     ActionKind `json:"action"               yaml:"action"`
	Parameters []string   `json:"parameters,omitempty" yaml:"parameters,omitempty,flow"`
}

// TransitionConfig defines the configuration for a transition. A missing
// condition is always true.
type TransitionConfig struct {
	To        string          `json:"to"                  yaml:"to"`
	Condition ConditionConfig `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ConditionConfig is a conjunction of disjunctions.
type ConditionConfig struct {
	And []DisjunctionConfig `json:"and,omitempty" yaml:"and,omitempty"`
}

// DisjunctionConfig is a disjunction of predicate checks.
type DisjunctionConfig struct {
	Or []PredicateConfig `json:"or" yaml:"or"`
}

// PredicateConfig is a single predicate check.
type PredicateConfig struct {
	Predicate  PredicateKind `json:"predicate"            yaml:"predicate"`
	Parameters []string      `json:"parameters,omitempty" yaml:"parameters,omitempty,flow"`
	Negate     bool          `json:"negate,omitempty"     yaml:"negate,omitempty"`
}

// LoadConfig loads a graph configuration by path or name.
// Supports two modes:
//   - Path mode: Pass a file path (containing '/', '\', or ending in '.yaml' or a
//     compressed variant) to load from the filesystem.
//     Example: LoadConfig("assets/guard.yaml"), LoadConfig("testdata/guard.yaml.gz")
//   - Name mode: Pass a bare name to load via the registered ConfigLoader.
//     Example: LoadConfig("guard")
//
// For name mode to work, you must call SetConfigLoader() first with an implementation.
func LoadConfig(pathOrName string) (*Config, error) {
	var (
		data []byte
		err  error
	)

	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		IsAssetFile(pathOrName)

	if isPath {
		data, err = os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", pathOrName, err)
		}

		data, err = DecodeAsset(pathOrName, data)
		if err != nil {
			return nil, err
		}

		return LoadConfigFromBytes(data)
	}

	loader := configLoader()
	if loader == nil {
		return nil, ErrNoConfigLoader
	}

	data, err = loader.LoadByName(pathOrName)
	if err != nil {
		available := loader.ListAvailable()

		return nil, fmt.Errorf("failed to load config %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads a graph configuration from YAML bytes.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigFromFS loads a configuration from a filesystem such as embed.FS.
// Compressed assets are decoded by extension.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	data, err = DecodeAsset(path, data)
	if err != nil {
		return nil, err
	}

	return LoadConfigFromBytes(data)
}

// LoadGraph loads a configuration by path or name and builds its graph.
func LoadGraph(pathOrName string) (*Graph, error) {
	config, err := LoadConfig(pathOrName)
	if err != nil {
		return nil, err
	}

	return config.Graph()
}

// LoadGraphFromBytes parses YAML bytes and builds the graph.
func LoadGraphFromBytes(data []byte) (*Graph, error) {
	config, err := LoadConfigFromBytes(data)
	if err != nil {
		return nil, err
	}

	return config.Graph()
}

// LoadGraphFromFS loads a configuration from fsys and builds the graph.
func LoadGraphFromFS(fsys fs.FS, path string) (*Graph, error) {
	config, err := LoadConfigFromFS(fsys, path)
	if err != nil {
		return nil, err
	}

	return config.Graph()
}

// Validate checks that the configuration describes a runnable graph.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrGraphNameRequired
	}

	kinds := make(map[string]StateKind, len(c.States))

	var entries, anys int

	for _, state := range c.States {
		if state.ID == "" {
			return ErrStateIDRequired
		}

		if _, dup := kinds[state.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateState, state.ID)
		}

		kind, err := ParseStateKind(state.Kind)
		if err != nil {
			return fmt.Errorf("state %s: %w", state.ID, err)
		}

		kinds[state.ID] = kind

		switch kind {
		case KindEntry:
			entries++

			if len(state.Transitions) != 1 {
				return fmt.Errorf("state %s: %w: has %d", state.ID, ErrEntryTransition, len(state.Transitions))
			}
		case KindAny:
			anys++
		case KindAction:
		}

		if kind != KindAction && len(state.OnEnter)+len(state.OnTick)+len(state.OnExit) > 0 {
			return fmt.Errorf("state %s: %w", state.ID, ErrNotActionState)
		}
	}

	switch {
	case entries == 0:
		return ErrMissingEntryState
	case entries > 1:
		return ErrMultipleEntryStates
	case anys == 0:
		return ErrMissingAnyState
	case anys > 1:
		return ErrMultipleAnyStates
	}

	for _, state := range c.States {
		targets := make(map[string]bool, len(state.Transitions))

		for i, transition := range state.Transitions {
			kind, ok := kinds[transition.To]
			if !ok {
				return fmt.Errorf("state %s, transition %d: %w: %s", state.ID, i, ErrStateNotFound, transition.To)
			}

			if !kind.Switchable() {
				return fmt.Errorf("state %s, transition %d: %w: %s", state.ID, i, ErrInvalidTarget, transition.To)
			}

			if targets[transition.To] {
				return fmt.Errorf("state %s, transition %d: %w: %s", state.ID, i, ErrDuplicateTransition, transition.To)
			}

			targets[transition.To] = true
		}
	}

	return nil
}

// Graph builds the graph described by the configuration.
func (c *Config) Graph() (*Graph, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	graph := NewGraph(c.Name)

	for _, sc := range c.States {
		kind, _ := ParseStateKind(sc.Kind)

		state := newState(sc.ID, kind)
		state.Position = Position(sc.Position)

		switch {
		case sc.Title != "":
			state.Title = sc.Title
		case kind == KindEntry:
			state.Title = EntryStateTitle
		case kind == KindAny:
			state.Title = AnyStateTitle
		}

		if state.actions != nil {
			state.actions.OnEnter = actionsFromConfig(sc.OnEnter)
			state.actions.OnTick = actionsFromConfig(sc.OnTick)
			state.actions.OnExit = actionsFromConfig(sc.OnExit)
		}

		for _, tc := range sc.Transitions {
			state.transitions = append(state.transitions, NewTransition(sc.ID, tc.To, tc.Condition.condition()))
		}

		if err := graph.addState(state); err != nil {
			return nil, err
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return graph, nil
}

// NewConfig converts a graph to its persisted form.
func NewConfig(g *Graph) *Config {
	config := &Config{
		Name:   g.Name,
		States: make([]StateConfig, 0, len(g.states)),
	}

	for _, state := range g.states {
		sc := StateConfig{
			ID:       state.id,
			Title:    state.Title,
			Kind:     state.kind.String(),
			Position: PositionConfig(state.Position),
		}

		if state.actions != nil {
			sc.OnEnter = actionsToConfig(state.actions.OnEnter)
			sc.OnTick = actionsToConfig(state.actions.OnTick)
			sc.OnExit = actionsToConfig(state.actions.OnExit)
		}

		for _, t := range state.transitions {
			sc.Transitions = append(sc.Transitions, TransitionConfig{
				To:        t.target,
				Condition: conditionToConfig(t.Condition),
			})
		}

		config.States = append(config.States, sc)
	}

	return config
}

// MarshalConfig encodes a configuration as YAML.
func MarshalConfig(config *Config) ([]byte, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph %q: %w", config.Name, err)
	}

	return data, nil
}

func actionsFromConfig(configs []ActionConfig) []Action {
	if len(configs) == 0 {
		return nil
	}

	actions := make([]Action, len(configs))
	for i, ac := range configs {
		actions[i] = Act(ac.Action, ac.Parameters...)
	}

	return actions
}

func actionsToConfig(actions []Action) []ActionConfig {
	if len(actions) == 0 {
		return nil
	}

	configs := make([]ActionConfig, len(actions))
	for i, action := range actions {
		configs[i] = ActionConfig{Action: action.Kind, Parameters: action.Parameters}
	}

	return configs
}

func (c ConditionConfig) condition() Condition {
	if len(c.And) == 0 {
		return Always()
	}

	cond := Condition{And: make([]Disjunction, len(c.And))}

	for i, term := range c.And {
		preds := make([]Predicate, len(term.Or))
		for j, pc := range term.Or {
			preds[j] = Predicate{Kind: pc.Predicate, Parameters: pc.Parameters, Negate: pc.Negate}
		}

		cond.And[i] = Disjunction{Or: preds}
	}

	return cond
}

func conditionToConfig(cond Condition) ConditionConfig {
	if cond.IsAlways() {
		return ConditionConfig{}
	}

	config := ConditionConfig{And: make([]DisjunctionConfig, len(cond.And))}

	for i, term := range cond.And {
		preds := make([]PredicateConfig, len(term.Or))
		for j, pred := range term.Or {
			preds[j] = PredicateConfig{Predicate: pred.Kind, Parameters: pred.Parameters, Negate: pred.Negate}
		}

		config.And[i] = DisjunctionConfig{Or: preds}
	}

	return config
}
