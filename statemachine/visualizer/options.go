package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowActions lists each state's enter, tick and exit actions in its node
	ShowActions bool

	// ShowConditions shows transition conditions as labels
	ShowConditions bool

	// Direction controls diagram flow: "TD" (top-down), "LR", "BT" or "RL"
	Direction string

	// HighlightPath highlights the given state IDs, e.g. a trace from fsmctl simulate
	HighlightPath []string

	// Theme controls the color scheme: "default", "dark", "forest"
	Theme string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowActions:    true,
		ShowConditions: true,
		Direction:      "TD",
		Theme:          "default",
	}
}

// WithShowActions enables/disables action details.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithShowConditions enables/disables transition conditions.
func (o Options) WithShowConditions(show bool) Options {
	o.ShowConditions = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}

func (o Options) highlighted() map[string]bool {
	out := make(map[string]bool, len(o.HighlightPath))
	for _, id := range o.HighlightPath {
		out[id] = true
	}

	return out
}

// palette is the fill and stroke of each node class.
type palette struct {
	actionFill, actionStroke       string
	anyFill, anyStroke             string
	highlightFill, highlightStroke string
	edge                           string
}

var themes = map[string]palette{ //nolint:gochecknoglobals
	"default": {
		actionFill: "#e1f5ff", actionStroke: "#01579b",
		anyFill: "#ffe0b2", anyStroke: "#e65100",
		highlightFill: "#fff9c4", highlightStroke: "#f57f17",
		edge: "#455a64",
	},
	"dark": {
		actionFill: "#263238", actionStroke: "#80cbc4",
		anyFill: "#4e342e", anyStroke: "#ffab91",
		highlightFill: "#f9a825", highlightStroke: "#fff59d",
		edge: "#b0bec5",
	},
	"forest": {
		actionFill: "#c8e6c9", actionStroke: "#2e7d32",
		anyFill: "#dcedc8", anyStroke: "#558b2f",
		highlightFill: "#fff9c4", highlightStroke: "#f57f17",
		edge: "#33691e",
	},
}

func (o Options) palette() palette {
	if p, ok := themes[o.Theme]; ok {
		return p
	}

	return themes["default"]
}
