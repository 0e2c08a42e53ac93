// Package watch reports changes to graph assets and scripts on disk.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/zeebo/xxh3"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 100 * time.Millisecond

// Kind tells whether a file changed or went away.
type Kind int

const (
	Changed Kind = iota
	Removed
)

func (k Kind) String() string {
	if k == Removed {
		return "removed"
	}

	return "changed"
}

// Event is a settled change to one file.
type Event struct {
	Path string
	// Name is the asset name, e.g. "guard" for guard.yaml.gz.
	Name string
	Kind Kind
	// Script is set for tengo scripts, unset for graph assets.
	Script bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher watches directories for graph assets (including compressed
// variants) and .tengo scripts. Bursts of writes are coalesced and writes
// that leave the content unchanged are dropped.
type Watcher struct {
	watcher  *fsnotify.Watcher
	events   chan Event
	errors   chan error
	closeCh  chan struct{}
	done     chan struct{}
	once     sync.Once
	debounce time.Duration

	// Content fingerprints by path. Owned by run after construction.
	sums map[string]uint64
}

// New starts watching dirs. Files already present are fingerprinted so
// that touching them without changes is not reported.
func New(dirs []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		events:   make(chan Event, 16),
		errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
		sums:     make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()

			return nil, err
		}

		w.fingerprintDir(dir)
	}

	go w.run()

	return w, nil
}

// Events delivers settled changes. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors delivers watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops watching and waits until Events and Errors are closed. It is
// safe to call more than once.
func (w *Watcher) Close() error {
	var err error

	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})

	return err
}

func (w *Watcher) fingerprintDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() || !Relevant(path) {
			continue
		}

		if data, err := os.ReadFile(path); err == nil { //nolint:gosec
			w.sums[path] = xxh3.Hash(data)
		}
	}
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.errors)
	defer close(w.events)

	pending := make(map[string]struct{})

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || !Relevant(event.Name) {
				continue
			}

			pending[event.Name] = struct{}{}

			timer.Reset(w.debounce)
		case <-timer.C:
			for path := range pending {
				delete(pending, path)

				if event, ok := w.settle(path); ok && !w.send(event) {
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

// settle looks at the file as it is now. Missing files are removals; files
// whose content hashes the same as last time are dropped.
func (w *Watcher) settle(path string) (Event, bool) {
	event := Event{
		Path:   path,
		Name:   statemachine.AssetName(path),
		Script: IsScript(path),
	}

	if event.Script {
		event.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if errors.Is(err, fs.ErrNotExist) {
		if _, known := w.sums[path]; !known {
			return event, false
		}

		delete(w.sums, path)
		event.Kind = Removed

		return event, true
	}

	if err != nil {
		return event, false
	}

	sum := xxh3.Hash(data)
	if old, known := w.sums[path]; known && old == sum {
		return event, false
	}

	w.sums[path] = sum
	event.Kind = Changed

	return event, true
}

func (w *Watcher) send(event Event) bool {
	select {
	case w.events <- event:
		return true
	case <-w.closeCh:
		return false
	}
}

// Relevant reports whether path is a graph asset or a script.
func Relevant(path string) bool {
	return statemachine.IsAssetFile(path) || IsScript(path)
}

// IsScript reports whether path is a tengo script.
func IsScript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tengo")
}
