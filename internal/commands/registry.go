package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateName is returned when a command name or alias is taken.
var ErrDuplicateName = errors.New("command name already registered")

// Registry maps the words accepted after `todo` (names and aliases) to commands.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. Nothing is added if any of
// them is already taken.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := append([]string{c.Name()}, c.Aliases()...)
	for _, w := range words {
		if prev, ok := r.byName[w]; ok {
			return fmt.Errorf("%w: %q (used by %s)", ErrDuplicateName, w, prev.Name())
		}
	}
	for _, w := range words {
		r.byName[w] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(word string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[word]
	return c, ok
}

// All returns each command once, sorted by primary name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unique := make(map[string]Command, len(r.byName))
	for _, c := range r.byName {
		unique[c.Name()] = c
	}
	out := make([]Command, 0, len(unique))
	for _, name := range slices.Sorted(maps.Keys(unique)) {
		out = append(out, unique[name])
	}
	return out
}

// Summary renders one line per command: name, aliases and synopsis.
func (r *Registry) Summary() string {
	var b strings.Builder
	for _, c := range r.All() {
		name := c.Name()
		if aliases := c.Aliases(); len(aliases) > 0 {
			name += " (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(&b, "  %-18s %s\n", name, c.Synopsis())
	}
	return b.String()
}

// DefaultRegistry holds the todo subcommands; each registers itself from init.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
