package plugin

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Sentinel errors for registry operations.
var (
	// ErrPluginAlreadyRegistered is returned when attempting to register
	// a plugin with a name that is already in use.
	ErrPluginAlreadyRegistered = errors.New("plugin already registered")

	// ErrInvalidPluginName is returned when a plugin name is not a
	// lowercase identifier.
	ErrInvalidPluginName = errors.New("invalid plugin name")
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Entry pairs a registered plugin with its name.
type Entry struct {
	Name   string
	Plugin Plugin
}

// Registry maps plugin names to plugins.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin under name.
// Returns an error if:
//   - The name is not a lowercase identifier
//   - A plugin with the same name is already registered
func (r *Registry) Register(name string, p Plugin) error {
	if !validName.MatchString(name) || p == nil {
		return errors.Wrapf(ErrInvalidPluginName, "%q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return errors.Wrapf(ErrPluginAlreadyRegistered, "%q", name)
	}

	r.plugins[name] = p
	return nil
}

// Get returns the named plugin.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	return p, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.plugins) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Entries returns every plugin with its name, sorted by name.
func (r *Registry) Entries() []Entry {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Plugin: r.plugins[name]})
	}
	return entries
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Select returns a registry holding only the plugins matched by selectors.
// A selector matches a plugin when it is "all", equals the plugin's
// category (case-insensitive), or is a substring of its name. An empty
// selector list selects everything.
func (r *Registry) Select(selectors []string) *Registry {
	out := NewRegistry()
	for _, e := range r.Entries() {
		if Matches(e.Name, selectors) {
			out.plugins[e.Name] = e.Plugin
		}
	}
	return out
}

// Matches reports whether name is selected by selectors. See Select.
func Matches(name string, selectors []string) bool {
	if len(selectors) == 0 {
		return true
	}
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		switch {
		case sel == "":
			continue
		case sel == "all":
			return true
		case strings.EqualFold(sel, Category(name)):
			return true
		case strings.Contains(name, sel):
			return true
		}
	}
	return false
}
