package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownStrategy is returned when no factory is registered for an id.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Factory builds a fresh strategy from parameters. Missing parameters take
// their defaults.
type Factory func(Params) (Strategy, error)

// Registry maps strategy identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(id)] = f
}

// New builds the strategy registered under id.
func (r *Registry) New(id string, p Params) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[normalize(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownStrategy, id, strings.Join(r.IDs(), ", "))
	}
	if p == nil {
		p = Params{}
	}
	return f(p)
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns the metadata of every registered strategy built with default
// parameters.
func (r *Registry) List() []Metadata {
	var out []Metadata
	for _, id := range r.IDs() {
		s, err := r.New(id, nil)
		if err != nil {
			continue
		}
		out = append(out, s.Metadata())
	}
	return out
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the shipped strategies.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// RegisterBuiltins adds the shipped strategies to r.
func RegisterBuiltins(r *Registry) {
	r.Register("noop", func(Params) (Strategy, error) { return Noop{}, nil })
	r.Register("buy-and-hold", NewBuyAndHold)
	r.Register("ema-cross", NewEMACross)
	r.Register("late-entry-v1", NewLateEntry)
	r.Register("trend-following-v1", NewTrendFollowing)
	r.Register("mean-reversion-v1", NewMeanReversion)
}
