package schema

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the schema entries of an application, keyed by entity name.
// Entries are registered during startup and looked up read-only afterwards.
type Registry struct {
	entries map[string]any
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]any),
		logger:  logger.With(zap.String("component", "schema_registry")),
	}
}

// Register validates and stores entry under name. Names are unique.
func Register[T any](r *Registry, name string, entry *Entry[T]) error {
	if err := entry.Check(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("schema %q already registered", name)
	}
	r.entries[name] = entry

	r.logger.Debug("schema registered",
		zap.String("name", name),
		zap.String("store", entry.StoreID),
		zap.String("range", entry.SheetRange),
		zap.String("key_field", entry.KeyField))
	return nil
}

// MustRegister is Register for package-level setup; it panics on error.
func MustRegister[T any](r *Registry, name string, entry *Entry[T]) {
	if err := Register(r, name, entry); err != nil {
		panic(err)
	}
}

// Lookup returns the entry registered under name for entity type T.
func Lookup[T any](r *Registry, name string) (*Entry[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("schema %q not found", name)
	}
	entry, ok := raw.(*Entry[T])
	if !ok {
		return nil, fmt.Errorf("schema %q holds %T, not the requested entity type", name, raw)
	}
	return entry, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
