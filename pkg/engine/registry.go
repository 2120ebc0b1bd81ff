package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is an in-process loader mapping template paths to Go modules:
// strings, numbers, template results, futures or template functions.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]any
}

var _ Loader = (*Registry)(nil)

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]any),
	}
}

// Register stores module under path. Duplicate paths return an error.
func (r *Registry) Register(path string, module any) error {
	key := normalizePath(path)
	if key == "" {
		return fmt.Errorf("engine: template path is required")
	}
	if module == nil {
		return fmt.Errorf("engine: template %q is nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[key]; exists {
		return fmt.Errorf("engine: template %q already registered", key)
	}

	r.modules[key] = module
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(path string, module any) {
	if err := r.Register(path, module); err != nil {
		panic(err)
	}
}

// Unregister removes path, reporting whether it was present.
func (r *Registry) Unregister(path string) bool {
	key := normalizePath(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.modules[key]
	delete(r.modules, key)
	return ok
}

// Load returns the module registered under path.
func (r *Registry) Load(_ context.Context, path string) (any, error) {
	key := normalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	module, ok := r.modules[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return module, nil
}

// List returns a sorted list of registered paths.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether path is registered.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.modules[normalizePath(path)]
	return ok
}

func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}
