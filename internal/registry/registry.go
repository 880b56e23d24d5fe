// Package registry provides the process-wide name service for polymorphic
// pipeline components. Every component family (algorithms, falcons, dedupers,
// rescorers, mergers) owns one Registry value; entries are bound once at
// startup and resolved into reference-counted shared instances keyed by
// (name, effective params).
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Component is the lifecycle contract every registered component implements.
// Configure receives the effective JSON config (defaults merged with caller
// overrides); Initialize runs once after a successful Configure.
type Component interface {
	Configure(raw json.RawMessage) error
	Initialize() error
}

// Factory constructs an unconfigured component instance.
type Factory[T Component] func() T

var (
	// ErrNotBound is returned when resolving a name that was never bound.
	ErrNotBound = errors.New("registry: name not bound")

	// ErrAlreadyBound is returned when binding a name twice in one family.
	ErrAlreadyBound = errors.New("registry: name already bound")
)

// Registry is the name service for one component family.
type Registry[T Component] struct {
	family string

	mu      sync.Mutex
	entries map[string]*entry[T]
}

type entry[T Component] struct {
	factory   Factory[T]
	defaults  json.RawMessage
	instances map[string]*instance[T] // params fingerprint -> live instance
}

type instance[T Component] struct {
	mu    sync.Mutex // serializes construction per (name, params)
	done  bool
	err   error
	value T

	// refs and pins are guarded by the registry mutex.
	refs int
	pins int
}

// New creates a registry for the named family.
func New[T Component](family string) *Registry[T] {
	return &Registry[T]{
		family:  family,
		entries: make(map[string]*entry[T]),
	}
}

// Family returns the family name.
func (r *Registry[T]) Family() string { return r.family }

// Bind registers a factory with its default JSON config under a name.
// Binding a name twice is a startup error.
func (r *Registry[T]) Bind(name string, defaults json.RawMessage, factory Factory[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%s %q: %w", r.family, name, ErrAlreadyBound)
	}
	r.entries[name] = &entry[T]{
		factory:   factory,
		defaults:  defaults,
		instances: make(map[string]*instance[T]),
	}
	return nil
}

// Alias resolves an existing entry under another name. The alias shares the
// entry, so shared instances are visible under both names.
func (r *Registry[T]) Alias(newName, existing string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[existing]
	if !ok {
		return fmt.Errorf("%s %q: %w", r.family, existing, ErrNotBound)
	}
	if _, ok := r.entries[newName]; ok {
		return fmt.Errorf("%s %q: %w", r.family, newName, ErrAlreadyBound)
	}
	r.entries[newName] = e
	return nil
}

// Names returns all bound names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MakeShared resolves a reference-counted handle to the instance for
// (name, effective config). An instance with an alive handle (or a pin) is
// reused; otherwise the factory runs, then Configure with the merged config,
// then Initialize. Construction is serialized per (name, params) so
// concurrent callers observe a single construction. A Configure or
// Initialize failure fails the resolution; the partially built instance is
// discarded once its last resolver releases.
func (r *Registry[T]) MakeShared(name string, overrides map[string]any) (*Handle[T], error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s %q: %w", r.family, name, ErrNotBound)
	}
	effective, fingerprint, err := mergeParams(e.defaults, overrides)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s %q: merge params: %w", r.family, name, err)
	}
	inst, ok := e.instances[fingerprint]
	if !ok {
		inst = &instance[T]{}
		e.instances[fingerprint] = inst
	}
	inst.refs++
	r.mu.Unlock()

	inst.mu.Lock()
	if !inst.done {
		v := e.factory()
		cfgErr := v.Configure(effective)
		if cfgErr == nil {
			cfgErr = v.Initialize()
		}
		inst.value, inst.err, inst.done = v, cfgErr, true
	}
	value, instErr := inst.value, inst.err
	inst.mu.Unlock()

	if instErr != nil {
		r.releaseInstance(e, fingerprint, inst)
		return nil, fmt.Errorf("%s %q: %w", r.family, name, instErr)
	}
	return &Handle[T]{reg: r, entry: e, fingerprint: fingerprint, inst: inst, value: value}, nil
}

func (r *Registry[T]) releaseInstance(e *entry[T], fingerprint string, inst *instance[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.refs--
	if inst.refs <= 0 && inst.pins <= 0 {
		delete(e.instances, fingerprint)
	}
}

// Handle is a reference-counted proxy to a shared component instance.
type Handle[T Component] struct {
	reg         *Registry[T]
	entry       *entry[T]
	fingerprint string
	inst        *instance[T]
	value       T

	releaseOnce sync.Once
}

// Get returns the shared instance.
func (h *Handle[T]) Get() T { return h.value }

// Release drops this handle's reference. Only the first call has an effect;
// using Get after Release is a caller bug.
func (h *Handle[T]) Release() {
	h.releaseOnce.Do(func() {
		h.reg.releaseInstance(h.entry, h.fingerprint, h.inst)
	})
}

// Pin increments the instance pin-count so it survives the release of all
// external handles.
func (h *Handle[T]) Pin() {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	h.inst.pins++
}

// Unpin decrements the pin-count.
func (h *Handle[T]) Unpin() {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	h.inst.pins--
	if h.inst.refs <= 0 && h.inst.pins <= 0 {
		delete(h.entry.instances, h.fingerprint)
	}
}

// mergeParams overlays caller overrides onto the entry's default JSON config
// and returns the effective config plus its canonical fingerprint. Map keys
// are sorted by encoding/json, so equal effective configs always fingerprint
// identically.
func mergeParams(defaults json.RawMessage, overrides map[string]any) (json.RawMessage, string, error) {
	merged := make(map[string]any)
	if len(defaults) > 0 {
		if err := json.Unmarshal(defaults, &merged); err != nil {
			return nil, "", fmt.Errorf("default config: %w", err)
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	effective, err := json.Marshal(merged)
	if err != nil {
		return nil, "", err
	}
	return effective, string(effective), nil
}
