package maestro

import (
	"slices"
	"sync"
)

type (
	// serviceRegistry tracks every registered service: its descriptor, its
	// started state and the qualified method names it owns. Registration
	// order is preserved because it drives startup order for services with
	// no dependency relation.
	serviceRegistry struct {
		mutex   sync.RWMutex
		order   []string
		entries map[string]*serviceEntry
	}

	serviceEntry struct {
		def     Service
		methods []string

		started bool
		// starting marks an in-progress dependency walk; re-entry means
		// the graph has a cycle.
		starting bool
	}
)

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{entries: make(map[string]*serviceEntry)}
}

func (r *serviceRegistry) add(entry *serviceEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := entry.def.Name
	if _, ok := r.entries[name]; !ok {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry
}

func (r *serviceRegistry) remove(name string) (*serviceEntry, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	delete(r.entries, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return entry, true
}

func (r *serviceRegistry) get(name string) (*serviceEntry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// names returns the registered service names in registration order.
func (r *serviceRegistry) names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return slices.Clone(r.order)
}

// state reports the started/starting flags of a service.
func (r *serviceRegistry) state(name string) (started, starting, ok bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return false, false, false
	}
	return entry.started, entry.starting, true
}

// markStarting flips the in-progress marker for a dependency walk.
func (r *serviceRegistry) markStarting(name string, v bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if entry, ok := r.entries[name]; ok {
		entry.starting = v
	}
}

// markStarted records that a service's start hook has run. The flag never
// reverts; a destroyed service is removed outright.
func (r *serviceRegistry) markStarted(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if entry, ok := r.entries[name]; ok {
		entry.started = true
	}
}
