package maestro

import "github.com/alphadose/haxmap"

type (
	// methodRegistry maps qualified "<service>.<method>" names to handlers.
	// It is a pure lookup table: lifecycle logic lives elsewhere. The
	// backing map tolerates resolves racing registration; a name being
	// removed concurrently simply stops resolving.
	methodRegistry struct {
		entries *haxmap.Map[string, *methodEntry]
	}

	methodEntry struct {
		service string
		name    string
		params  Vars
		handler Handler
	}
)

func newMethodRegistry() *methodRegistry {
	return &methodRegistry{entries: haxmap.New[string, *methodEntry]()}
}

// register inserts or overwrites the entry for a qualified name.
func (r *methodRegistry) register(name string, entry *methodEntry) {
	r.entries.Set(name, entry)
}

// unregister removes a qualified name, a no-op when absent.
func (r *methodRegistry) unregister(name string) {
	r.entries.Del(name)
}

func (r *methodRegistry) resolve(name string) (*methodEntry, bool) {
	return r.entries.Get(name)
}
