package maestro

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodRegistryBasics(t *testing.T) {
	r := newMethodRegistry()

	entry := &methodEntry{service: "a", name: "m"}
	r.register("a.m", entry)

	got, ok := r.resolve("a.m")
	require.True(t, ok)
	assert.Same(t, entry, got)

	// overwrite wins
	next := &methodEntry{service: "a", name: "m"}
	r.register("a.m", next)
	got, _ = r.resolve("a.m")
	assert.Same(t, next, got)

	r.unregister("a.m")
	_, ok = r.resolve("a.m")
	assert.False(t, ok)

	r.unregister("a.m") // absent: no-op
}

func TestMethodRegistryConcurrentAccess(t *testing.T) {
	r := newMethodRegistry()
	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(2)
		name := "svc.m" + strconv.Itoa(i)
		go func() {
			defer wg.Done()
			for range 1000 {
				r.register(name, &methodEntry{service: "svc"})
				r.unregister(name)
			}
		}()
		go func() {
			defer wg.Done()
			for range 1000 {
				// a concurrent removal may or may not be visible; it must
				// never corrupt the table
				_, _ = r.resolve(name)
			}
		}()
	}
	wg.Wait()
}

func TestServiceRegistryOrder(t *testing.T) {
	r := newServiceRegistry()
	r.add(&serviceEntry{def: Service{Name: "b"}})
	r.add(&serviceEntry{def: Service{Name: "a"}})
	r.add(&serviceEntry{def: Service{Name: "c"}})

	assert.Equal(t, []string{"b", "a", "c"}, r.names())

	_, ok := r.remove("a")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, r.names())

	_, ok = r.remove("a")
	assert.False(t, ok)
}

func TestServiceRegistryStateFlags(t *testing.T) {
	r := newServiceRegistry()
	r.add(&serviceEntry{def: Service{Name: "a"}})

	started, starting, ok := r.state("a")
	require.True(t, ok)
	assert.False(t, started)
	assert.False(t, starting)

	r.markStarting("a", true)
	_, starting, _ = r.state("a")
	assert.True(t, starting)

	r.markStarted("a")
	r.markStarting("a", false)
	started, starting, _ = r.state("a")
	assert.True(t, started)
	assert.False(t, starting)

	_, _, ok = r.state("ghost")
	assert.False(t, ok)
}
