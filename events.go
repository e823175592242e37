package maestro

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

type (
	// eventBus is the local publish/subscribe table. Bindings are kept in
	// subscription order per event name and are owned by a service, so a
	// teardown can drop every binding of that service at once.
	eventBus struct {
		mutex    sync.RWMutex
		bindings map[string][]*listenerBinding
		log      zerolog.Logger
	}

	listenerBinding struct {
		event string
		owner string
		fn    Listener
	}
)

func newEventBus(log zerolog.Logger) *eventBus {
	return &eventBus{
		bindings: make(map[string][]*listenerBinding),
		log:      log,
	}
}

func (bus *eventBus) subscribe(event, owner string, fn Listener) {
	if event == "" || fn == nil {
		panic("invalid event subscription: " + owner)
	}

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	bus.bindings[event] = append(bus.bindings[event], &listenerBinding{
		event: event,
		owner: owner,
		fn:    fn,
	})
}

// unsubscribeAll removes every binding owned by a service. No binding of a
// destroyed service may survive.
func (bus *eventBus) unsubscribeAll(owner string) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	for event, bindings := range bus.bindings {
		kept := slices.DeleteFunc(slices.Clone(bindings), func(b *listenerBinding) bool {
			return b.owner == owner
		})
		if len(kept) == 0 {
			delete(bus.bindings, event)
		} else {
			bus.bindings[event] = kept
		}
	}
}

// publishLocal delivers an event to every local listener in subscription
// order. A failing listener is logged and collected, never aborting
// delivery to the rest; the combined failures are returned for reporting.
func (bus *eventBus) publishLocal(event string, deliver func(*listenerBinding) error) error {
	bus.mutex.RLock()
	snapshot := slices.Clone(bus.bindings[event])
	bus.mutex.RUnlock()

	var errs error
	for _, bind := range snapshot {
		if err := deliver(bind); err != nil {
			bus.log.Warn().
				Str("event", event).
				Str("service", bind.owner).
				Err(err).
				Msg("event listener failed")
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
