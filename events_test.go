package maestro

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	b := newTestBroker()
	ctx := context.Background()
	rec := &recorder{}

	listener := func(tag string) Listener {
		return func(*Context) error {
			rec.add(tag)
			return nil
		}
	}

	require.NoError(t, b.CreateService(ctx, Service{
		Name: "first",
		Events: []Subscription{
			{Event: "tick", Listener: listener("first/1")},
			{Event: "tick", Listener: listener("first/2")},
		},
	}))
	require.NoError(t, b.CreateService(ctx, Service{
		Name:   "second",
		Events: []Subscription{{Event: "tick", Listener: listener("second/1")}},
	}))

	require.NoError(t, b.BroadcastLocal(ctx, "tick", nil))
	assert.Equal(t, []string{"first/1", "first/2", "second/1"}, rec.list())
}

func TestListenerFailureDoesNotStopDelivery(t *testing.T) {
	b := newTestBroker()
	ctx := context.Background()
	rec := &recorder{}
	boom := errors.New("listener boom")

	require.NoError(t, b.CreateService(ctx, Service{
		Name: "bad",
		Events: []Subscription{{Event: "tick", Listener: func(*Context) error {
			return boom
		}}},
	}))
	require.NoError(t, b.CreateService(ctx, Service{
		Name: "good",
		Events: []Subscription{{Event: "tick", Listener: func(*Context) error {
			rec.add("good")
			return nil
		}}},
	}))

	err := b.BroadcastLocal(ctx, "tick", nil)
	require.ErrorIs(t, err, boom, "failures are reported")
	assert.Equal(t, []string{"good"}, rec.list(), "delivery continues past the failure")
}

func TestListenerPanicIsRecovered(t *testing.T) {
	b := newTestBroker()
	ctx := context.Background()
	rec := &recorder{}

	require.NoError(t, b.CreateService(ctx, Service{
		Name: "crashy",
		Events: []Subscription{{Event: "tick", Listener: func(*Context) error {
			panic("listener kaboom")
		}}},
	}))
	require.NoError(t, b.CreateService(ctx, Service{
		Name: "calm",
		Events: []Subscription{{Event: "tick", Listener: func(*Context) error {
			rec.add("calm")
			return nil
		}}},
	}))

	err := b.BroadcastLocal(ctx, "tick", nil)
	var pe *HandlerPanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"calm"}, rec.list())
}

func TestEventBusUnsubscribeAll(t *testing.T) {
	bus := newEventBus(zerolog.Nop())
	rec := &recorder{}

	bus.subscribe("tick", "a", func(*Context) error { rec.add("a"); return nil })
	bus.subscribe("tick", "b", func(*Context) error { rec.add("b"); return nil })
	bus.subscribe("tock", "a", func(*Context) error { rec.add("a-tock"); return nil })

	bus.unsubscribeAll("a")

	deliver := func(bind *listenerBinding) error { return bind.fn(nil) }
	require.NoError(t, bus.publishLocal("tick", deliver))
	require.NoError(t, bus.publishLocal("tock", deliver))

	assert.Equal(t, []string{"b"}, rec.list())
}

func TestBroadcastWithNoListeners(t *testing.T) {
	b := newTestBroker()
	assert.NoError(t, b.BroadcastLocal(context.Background(), "nobody.cares", Map{"x": 1}))
}
