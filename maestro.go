// Package maestro is an in-process service broker. Services register named
// methods and event listeners under their own namespace, declare which other
// services must initialize first, and the broker starts the whole graph in
// dependency order, routes "service.method" calls with request-scoped
// metadata, and fans events out to local listeners and, through a pluggable
// notifier, to other nodes.
package maestro

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fogfish/opts"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Map is the payload shape carried by calls and events.
type Map map[string]any

// BroadcastObserver is invoked whenever any Broadcast fires, after local
// delivery. Cross-node relays hang off this.
type BroadcastObserver func(event string, payload Map)

// Broker composes the method registry, the event bus and the service
// registry behind one entry point. Its state moves Created -> Running once,
// via Start, and never back.
type Broker struct {
	name string
	node string
	log  zerolog.Logger

	notifier  Notifier
	directory NodeDirectory

	methods  *methodRegistry
	services *serviceRegistry
	events   *eventBus

	// mu serializes every mutation of the registries; reads (Call,
	// Broadcast) run concurrently against their own tables.
	mu      sync.Mutex
	running bool

	obsMu     sync.RWMutex
	observers []BroadcastObserver
}

var (
	// Name sets the broker's display name.
	Name = opts.ForName[Broker, string]("name")
	// NodeID sets this node's id; the default is a fresh uuid.
	NodeID = opts.ForName[Broker, string]("node")
	// Logger replaces the default warn-level stderr logger.
	Logger = opts.ForName[Broker, zerolog.Logger]("log")
)

// WithNotifier installs the cross-node notifier collaborator.
func WithNotifier(n Notifier) opts.Option[Broker] {
	return opts.Type[Broker](func(b *Broker) error {
		if n == nil {
			panic("invalid notifier")
		}
		b.notifier = n
		return nil
	})
}

// WithDirectory installs the node-directory collaborator consulted by
// NodeList. Without one, the broker only knows itself.
func WithDirectory(d NodeDirectory) opts.Option[Broker] {
	return opts.Type[Broker](func(b *Broker) error {
		if d == nil {
			panic("invalid node directory")
		}
		b.directory = d
		return nil
	})
}

// New builds a broker. Options that cannot apply panic: broker wiring is
// program structure, not runtime input.
func New(options ...opts.Option[Broker]) *Broker {
	b := &Broker{
		name:     "maestro",
		node:     newID(),
		log:      zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel),
		notifier: nopNotifier{},
		methods:  newMethodRegistry(),
		services: newServiceRegistry(),
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	b.log = b.log.With().Str("broker", b.name).Logger()
	b.events = newEventBus(b.log)
	return b
}

// NodeID returns this node's id.
func (b *Broker) NodeID() string { return b.node }

// Running reports whether Start has completed.
func (b *Broker) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start drives the dependency-ordered startup of every registered service,
// then flips the broker to Running. It either fully succeeds or returns the
// single failure that aborted the walk; services started before the failure
// stay started.
func (b *Broker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.startAll(ctx); err != nil {
		return err
	}
	if !b.running {
		b.running = true
		b.log.Info().Str("node", b.node).Msg("broker running")
	}
	return nil
}

// CreateService registers a service: its methods under "<name>.<method>",
// its event subscriptions, and its descriptor. The creation hook runs
// synchronously. Re-using a name replaces the previous registration. On a
// broker that is already Running the service (and any of its dependencies
// not yet started) is started immediately.
func (b *Broker) CreateService(ctx context.Context, svc Service) error {
	svc.validate()
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.services.remove(svc.Name); ok {
		b.events.unsubscribeAll(svc.Name)
		for _, qualified := range old.methods {
			b.methods.unregister(qualified)
		}
		b.log.Debug().Str("service", svc.Name).Msg("service replaced")
	}

	entry := &serviceEntry{def: svc}
	for _, m := range svc.Methods {
		qualified := svc.qualified(m.Name)
		b.methods.register(qualified, &methodEntry{
			service: svc.Name,
			name:    m.Name,
			params:  m.Params,
			handler: m.Handler,
		})
		entry.methods = append(entry.methods, qualified)
	}
	for _, sub := range svc.Events {
		b.events.subscribe(sub.Event, svc.Name, sub.Listener)
	}
	b.services.add(entry)
	b.log.Debug().Str("service", svc.Name).Int("methods", len(svc.Methods)).Msg("service created")

	if svc.OnCreate != nil {
		if err := svc.OnCreate(b.serviceContext(ctx, svc.Name)); err != nil {
			return err
		}
	}
	if b.running {
		return b.ensureStarted(ctx, svc.Name, nil)
	}
	return nil
}

// DestroyService removes a service entirely: every event binding it owns,
// every method under its namespace, then its removal and stop hooks, in
// that order. Removal is irreversible; re-creating the service starts from
// scratch.
func (b *Broker) DestroyService(ctx context.Context, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.services.remove(name)
	if !ok {
		return fmt.Errorf("service not registered: %s", name)
	}
	b.events.unsubscribeAll(name)
	for _, qualified := range entry.methods {
		b.methods.unregister(qualified)
	}

	var errs error
	cctx := b.serviceContext(ctx, name)
	if entry.def.OnRemoved != nil {
		errs = multierr.Append(errs, entry.def.OnRemoved(cctx))
	}
	if entry.def.OnStop != nil {
		errs = multierr.Append(errs, entry.def.OnStop(cctx))
	}
	b.log.Debug().Str("service", name).Msg("service destroyed")
	return errs
}

// Call resolves a qualified "service.method" name and invokes its handler
// with a fresh request context derived from ctx: nested calls made by the
// handler stay on the same trace. The handler's outcome reaches the caller
// unchanged; a panicking handler surfaces as HandlerPanicError.
func (b *Broker) Call(ctx context.Context, name string, payload Map) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	entry, ok := b.methods.resolve(name)
	if !ok || entry.handler == nil {
		return nil, &MethodNotFoundError{Method: name}
	}

	value := payload
	if value == nil {
		value = Map{}
	}
	if entry.params != nil {
		applied, err := entry.params.apply(name, value)
		if err != nil {
			return nil, err
		}
		value = applied
	}

	meta := nextMeta(ctx, b.node)
	cctx := &Context{
		Context: withMeta(ctx, meta),
		Meta:    meta,
		Broker:  b,
		Name:    name,
		Value:   value,
	}

	begun := time.Now()
	result, err := b.invoke(cctx, entry)
	b.log.Debug().
		Str("method", name).
		Str("trace", meta.TraceID).
		Str("span", meta.SpanID).
		Dur("took", time.Since(begun)).
		Err(err).
		Msg("call")
	return result, err
}

func (b *Broker) invoke(ctx *Context, entry *methodEntry) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Method: ctx.Name, Value: r}
		}
	}()
	return entry.handler(ctx)
}

// Broadcast publishes an event to every local listener, then to the
// registered broadcast observers, then to the cross-node notifier.
func (b *Broker) Broadcast(ctx context.Context, event string, payload Map) error {
	err := b.BroadcastLocal(ctx, event, payload)

	b.obsMu.RLock()
	observers := make([]BroadcastObserver, len(b.observers))
	copy(observers, b.observers)
	b.obsMu.RUnlock()
	for _, fn := range observers {
		fn(event, payload)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if nerr := b.notifier.NotifyOtherNodes(ctx, event, payload); nerr != nil {
		b.log.Warn().Str("event", event).Err(nerr).Msg("cross-node notify failed")
		err = multierr.Append(err, nerr)
	}
	return err
}

// BroadcastLocal publishes an event to local listeners only, in
// subscription order. Every listener gets its own invocation context on the
// caller's chain. Listener failures are reported in the returned error but
// never stop delivery.
func (b *Broker) BroadcastLocal(ctx context.Context, event string, payload Map) error {
	if ctx == nil {
		ctx = context.Background()
	}
	value := payload
	if value == nil {
		value = Map{}
	}

	return b.events.publishLocal(event, func(bind *listenerBinding) error {
		meta := nextMeta(ctx, b.node)
		cctx := &Context{
			Context: withMeta(ctx, meta),
			Meta:    meta,
			Broker:  b,
			Name:    event,
			Value:   value,
		}
		return b.deliver(cctx, bind)
	})
}

// BroadcastToServices narrows a broadcast to the named services. Without
// per-node routing it degrades to plain local delivery to every listener,
// which is the documented single-process behavior.
func (b *Broker) BroadcastToServices(ctx context.Context, services []string, event string, payload Map) error {
	_ = services
	return b.BroadcastLocal(ctx, event, payload)
}

func (b *Broker) deliver(ctx *Context, bind *listenerBinding) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Method: bind.owner + " on " + bind.event, Value: r}
		}
	}()
	return bind.fn(ctx)
}

// OnBroadcast registers a callback observing every Broadcast, used by
// cross-node relays.
func (b *Broker) OnBroadcast(fn BroadcastObserver) {
	if fn == nil {
		panic("invalid broadcast observer")
	}
	b.obsMu.Lock()
	b.observers = append(b.observers, fn)
	b.obsMu.Unlock()
}

// NodeList queries the node directory and returns every currently known
// node marked available; liveness checking is not this broker's job.
// Without a directory the list is just this node.
func (b *Broker) NodeList(ctx context.Context) ([]Node, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.directory == nil {
		return []Node{{ID: b.node, Available: true}}, nil
	}

	ids, err := b.directory.ActiveNodeIDs(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, Node{ID: id, Available: true})
	}
	return nodes, nil
}
