package maestro

import (
	"context"
	"fmt"
)

// startAll walks the dependency graph rooted at every registered service in
// registration order and starts each exactly once. An error aborts the walk
// where it stands: services already started stay started.
func (b *Broker) startAll(ctx context.Context) error {
	for _, name := range b.services.names() {
		if err := b.ensureStarted(ctx, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// ensureStarted runs the service's OnStart hook after all of its declared
// dependencies have started, depth-first in declared order. The started
// flag memoizes completed work; the starting marker catches cycles instead
// of recursing forever.
func (b *Broker) ensureStarted(ctx context.Context, name string, path []string) error {
	started, starting, ok := b.services.state(name)
	if !ok {
		// roots come from the registry itself; missing dependencies are
		// rejected before recursing
		return fmt.Errorf("service not registered: %s", name)
	}
	if started {
		b.log.Debug().Str("service", name).Msg("service already started")
		return nil
	}
	if starting {
		return &CyclicDependencyError{Chain: append(path, name)}
	}

	b.services.markStarting(name, true)
	defer b.services.markStarting(name, false)
	path = append(path, name)

	entry, _ := b.services.get(name)
	for _, dep := range entry.def.Dependencies {
		if _, ok := b.services.get(dep); !ok {
			return &DependencyNotFoundError{Service: name, Dependency: dep}
		}
		if err := b.ensureStarted(ctx, dep, path); err != nil {
			return err
		}
	}

	if entry.def.OnStart != nil {
		if err := entry.def.OnStart(b.serviceContext(ctx, name)); err != nil {
			return fmt.Errorf("start service %s: %w", name, err)
		}
	}
	b.services.markStarted(name)
	b.log.Debug().Str("service", name).Msg("service started")
	return nil
}

// serviceContext builds the invocation context handed to lifecycle hooks.
func (b *Broker) serviceContext(ctx context.Context, name string) *Context {
	meta := nextMeta(ctx, b.node)
	return &Context{
		Context: withMeta(ctx, meta),
		Meta:    meta,
		Broker:  b,
		Name:    name,
		Value:   Map{},
	}
}
