package maestro

import (
	"context"

	"github.com/google/uuid"
)

type (
	// Meta is the request-scoped metadata carried through one call chain.
	// Every invocation gets its own Meta; nested calls inherit the trace id
	// and the originating node, and record the parent invocation.
	Meta struct {
		// TraceID correlates every invocation in one call chain.
		TraceID string
		// SpanID identifies this invocation.
		SpanID string
		// ParentID is the SpanID of the invocation that made this call,
		// empty at the root of a chain.
		ParentID string
		// Node is the id of the node the chain originated on.
		Node string
	}

	// Context carries one invocation into a method handler, event listener
	// or lifecycle hook. It embeds a context.Context that already holds the
	// Meta, so work handed to downstream code keeps the chain without any
	// explicit plumbing.
	Context struct {
		context.Context

		Meta   *Meta
		Broker *Broker

		// Name is the qualified method or event name being handled.
		Name string
		// Value is the call or event payload.
		Value Map
	}
)

type metaKey struct{}

// MetaFromContext extracts the call-chain metadata, if any.
func MetaFromContext(ctx context.Context) (*Meta, bool) {
	m, ok := ctx.Value(metaKey{}).(*Meta)
	return m, ok
}

func withMeta(ctx context.Context, m *Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// nextMeta derives the metadata for a new invocation. A chain already in
// flight contributes its trace id and origin node; otherwise a new chain
// begins at the given node.
func nextMeta(ctx context.Context, node string) *Meta {
	m := &Meta{SpanID: newID(), Node: node}
	if parent, ok := MetaFromContext(ctx); ok {
		m.TraceID = parent.TraceID
		m.ParentID = parent.SpanID
		if parent.Node != "" {
			m.Node = parent.Node
		}
	} else {
		m.TraceID = newID()
	}
	return m
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Call invokes another method within this invocation's chain.
func (c *Context) Call(name string, payload Map) (any, error) {
	return c.Broker.Call(c.Context, name, payload)
}

// Broadcast publishes an event within this invocation's chain.
func (c *Context) Broadcast(event string, payload Map) error {
	return c.Broker.Broadcast(c.Context, event, payload)
}

// BroadcastLocal publishes an event to local listeners only.
func (c *Context) BroadcastLocal(event string, payload Map) error {
	return c.Broker.BroadcastLocal(c.Context, event, payload)
}
