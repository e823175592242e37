package maestro

import "context"

// Notifier is the external collaborator that relays a broadcast to other
// nodes. The default is a no-op: a single-node deployment has nobody to
// tell.
type Notifier interface {
	NotifyOtherNodes(ctx context.Context, event string, payload Map) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event string, payload Map) error

func (f NotifierFunc) NotifyOtherNodes(ctx context.Context, event string, payload Map) error {
	return f(ctx, event, payload)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOtherNodes(context.Context, string, Map) error { return nil }
