package maestro

type (
	// Handler processes one method invocation. Whatever it returns is
	// handed to the caller unchanged.
	Handler func(*Context) (any, error)

	// Listener reacts to one event delivery. A returned error (or a panic)
	// is reported and never stops delivery to other listeners.
	Listener func(*Context) error

	// Service declares everything the broker needs to know about one
	// independently implemented unit: its namespace, the services that must
	// be started before it, its callable methods, the events it listens to,
	// and its lifecycle hooks. All fields except Name are optional.
	Service struct {
		Name         string
		Desc         string
		Dependencies []string

		Methods []Method
		Events  []Subscription

		OnCreate  func(*Context) error
		OnStart   func(*Context) error
		OnStop    func(*Context) error
		OnRemoved func(*Context) error
	}

	// Method is one callable entry of a service, exposed under the
	// qualified name "<service>.<method>". A non-nil Params schema is
	// applied to the payload before the handler runs.
	Method struct {
		Name    string
		Desc    string
		Params  Vars
		Handler Handler
	}

	// Subscription binds a listener to an event name on behalf of its
	// owning service. All of a service's subscriptions are removed as a
	// unit when the service is destroyed.
	Subscription struct {
		Event    string
		Listener Listener
	}
)

// validate panics on malformed descriptors. A service wired up wrong is a
// programmer error, not a runtime condition.
func (s Service) validate() {
	if s.Name == "" {
		panic("service name is required")
	}
	seen := make(map[string]struct{}, len(s.Methods))
	for _, m := range s.Methods {
		if m.Name == "" {
			panic("method name is required: service " + s.Name)
		}
		if m.Handler == nil {
			panic("method handler is required: " + s.qualified(m.Name))
		}
		if _, ok := seen[m.Name]; ok {
			panic("method already declared: " + s.qualified(m.Name))
		}
		seen[m.Name] = struct{}{}
	}
	for _, sub := range s.Events {
		if sub.Event == "" {
			panic("event name is required: service " + s.Name)
		}
		if sub.Listener == nil {
			panic("event listener is required: " + s.Name + " on " + sub.Event)
		}
	}
}

func (s Service) qualified(method string) string {
	return s.Name + "." + method
}
