package maestro

import (
	"fmt"
	"strings"
)

// MethodNotFoundError is returned by Call when the qualified method name
// does not resolve to a registered handler. It is a failed call, never
// fatal to the broker.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return "method not found: " + e.Method
}

// DependencyNotFoundError aborts Start when a service declares a dependency
// that is absent from the registry. The graph is malformed; startup must not
// proceed partially.
type DependencyNotFoundError struct {
	Service    string
	Dependency string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("service %s depends on %s which is not registered", e.Service, e.Dependency)
}

// CyclicDependencyError aborts Start when the dependency walk re-enters a
// service that is already being started. Chain lists the services on the
// walk, ending with the one that closed the cycle.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic service dependency: " + strings.Join(e.Chain, " -> ")
}

// HandlerPanicError is returned by Call when a method handler panics.
// The panic is recovered so the broker stays healthy; the caller sees the
// failure like any other handler error.
type HandlerPanicError struct {
	Method string
	Value  any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Method, e.Value)
}

// ParamsError is returned by Call when the payload violates the method's
// declared parameter schema.
type ParamsError struct {
	Method string
	Param  string
	Reason string
}

func (e *ParamsError) Error() string {
	return fmt.Sprintf("invalid params for %s: %s: %s", e.Method, e.Param, e.Reason)
}
