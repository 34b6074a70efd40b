package session

import "github.com/abelbrown/forager/internal/engine"

// Router forwards every key transition to the engine after suppressing the
// default handling. The engine owns all interpretation.
type Router struct {
	eng   engine.Engine
	guard func() bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithFocusGuard makes the router drop events while blocked reports true,
// e.g. while a text input has focus. Off unless configured.
func WithFocusGuard(blocked func() bool) RouterOption {
	return func(r *Router) { r.guard = blocked }
}

// NewRouter returns a router forwarding to eng.
func NewRouter(eng engine.Engine, opts ...RouterOption) *Router {
	r := &Router{eng: eng}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Guarded reports whether a focus guard is installed.
func (r *Router) Guarded() bool { return r.guard != nil }

// KeyDown routes a key-down transition. It reports whether the event reached
// the engine.
func (r *Router) KeyDown(ev *engine.KeyEvent) bool {
	if !r.admit(ev) {
		return false
	}
	r.eng.HandleKeyDown(ev)
	return true
}

// KeyUp routes a key-up transition.
func (r *Router) KeyUp(ev *engine.KeyEvent) bool {
	if !r.admit(ev) {
		return false
	}
	r.eng.HandleKeyUp(ev)
	return true
}

func (r *Router) admit(ev *engine.KeyEvent) bool {
	if r.guard != nil && r.guard() {
		return false
	}
	ev.PreventDefault()
	return true
}
