package engine

// KeyEvent is a raw key transition as delivered by the terminal.
// Key uses Bubble Tea's naming ("left", "ctrl+z", "a").
type KeyEvent struct {
	Key   string
	Code  int
	Alt   bool
	Ctrl  bool
	Shift bool

	prevented bool
}

// PreventDefault marks the event as consumed so the program does not apply
// its own handling.
func (e *KeyEvent) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *KeyEvent) DefaultPrevented() bool {
	return e.prevented
}
