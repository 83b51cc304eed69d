package motion

import "reflect"

// Listener receives normalized samples. The *Sample is shared between
// emissions and must not be retained.
type Listener interface {
	HandleMotion(*Sample)
}

// AddListener subscribes l. Nil listeners and values that cannot be
// compared for identity (func or map kinds, for instance) are ignored.
// Adding the same listener twice has no effect. No ordering is guaranteed
// between listeners.
func (s *Session) AddListener(l Listener) {
	if !validListener(l) {
		return
	}
	s.mu.Lock()
	s.listeners[l] = struct{}{}
	s.mu.Unlock()
}

// RemoveListener unsubscribes l if it is subscribed.
func (s *Session) RemoveListener(l Listener) {
	if !validListener(l) {
		return
	}
	s.mu.Lock()
	delete(s.listeners, l)
	s.mu.Unlock()
}

// ListenerCount returns the number of subscribed listeners.
func (s *Session) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

type funcListener struct {
	fn func(*Sample)
}

func (f *funcListener) HandleMotion(sample *Sample) { f.fn(sample) }

// Subscribe adds fn as a listener and returns the func that removes it.
// A nil fn is ignored and yields a no-op cancel.
func (s *Session) Subscribe(fn func(*Sample)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	l := &funcListener{fn: fn}
	s.AddListener(l)
	return func() { s.RemoveListener(l) }
}

func validListener(l Listener) bool {
	if l == nil {
		return false
	}
	v := reflect.ValueOf(l)
	if !v.Comparable() {
		return false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan:
		return !v.IsNil()
	}
	return true
}
