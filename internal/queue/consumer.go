package queue

import "time"

// Consumer is the read-only face of a queue: the operation family a
// downstream consumer may use without being able to insert.
// *Queue[E] and mapped views both satisfy it.
type Consumer[E any] interface {
	Take(w Waiter) E
	CancellableTake(w Waiter) (E, error)
	Poll() (E, bool)
	Peek() (E, bool)
	PollFor(w Waiter, timeout time.Duration) (E, bool)
	CancellablePollFor(w Waiter, timeout time.Duration) (E, bool, error)
}

// Mapped returns a read-only view of src that applies fn to every
// element read through it.
//
// The view holds no elements and re-implements no semantics: each
// operation delegates to src unmodified, keeping its blocking, timeout
// and cancellation behavior, and applies fn only to a present value. A
// missing value (ok == false) or a cancellation error passes through
// with fn never invoked.
//
// Views chain: Mapped(Mapped(src, f), g) observes g(f(x)) for every x
// read, equivalent to a single view applying the composition. Each
// view is immutable and references exactly one upstream, so chains
// form a linked list of decorators rather than a shared transform
// slice.
func Mapped[E, R any](src Consumer[E], fn func(E) R) Consumer[R] {
	return &mapped[E, R]{src: src, fn: fn}
}

type mapped[E, R any] struct {
	src Consumer[E]
	fn  func(E) R
}

func (m *mapped[E, R]) Take(w Waiter) R {
	return m.fn(m.src.Take(w))
}

func (m *mapped[E, R]) CancellableTake(w Waiter) (R, error) {
	e, err := m.src.CancellableTake(w)
	if err != nil {
		var zero R
		return zero, err
	}
	return m.fn(e), nil
}

func (m *mapped[E, R]) Poll() (R, bool) {
	e, ok := m.src.Poll()
	if !ok {
		var zero R
		return zero, false
	}
	return m.fn(e), true
}

func (m *mapped[E, R]) Peek() (R, bool) {
	e, ok := m.src.Peek()
	if !ok {
		var zero R
		return zero, false
	}
	return m.fn(e), true
}

func (m *mapped[E, R]) PollFor(w Waiter, timeout time.Duration) (R, bool) {
	e, ok := m.src.PollFor(w, timeout)
	if !ok {
		var zero R
		return zero, false
	}
	return m.fn(e), true
}

func (m *mapped[E, R]) CancellablePollFor(w Waiter, timeout time.Duration) (R, bool, error) {
	e, ok, err := m.src.CancellablePollFor(w, timeout)
	if err != nil || !ok {
		var zero R
		return zero, false, err
	}
	return m.fn(e), true, nil
}
