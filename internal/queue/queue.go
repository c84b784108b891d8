// Package queue implements the bounded deterministic queue used to
// coordinate logical workflow threads.
//
// The queue never blocks natively. Every blocking operation registers
// a pure predicate with the scheduler through the Waiter contract and
// suspends until the scheduler re-evaluates it to true (or the logical
// deadline passes). Because at most one logical thread runs at a time
// and predicates are side-effect free, no locking is needed and the
// capacity invariant holds under any interleaving the scheduler picks.
//
// Cancellable variants re-check the caller's cancellation scope inside
// the predicate, so cancellation is observed at the same cadence as
// data availability and wins when both hold in the same pass.
package queue

import (
	"fmt"
	"time"
)

// Waiter is the scheduler-facing contract the queue suspends through.
// *sched.Thread satisfies it.
//
// Await blocks the calling logical thread until cond holds.
// AwaitWithTimeout additionally unblocks when the timeout elapses on
// the scheduler's logical clock and returns the final value of cond.
// The reason strings are diagnostic only. Canceled returns a non-nil
// error once the caller's enclosing cancellation scope is cancelled.
type Waiter interface {
	Await(reason string, cond func() bool)
	AwaitWithTimeout(timeout time.Duration, reason string, cond func() bool) bool
	Canceled() error
}

// Queue is a bounded queue scoped to one workflow execution.
//
// Elements are always inserted at the tail. The two read families
// disagree on removal order: Take and CancellableTake remove the
// most-recently-inserted element (stack order), while Poll, Peek and
// the timed polls operate on the least-recently-inserted element
// (queue order). This asymmetry matches the behavior workflow code
// already depends on; see the note on Take before relying on it.
//
// The zero value is unusable; construct with New.
type Queue[E any] struct {
	capacity int
	elems    []E
}

// New creates a queue with the given fixed capacity.
// Returns an error if capacity is less than 1.
func New[E any](capacity int) (*Queue[E], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("queue capacity less than 1: %d", capacity)
	}
	return &Queue[E]{capacity: capacity, elems: make([]E, 0, capacity)}, nil
}

// Len returns the number of queued elements.
func (q *Queue[E]) Len() int {
	return len(q.elems)
}

// Cap returns the fixed capacity.
func (q *Queue[E]) Cap() int {
	return q.capacity
}

// Take blocks until the queue is non-empty, then removes and returns
// the most-recently-inserted element.
//
// NOTE: Take is LIFO while Poll is FIFO. The split is preserved
// deliberately because existing coordination code observes it; it is
// flagged as a suspected upstream inconsistency in DESIGN.md.
func (q *Queue[E]) Take(w Waiter) E {
	w.Await("Queue.take", func() bool { return len(q.elems) > 0 })
	return q.removeLast()
}

// CancellableTake is Take with cooperative cancellation: the wait
// predicate re-checks the caller's cancellation scope, and a cancelled
// scope aborts the wait with a *sched.CanceledError even when an
// element is simultaneously available.
func (q *Queue[E]) CancellableTake(w Waiter) (E, error) {
	w.Await("Queue.cancellableTake", func() bool {
		return w.Canceled() != nil || len(q.elems) > 0
	})
	if err := w.Canceled(); err != nil {
		var zero E
		return zero, err
	}
	return q.removeLast(), nil
}

// Poll removes and returns the least-recently-inserted element.
// The second result is false when the queue is empty.
func (q *Queue[E]) Poll() (E, bool) {
	if len(q.elems) == 0 {
		var zero E
		return zero, false
	}
	return q.removeFirst(), true
}

// Peek returns the least-recently-inserted element without removing
// it. The second result is false when the queue is empty.
func (q *Queue[E]) Peek() (E, bool) {
	if len(q.elems) == 0 {
		var zero E
		return zero, false
	}
	return q.elems[0], true
}

// PollFor blocks until the queue is non-empty or the timeout elapses,
// then polls. A timed-out wait returns (zero, false) and leaves the
// queue untouched.
func (q *Queue[E]) PollFor(w Waiter, timeout time.Duration) (E, bool) {
	w.AwaitWithTimeout(timeout, "Queue.poll", func() bool { return len(q.elems) > 0 })
	return q.Poll()
}

// CancellablePollFor is PollFor with cooperative cancellation.
// Cancellation wins over both data availability and the timeout.
func (q *Queue[E]) CancellablePollFor(w Waiter, timeout time.Duration) (E, bool, error) {
	w.AwaitWithTimeout(timeout, "Queue.cancellablePoll", func() bool {
		return w.Canceled() != nil || len(q.elems) > 0
	})
	if err := w.Canceled(); err != nil {
		var zero E
		return zero, false, err
	}
	e, ok := q.Poll()
	return e, ok, nil
}

// Offer inserts e at the tail if the queue is below capacity.
// Returns false, without inserting, when the queue is full.
func (q *Queue[E]) Offer(e E) bool {
	if len(q.elems) == q.capacity {
		return false
	}
	q.elems = append(q.elems, e)
	return true
}

// Put blocks until the queue is below capacity, then inserts e at the
// tail. It cannot fail.
func (q *Queue[E]) Put(w Waiter, e E) {
	w.Await("Queue.put", func() bool { return len(q.elems) < q.capacity })
	q.elems = append(q.elems, e)
}

// CancellablePut is Put with cooperative cancellation. On
// cancellation the element is not inserted.
func (q *Queue[E]) CancellablePut(w Waiter, e E) error {
	w.Await("Queue.cancellablePut", func() bool {
		return w.Canceled() != nil || len(q.elems) < q.capacity
	})
	if err := w.Canceled(); err != nil {
		return err
	}
	q.elems = append(q.elems, e)
	return nil
}

// OfferFor blocks until space is available or the timeout elapses.
// Returns false, without inserting, when no space freed in time.
func (q *Queue[E]) OfferFor(w Waiter, e E, timeout time.Duration) bool {
	w.AwaitWithTimeout(timeout, "Queue.offer", func() bool { return len(q.elems) < q.capacity })
	if len(q.elems) >= q.capacity {
		return false
	}
	q.elems = append(q.elems, e)
	return true
}

// CancellableOfferFor is OfferFor with cooperative cancellation.
// Cancellation wins over both space availability and the timeout.
func (q *Queue[E]) CancellableOfferFor(w Waiter, e E, timeout time.Duration) (bool, error) {
	w.AwaitWithTimeout(timeout, "Queue.cancellableOffer", func() bool {
		return w.Canceled() != nil || len(q.elems) < q.capacity
	})
	if err := w.Canceled(); err != nil {
		return false, err
	}
	if len(q.elems) >= q.capacity {
		return false, nil
	}
	q.elems = append(q.elems, e)
	return true, nil
}

// removeFirst pops the head. The vacated slot is zeroed so the backing
// array does not retain element pointers.
func (q *Queue[E]) removeFirst() E {
	e := q.elems[0]
	var zero E
	q.elems[0] = zero
	if len(q.elems) == 1 {
		q.elems = q.elems[:0]
	} else {
		q.elems = q.elems[1:]
	}
	return e
}

// removeLast pops the tail.
func (q *Queue[E]) removeLast() E {
	last := len(q.elems) - 1
	e := q.elems[last]
	var zero E
	q.elems[last] = zero
	q.elems = q.elems[:last]
	return e
}
