package sched

import (
	"runtime/debug"
	"time"
)

// waitCond is the registered suspension condition of a blocked thread.
type waitCond struct {
	reason      string
	cond        func() bool
	deadline    int64 // logical millis, valid when hasDeadline
	hasDeadline bool
}

// Thread is one logical workflow thread.
//
// A Thread is backed by a goroutine, but it runs only while the
// dispatcher has handed control to it. All suspension goes through
// Await/AwaitWithTimeout; a thread that blocks any other way (channel
// receive, mutex, sleep) breaks the determinism contract.
type Thread struct {
	name  string
	d     *Dispatcher
	scope *Scope

	// handoff channels: the dispatcher sends on resume to run the
	// thread, the thread sends on yielded to give control back.
	resume  chan struct{}
	yielded chan struct{}

	wait      *waitCond // non-nil while blocked
	done      bool
	destroyed bool
	panicVal  any
	stack     []byte
}

// threadDestroyed is the sentinel panic used to unwind a suspended
// thread when the dispatcher shuts down. It never escapes run.
type threadDestroyed struct{}

// Name returns the thread's diagnostic name.
func (t *Thread) Name() string {
	return t.name
}

// Scope returns the thread's cancellation scope.
func (t *Thread) Scope() *Scope {
	return t.scope
}

// Canceled returns a *CanceledError if the thread's enclosing
// cancellation scope (or any ancestor) is cancelled, nil otherwise.
// Cancellable operations call this from their await predicates.
func (t *Thread) Canceled() error {
	return t.scope.Err()
}

// Await suspends the thread until cond evaluates true.
//
// reason is diagnostic only; it appears in deadlock reports. cond must
// be pure: the dispatcher re-evaluates it after every handoff and the
// thread resumes only once it holds. If cond already holds the thread
// does not yield.
func (t *Thread) Await(reason string, cond func() bool) {
	if cond() {
		return
	}
	t.wait = &waitCond{reason: reason, cond: cond}
	t.yield()
}

// AwaitWithTimeout suspends the thread until cond evaluates true or
// the timeout elapses on the logical clock. The timeout is converted
// once to whole milliseconds. Returns the final value of cond, so a
// timed-out wait returns false.
//
// A non-positive timeout never waits: the result is the immediate
// value of cond.
func (t *Thread) AwaitWithTimeout(timeout time.Duration, reason string, cond func() bool) bool {
	if cond() {
		return true
	}
	millis := timeout.Milliseconds()
	if millis <= 0 {
		return false
	}
	t.wait = &waitCond{
		reason:      reason,
		cond:        cond,
		deadline:    t.d.clock.Now() + millis,
		hasDeadline: true,
	}
	t.yield()
	return cond()
}

// yield hands control back to the dispatcher and parks until resumed.
// A resume issued by Dispatcher.Close unwinds the thread instead.
func (t *Thread) yield() {
	t.yielded <- struct{}{}
	<-t.resume
	if t.destroyed {
		panic(threadDestroyed{})
	}
}

// run is the goroutine body. It parks until the dispatcher's first
// resume, then executes fn to completion, capturing panics so the
// dispatcher can surface them as ExecErrors.
func (t *Thread) run(fn func(t *Thread)) {
	<-t.resume
	defer func() {
		if r := recover(); r != nil {
			if _, unwind := r.(threadDestroyed); !unwind {
				t.panicVal = r
				t.stack = debug.Stack()
			}
		}
		t.done = true
		t.yielded <- struct{}{}
	}()
	if t.destroyed {
		return
	}
	fn(t)
}
