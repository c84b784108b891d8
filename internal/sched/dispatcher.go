package sched

import "fmt"

// Dispatcher owns the logical threads of one workflow execution and
// decides which thread runs next.
//
// Threads are resumed in creation order on every pass. A blocked
// thread becomes runnable when its await predicate holds or its
// deadline has passed on the logical clock. The dispatcher is the only
// party that evaluates predicates.
type Dispatcher struct {
	clock   *Clock
	root    *Scope
	threads []*Thread
	running bool
}

// NewDispatcher creates a dispatcher with a fresh logical clock and a
// root cancellation scope.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		clock: NewClock(),
		root:  NewScope("root"),
	}
}

// Clock returns the dispatcher's logical clock.
func (d *Dispatcher) Clock() *Clock {
	return d.clock
}

// RootScope returns the execution-wide cancellation scope.
func (d *Dispatcher) RootScope() *Scope {
	return d.root
}

// Go registers a logical thread under the root scope. The thread does
// not run until Run is called; threads created from inside a running
// thread join the current pass in creation order.
func (d *Dispatcher) Go(name string, fn func(t *Thread)) *Thread {
	return d.GoScoped(name, d.root, fn)
}

// GoScoped registers a logical thread under the given cancellation
// scope.
func (d *Dispatcher) GoScoped(name string, scope *Scope, fn func(t *Thread)) *Thread {
	t := &Thread{
		name:    name,
		d:       d,
		scope:   scope,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
	d.threads = append(d.threads, t)
	go t.run(fn)
	return t
}

// Run drives all threads to completion.
//
// Each pass resumes every runnable thread in creation order, then
// re-evaluates blocked predicates. When nothing is runnable the clock
// jumps to the earliest pending deadline; if there is none, Run fails
// with DEADLOCK_DETECTED. A thread panic aborts the run with
// THREAD_PANIC.
//
// Run is not reentrant and a dispatcher cannot be reused after it
// returns. Call Close to unwind threads left suspended by a failed
// run.
func (d *Dispatcher) Run() error {
	if d.running {
		return &ExecError{Code: ErrCodeDeadlock, Message: "dispatcher already running"}
	}
	d.running = true

	for {
		progress := false

		// Index loop: threads spawned during this pass are reached
		// within the same pass, in creation order.
		for i := 0; i < len(d.threads); i++ {
			t := d.threads[i]
			if t.done {
				continue
			}
			if t.wait != nil && !d.runnable(t) {
				continue
			}
			t.wait = nil
			d.resumeThread(t)
			progress = true
			if t.panicVal != nil {
				return &ExecError{
					Code:    ErrCodeThreadPanic,
					Message: fmt.Sprintf("panic: %v", t.panicVal),
					Thread:  t.name,
					Details: map[string]string{"stack": string(t.stack)},
				}
			}
		}

		if d.allDone() {
			return nil
		}
		if progress {
			continue
		}

		// Nothing runnable. Fire the earliest timer, if any.
		if deadline, ok := d.nextDeadline(); ok {
			d.clock.Advance(deadline)
			continue
		}

		return d.deadlockError()
	}
}

// Close unwinds every thread that is still suspended, releasing its
// goroutine. Safe to call after Run returns, including after a clean
// run (it is then a no-op). The unwind is a non-recoverable stack
// unwind inside each thread; deferred functions in thread code still
// execute.
func (d *Dispatcher) Close() {
	for _, t := range d.threads {
		if t.done {
			continue
		}
		t.destroyed = true
		d.resumeThread(t)
	}
}

// runnable reports whether a blocked thread may resume: its predicate
// holds or its deadline has passed.
func (d *Dispatcher) runnable(t *Thread) bool {
	w := t.wait
	if w.cond() {
		return true
	}
	return w.hasDeadline && d.clock.Now() >= w.deadline
}

// resumeThread hands control to t and parks until t yields or returns.
func (d *Dispatcher) resumeThread(t *Thread) {
	t.resume <- struct{}{}
	<-t.yielded
}

func (d *Dispatcher) allDone() bool {
	for _, t := range d.threads {
		if !t.done {
			return false
		}
	}
	return true
}

// nextDeadline returns the earliest pending deadline among blocked
// threads.
func (d *Dispatcher) nextDeadline() (int64, bool) {
	var min int64
	found := false
	for _, t := range d.threads {
		if t.done || t.wait == nil || !t.wait.hasDeadline {
			continue
		}
		if !found || t.wait.deadline < min {
			min = t.wait.deadline
			found = true
		}
	}
	return min, found
}

// deadlockError reports every blocked thread and its await reason.
func (d *Dispatcher) deadlockError() error {
	details := make(map[string]string)
	for _, t := range d.threads {
		if t.done || t.wait == nil {
			continue
		}
		details[t.name] = t.wait.reason
	}
	return &ExecError{
		Code:    ErrCodeDeadlock,
		Message: fmt.Sprintf("all %d blocked threads are unrunnable with no pending deadline", len(details)),
		Details: details,
	}
}
