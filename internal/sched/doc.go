// Package sched implements the loom cooperative deterministic scheduler.
//
// The scheduler multiplexes many logical workflow threads onto a single
// running goroutine at a time. Threads are real goroutines, but control
// is handed off over unbuffered channels so that exactly one thread (or
// the dispatcher itself) executes at any instant. There is no
// preemption: a thread runs until it suspends at an await point or
// returns.
//
// ARCHITECTURE:
//
// Single-Runner Handoff Loop:
// Dispatcher.Run resumes runnable threads in creation order. After each
// handoff it re-evaluates the await predicates of every blocked thread.
// This ordering is fixed, so two runs over the same thread scripts
// produce the same interleaving.
//
// Predicate Suspension:
// A blocking operation never parks on a condition variable. It hands
// the dispatcher a pure predicate via Thread.Await or
// Thread.AwaitWithTimeout and yields. The dispatcher, never the waiting
// thread, decides when the predicate is re-evaluated. Predicates must
// read only workflow state (queue contents, cancellation state) and
// must be side-effect free: they may be evaluated any number of times.
//
// Logical Time:
// Timed awaits are registered against a logical millisecond clock.
// When no thread is runnable and at least one deadline is pending, the
// dispatcher jumps the clock to the earliest deadline. Wall time never
// enters the scheduler, so timeout behavior replays identically.
//
// Deadlock:
// When no thread is runnable and no deadline is pending, Run fails with
// an ExecError carrying code DEADLOCK_DETECTED and the await reasons of
// every blocked thread.
//
// Cancellation:
// Scopes form a tree. Cancelling a scope marks it and is observed by
// its descendants. Cancellation is cooperative: it is surfaced only
// when a cancellable operation re-checks its scope at an await point,
// as a *CanceledError return, never as an interruption.
package sched
