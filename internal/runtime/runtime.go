// Package runtime executes coordination scenarios on the deterministic
// scheduler and records their decision traces.
//
// One scenario execution builds a fresh dispatcher, a single bounded
// queue and one logical thread per scripted thread. Every step's
// observable outcome is appended to a trace, stamped with the
// scheduler clock's seq counter. Because the dispatcher interleaves
// threads deterministically, executing the same scenario any number of
// times yields byte-identical canonical traces.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/loom/internal/history"
	"github.com/roach88/loom/internal/queue"
	"github.com/roach88/loom/internal/scenario"
	"github.com/roach88/loom/internal/sched"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/trace"
)

// Run executes the scenario once and returns its trace.
//
// A scheduler failure (deadlock, thread panic) is returned together
// with the partial trace accumulated up to the failure, so callers can
// still show what happened.
func Run(s *scenario.Scenario) (*trace.Trace, error) {
	q, err := queue.New[string](s.Capacity)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	d := sched.NewDispatcher()
	defer d.Close()

	tr := trace.New(s.Name)
	scopes := buildScopes(d, s)

	for _, th := range s.Threads {
		sc := d.RootScope()
		if th.Scope != "" {
			sc = scopes[th.Scope]
		}
		steps := th.Steps
		name := th.Name
		d.GoScoped(name, sc, func(t *sched.Thread) {
			runScript(t, d, tr, q, scopes, name, steps)
		})
	}

	if err := d.Run(); err != nil {
		return tr, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return tr, nil
}

// buildScopes creates one child scope per scope name, in the
// deterministic order the scenario references them.
func buildScopes(d *sched.Dispatcher, s *scenario.Scenario) map[string]*sched.Scope {
	scopes := make(map[string]*sched.Scope)
	add := func(name string) {
		if name != "" && scopes[name] == nil {
			scopes[name] = d.RootScope().Child(name)
		}
	}
	for _, th := range s.Threads {
		add(th.Scope)
		for _, step := range th.Steps {
			add(step.Scope)
		}
	}
	return scopes
}

// runScript interprets one thread's steps. A cancellation aborts the
// remainder of the script, mirroring workflow code unwinding out of a
// cancelled scope.
func runScript(
	t *sched.Thread,
	d *sched.Dispatcher,
	tr *trace.Trace,
	q *queue.Queue[string],
	scopes map[string]*sched.Scope,
	name string,
	steps []scenario.Step,
) {
	record := func(op, value string, ok, canceled bool) {
		tr.Append(trace.Event{
			Seq:      d.Clock().Next(),
			Thread:   name,
			Op:       op,
			Value:    value,
			OK:       ok,
			Canceled: canceled,
		})
	}

	for _, step := range steps {
		timeout := time.Duration(step.TimeoutMS) * time.Millisecond
		var err error
		switch step.Op {
		case scenario.OpOffer:
			record(step.Op, step.Value, q.Offer(step.Value), false)

		case scenario.OpPut:
			q.Put(t, step.Value)
			record(step.Op, step.Value, true, false)

		case scenario.OpCancellablePut:
			err = q.CancellablePut(t, step.Value)
			record(step.Op, step.Value, err == nil, err != nil)

		case scenario.OpOfferWait:
			record(step.Op, step.Value, q.OfferFor(t, step.Value, timeout), false)

		case scenario.OpCancellableOfferWait:
			var ok bool
			ok, err = q.CancellableOfferFor(t, step.Value, timeout)
			record(step.Op, step.Value, ok, err != nil)

		case scenario.OpTake:
			record(step.Op, q.Take(t), true, false)

		case scenario.OpCancellableTake:
			var v string
			v, err = q.CancellableTake(t)
			record(step.Op, v, err == nil, err != nil)

		case scenario.OpPoll:
			v, ok := q.Poll()
			record(step.Op, v, ok, false)

		case scenario.OpPeek:
			v, ok := q.Peek()
			record(step.Op, v, ok, false)

		case scenario.OpPollWait:
			v, ok := q.PollFor(t, timeout)
			record(step.Op, v, ok, false)

		case scenario.OpCancellablePollWait:
			var v string
			var ok bool
			v, ok, err = q.CancellablePollFor(t, timeout)
			record(step.Op, v, ok, err != nil)

		case scenario.OpCancel:
			scopes[step.Scope].Cancel("cancelled by thread " + name)
			record(step.Op, step.Scope, true, false)

		case scenario.OpSleep:
			t.AwaitWithTimeout(timeout, "sleep", func() bool { return false })
			record(step.Op, "", true, false)
		}

		if err != nil {
			// Cancellation ends the script; remaining steps never run.
			return
		}
	}
}

// Result is the outcome of a determinism verification.
type Result struct {
	Scenario      string `json:"scenario"`
	FirstRun      string `json:"first_fingerprint"`
	SecondRun     string `json:"second_fingerprint"`
	Events        int    `json:"events"`
	Deterministic bool   `json:"deterministic"`
}

// Verify executes the scenario twice and compares canonical trace
// fingerprints.
func Verify(s *scenario.Scenario) (Result, error) {
	first, err := Run(s)
	if err != nil {
		return Result{}, err
	}
	second, err := Run(s)
	if err != nil {
		return Result{}, err
	}

	fp1, err := first.Fingerprint()
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint first run: %w", err)
	}
	fp2, err := second.Fingerprint()
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint second run: %w", err)
	}

	return Result{
		Scenario:      s.Name,
		FirstRun:      fp1,
		SecondRun:     fp2,
		Events:        len(first.Events),
		Deterministic: fp1 == fp2,
	}, nil
}

// RunRecorded executes the scenario and persists its trace as the
// history of a new run. Returns the generated run ID.
func RunRecorded(ctx context.Context, s *scenario.Scenario, st *store.Store) (string, *trace.Trace, error) {
	tr, err := Run(s)
	if err != nil {
		return "", tr, err
	}
	fp, err := tr.Fingerprint()
	if err != nil {
		return "", tr, fmt.Errorf("fingerprint: %w", err)
	}

	runID, err := st.CreateRun(ctx, s.Name, fp)
	if err != nil {
		return "", tr, err
	}

	events := make([]history.Event, len(tr.Events))
	for i, e := range tr.Events {
		payload, err := trace.EncodeEvent(e)
		if err != nil {
			return "", tr, fmt.Errorf("encode event %d: %w", e.Seq, err)
		}
		events[i] = history.Event{ID: e.Seq, Type: e.Op, Payload: payload}
	}
	if err := st.AppendEvents(ctx, runID, events); err != nil {
		return "", tr, err
	}
	return runID, tr, nil
}

// VerifyRecorded re-executes the scenario and compares it against a
// recorded run, reading the recorded history back through the lazily
// paginated iterator.
func VerifyRecorded(ctx context.Context, s *scenario.Scenario, st *store.Store, runID string, pageSize int) (Result, error) {
	twh, err := st.LoadTask(ctx, runID, pageSize)
	if err != nil {
		return Result{}, err
	}

	recorded, err := history.Collect(twh.History())
	if err != nil {
		return Result{}, fmt.Errorf("read recorded history: %w", err)
	}
	events := make([]trace.Event, len(recorded))
	for i, he := range recorded {
		e, err := trace.DecodeEvent(he.Payload)
		if err != nil {
			return Result{}, fmt.Errorf("event %d: %w", he.ID, err)
		}
		events[i] = e
	}
	recordedFP, err := trace.FingerprintEvents(s.Name, events)
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint recorded history: %w", err)
	}

	fresh, err := Run(s)
	if err != nil {
		return Result{}, err
	}
	freshFP, err := fresh.Fingerprint()
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint fresh run: %w", err)
	}

	return Result{
		Scenario:      s.Name,
		FirstRun:      recordedFP,
		SecondRun:     freshFP,
		Events:        len(events),
		Deterministic: recordedFP == freshFP,
	}, nil
}
