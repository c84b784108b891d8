// Package history defines the decision-task and history-event
// contracts consumed by the replay side of the runtime.
//
// A decision task pairs the unit of work a workflow execution
// processes with the portion of event history needed to advance it.
// History is exposed as a single forward-only sequence; consumers are
// never exposed to page boundaries. The package has no blocking or
// cancellation semantics of its own.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DecisionTask is the unit of work handed to a workflow execution.
// The payload is opaque to this package.
type DecisionTask struct {
	// TaskID uniquely identifies this task delivery.
	TaskID string `json:"task_id"`

	// RunID identifies the workflow execution the task belongs to.
	RunID string `json:"run_id"`

	// Attempt counts deliveries of the same task, starting at 1.
	Attempt int `json:"attempt"`

	// Payload is the opaque task body.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewDecisionTask creates a first-attempt task for a run.
func NewDecisionTask(runID string, payload json.RawMessage) DecisionTask {
	return DecisionTask{
		TaskID:  uuid.NewString(),
		RunID:   runID,
		Attempt: 1,
		Payload: payload,
	}
}

// Event is one history event. IDs are strictly increasing within a
// run and assigned by the producer, never by this package.
type Event struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
}

// Iterator walks a history in event-ID order. Usage follows the
// sql.Rows shape:
//
//	for it.Next() {
//	    e := it.Event()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next event. Returns false at the end of the
	// history or on error; check Err to tell the two apart.
	Next() bool

	// Event returns the current event. Valid only after a true Next.
	Event() Event

	// Err returns the first error encountered while fetching.
	Err() error
}

// TaskWithHistory pairs a decision task with its history. The iterator
// paginates behind the scenes; callers observe one ordered sequence.
type TaskWithHistory interface {
	Task() DecisionTask
	History() Iterator
}

// NewTaskWithHistory binds a task to a history iterator.
func NewTaskWithHistory(task DecisionTask, it Iterator) TaskWithHistory {
	return &taskWithHistory{task: task, it: it}
}

type taskWithHistory struct {
	task DecisionTask
	it   Iterator
}

func (t *taskWithHistory) Task() DecisionTask { return t.task }
func (t *taskWithHistory) History() Iterator  { return t.it }

// Pager fetches one page of history events with IDs greater than
// afterID, in ID order, at most limit events. A short (or empty) page
// signals the end of the history.
type Pager interface {
	Page(afterID int64, limit int) ([]Event, error)
}

// DefaultPageSize is used when Iterate is given a non-positive size.
const DefaultPageSize = 100

// Iterate returns a forward-only iterator over p, fetching pages
// lazily as the consumer advances. The page size is a fetch-granularity
// knob only; it never changes the observed sequence.
func Iterate(p Pager, pageSize int) Iterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &pagedIterator{pager: p, pageSize: pageSize}
}

type pagedIterator struct {
	pager    Pager
	pageSize int

	page    []Event
	idx     int // next index into page
	afterID int64
	done    bool
	err     error
}

func (it *pagedIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.idx < len(it.page) {
		it.afterID = it.page[it.idx].ID
		it.idx++
		return true
	}
	if it.done {
		return false
	}

	page, err := it.pager.Page(it.afterID, it.pageSize)
	if err != nil {
		it.err = fmt.Errorf("fetch history page after %d: %w", it.afterID, err)
		return false
	}
	if len(page) < it.pageSize {
		it.done = true
	}
	if len(page) == 0 {
		return false
	}
	it.page = page
	it.idx = 1
	it.afterID = page[0].ID
	return true
}

func (it *pagedIterator) Event() Event {
	return it.page[it.idx-1]
}

func (it *pagedIterator) Err() error {
	return it.err
}

// Slice returns an iterator over an in-memory event list. Useful for
// tests and for histories already fully loaded.
func Slice(events []Event) Iterator {
	return &sliceIterator{events: events}
}

type sliceIterator struct {
	events []Event
	idx    int
}

func (it *sliceIterator) Next() bool {
	if it.idx >= len(it.events) {
		return false
	}
	it.idx++
	return true
}

func (it *sliceIterator) Event() Event { return it.events[it.idx-1] }
func (it *sliceIterator) Err() error   { return nil }

// Collect drains an iterator into a slice.
func Collect(it Iterator) ([]Event, error) {
	var out []Event
	for it.Next() {
		out = append(out, it.Event())
	}
	return out, it.Err()
}
