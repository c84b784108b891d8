// Package trace captures the observable decisions of one workflow
// execution as an ordered event list and fingerprints it.
//
// A trace is the unit of determinism verification: two executions of
// the same scenario are considered identical iff their canonical
// fingerprints match. Serialization for fingerprinting always goes
// through RFC 8785 canonical JSON so that key order, string
// normalization and escaping can never make equal traces look
// different.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Event is one observable decision: a queue operation (or scope
// cancellation) performed by a logical thread, with its outcome.
type Event struct {
	// Seq is the logical sequence number assigned by the scheduler
	// clock. Strictly increasing within a trace.
	Seq int64 `json:"seq"`

	// Thread names the logical thread that performed the operation.
	Thread string `json:"thread"`

	// Op is the operation name (offer, put, take, poll, ...).
	Op string `json:"op"`

	// Value is the element written or observed; empty when the
	// operation had no value (timeout, empty poll, cancel).
	Value string `json:"value"`

	// OK is the operation's boolean outcome: the offer result or the
	// missing-value sentinel of a read. Always true for operations
	// that cannot fail.
	OK bool `json:"ok"`

	// Canceled marks an operation aborted by a cancellation signal.
	Canceled bool `json:"canceled"`
}

// Trace is the ordered decision record of one execution.
type Trace struct {
	Scenario string  `json:"scenario"`
	Events   []Event `json:"events"`
}

// New creates an empty trace for the named scenario.
func New(scenario string) *Trace {
	return &Trace{Scenario: scenario}
}

// Append adds an event. Events must arrive in seq order; Append panics
// on a regression since that indicates a scheduler bug, not bad input.
func (t *Trace) Append(e Event) {
	if n := len(t.Events); n > 0 && e.Seq <= t.Events[n-1].Seq {
		panic(fmt.Sprintf("trace seq regression: %d after %d", e.Seq, t.Events[n-1].Seq))
	}
	t.Events = append(t.Events, e)
}

// Canonical returns the trace's RFC 8785 canonical JSON bytes.
func (t *Trace) Canonical() ([]byte, error) {
	return MarshalCanonical(t.canonicalMap())
}

// Fingerprint returns the hex SHA-256 of the canonical serialization.
func (t *Trace) Fingerprint() (string, error) {
	b, err := t.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalMap lowers the trace to the value domain MarshalCanonical
// accepts. Every field is always present so shape never varies.
func (t *Trace) canonicalMap() map[string]any {
	events := make([]any, len(t.Events))
	for i, e := range t.Events {
		events[i] = e.canonicalMap()
	}
	return map[string]any{
		"scenario": t.Scenario,
		"events":   events,
	}
}

func (e Event) canonicalMap() map[string]any {
	return map[string]any{
		"seq":      e.Seq,
		"thread":   e.Thread,
		"op":       e.Op,
		"value":    e.Value,
		"ok":       e.OK,
		"canceled": e.Canceled,
	}
}

// EncodeEvent serializes a single event as plain JSON for persistence
// as a history event payload.
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode trace event: %w", err)
	}
	return e, nil
}

// FingerprintEvents computes the fingerprint of an event list under a
// scenario name, without building a Trace first. Used when
// reconstructing a trace from persisted history events.
func FingerprintEvents(scenario string, events []Event) (string, error) {
	t := Trace{Scenario: scenario, Events: events}
	return t.Fingerprint()
}
