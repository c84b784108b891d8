package sched

// Clock is the logical time source for one workflow execution.
//
// It carries two independent counters:
//
//   - a millisecond clock used for timed awaits. It only moves when the
//     dispatcher advances it to a pending deadline, never from wall time.
//   - a monotonic seq counter used to stamp trace events in decision
//     order.
//
// Thread-safety: the clock is owned by the dispatcher and mutated only
// between thread handoffs, so no locking is needed. The handoff
// channels provide the necessary memory ordering.
type Clock struct {
	now int64 // logical milliseconds
	seq int64
}

// NewClock creates a clock at time 0, seq 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific logical time.
// Used to resume a replay from a known position.
func NewClockAt(nowMillis int64) *Clock {
	return &Clock{now: nowMillis}
}

// Now returns the current logical time in milliseconds.
func (c *Clock) Now() int64 {
	return c.now
}

// Advance moves logical time forward to the given instant.
// Requests to move backwards are ignored; time is monotonic.
func (c *Clock) Advance(toMillis int64) {
	if toMillis > c.now {
		c.now = toMillis
	}
}

// Next returns the next sequence number and increments the counter.
// Each call returns a unique, strictly increasing value.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq
}
