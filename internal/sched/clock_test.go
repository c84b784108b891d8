package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Now())
	assert.Equal(t, int64(0), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(5000)
	assert.Equal(t, int64(5000), c.Now())
}

func TestClock_AdvanceIsMonotonic(t *testing.T) {
	c := NewClock()

	c.Advance(100)
	assert.Equal(t, int64(100), c.Now())

	// Moving backwards is ignored
	c.Advance(50)
	assert.Equal(t, int64(100), c.Now())

	c.Advance(100)
	assert.Equal(t, int64(100), c.Now())

	c.Advance(101)
	assert.Equal(t, int64(101), c.Now())
}

func TestClock_NextIncrements(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
	assert.Equal(t, int64(3), c.Next())
}

func TestClock_SeqIndependentOfTime(t *testing.T) {
	c := NewClock()

	c.Advance(9999)
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(9999), c.Now())
}
