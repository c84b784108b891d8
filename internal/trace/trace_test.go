package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	return []Event{
		{Seq: 1, Thread: "producer", Op: "offer", Value: "A", OK: true},
		{Seq: 2, Thread: "producer", Op: "offer", Value: "B", OK: true},
		{Seq: 3, Thread: "consumer", Op: "take", Value: "B", OK: true},
		{Seq: 4, Thread: "consumer", Op: "poll", OK: false},
	}
}

func TestTrace_FingerprintIsStable(t *testing.T) {
	a := New("demo")
	b := New("demo")
	for _, e := range sampleEvents() {
		a.Append(e)
		b.Append(e)
	}

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
	assert.Len(t, fpA, 64, "hex sha-256")
}

func TestTrace_FingerprintDetectsDivergence(t *testing.T) {
	a := New("demo")
	b := New("demo")
	for _, e := range sampleEvents() {
		a.Append(e)
	}
	for _, e := range sampleEvents() {
		e.Value += "!"
		b.Append(e)
	}

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}

func TestTrace_ScenarioNameIsPartOfIdentity(t *testing.T) {
	a := New("one")
	b := New("two")

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}

func TestTrace_AppendPanicsOnSeqRegression(t *testing.T) {
	tr := New("demo")
	tr.Append(Event{Seq: 5, Thread: "t", Op: "offer"})

	assert.Panics(t, func() {
		tr.Append(Event{Seq: 5, Thread: "t", Op: "offer"})
	})
	assert.Panics(t, func() {
		tr.Append(Event{Seq: 4, Thread: "t", Op: "offer"})
	})
}

func TestEncodeDecodeEvent(t *testing.T) {
	in := Event{Seq: 9, Thread: "w", Op: "cancellable_take", Canceled: true}

	payload, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeEvent([]byte("{not json"))
	require.Error(t, err)
}

func TestFingerprintEvents_MatchesTraceFingerprint(t *testing.T) {
	tr := New("demo")
	for _, e := range sampleEvents() {
		tr.Append(e)
	}

	want, err := tr.Fingerprint()
	require.NoError(t, err)

	got, err := FingerprintEvents("demo", sampleEvents())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
