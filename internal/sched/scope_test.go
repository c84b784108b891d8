package sched

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_NotCanceledByDefault(t *testing.T) {
	s := NewScope("root")

	assert.False(t, s.Canceled())
	assert.NoError(t, s.Err())
}

func TestScope_CancelMarksScope(t *testing.T) {
	s := NewScope("root")

	s.Cancel("shutting down")

	assert.True(t, s.Canceled())

	err := s.Err()
	require.Error(t, err)

	var ce *CanceledError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "root", ce.Scope)
	assert.Equal(t, "shutting down", ce.Reason)
}

func TestScope_CancelIsIdempotent(t *testing.T) {
	s := NewScope("root")

	s.Cancel("first")
	s.Cancel("second")

	var ce *CanceledError
	require.ErrorAs(t, s.Err(), &ce)
	assert.Equal(t, "first", ce.Reason, "first cancel reason wins")
}

func TestScope_ParentCancelReachesChildren(t *testing.T) {
	root := NewScope("root")
	child := root.Child("child")
	grandchild := child.Child("grandchild")

	root.Cancel("abort")

	assert.True(t, child.Canceled())
	assert.True(t, grandchild.Canceled())

	// Err names the cancelled ancestor, not the leaf
	var ce *CanceledError
	require.ErrorAs(t, grandchild.Err(), &ce)
	assert.Equal(t, "root", ce.Scope)
}

func TestScope_ChildCancelDoesNotReachParent(t *testing.T) {
	root := NewScope("root")
	child := root.Child("child")

	child.Cancel("local abort")

	assert.True(t, child.Canceled())
	assert.False(t, root.Canceled())
	assert.NoError(t, root.Err())
}

func TestScope_ChildCreatedAfterCancelIsCanceled(t *testing.T) {
	root := NewScope("root")
	root.Cancel("abort")

	late := root.Child("late")
	assert.True(t, late.Canceled())
}

func TestIsCanceled(t *testing.T) {
	s := NewScope("s")
	s.Cancel("x")

	assert.True(t, IsCanceled(s.Err()))
	assert.True(t, IsCanceled(fmt.Errorf("op failed: %w", s.Err())))
	assert.False(t, IsCanceled(nil))
	assert.False(t, IsCanceled(errors.New("other")))
}
