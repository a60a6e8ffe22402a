package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryBoard_SuccessAutoClears(t *testing.T) {
	board := NewAdvisoryBoard(20 * time.Millisecond)
	defer board.Stop()

	a := board.Success("Mapping created")
	current, ok := board.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)

	assert.Eventually(t, func() bool {
		_, ok := board.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAdvisoryBoard_ErrorIsSticky(t *testing.T) {
	board := NewAdvisoryBoard(10 * time.Millisecond)
	defer board.Stop()

	a := board.Error("Invalid reconciliation id")
	time.Sleep(40 * time.Millisecond)

	current, ok := board.Current()
	require.True(t, ok)
	assert.Equal(t, AdvisoryError, current.Level)

	assert.True(t, board.Dismiss(a.ID))
	_, ok = board.Current()
	assert.False(t, ok)
}

func TestAdvisoryBoard_ErrorSupersedesPendingSuccess(t *testing.T) {
	board := NewAdvisoryBoard(10 * time.Millisecond)
	defer board.Stop()

	board.Success("saved")
	e := board.Error("failed")
	time.Sleep(40 * time.Millisecond)

	current, ok := board.Current()
	require.True(t, ok)
	assert.Equal(t, e.ID, current.ID)
}

func TestAdvisoryBoard_DismissStaleID(t *testing.T) {
	board := NewAdvisoryBoard(time.Minute)
	defer board.Stop()

	old := board.Error("first")
	board.Error("second")

	assert.False(t, board.Dismiss(old.ID))
	_, ok := board.Current()
	assert.True(t, ok)
}
