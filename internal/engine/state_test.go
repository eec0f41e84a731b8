package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_AllowedMoves(t *testing.T) {
	assert.NoError(t, Transition(StatusPending, StatusConfirmed))
	assert.NoError(t, Transition(StatusPending, StatusCancelled))
	assert.NoError(t, Transition(StatusConfirmed, StatusCancelled))
	assert.NoError(t, Transition(StatusConfirmed, StatusCompleted))
}

func TestTransition_TerminalStatesAreFrozen(t *testing.T) {
	for _, from := range []BookingStatus{StatusCancelled, StatusCompleted} {
		for _, to := range []BookingStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
			err := Transition(from, to)
			require.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
		}
	}
}

func TestTransition_NoDirectPendingToCompleted(t *testing.T) {
	assert.ErrorIs(t, Transition(StatusPending, StatusCompleted), ErrIllegalTransition)
}

func TestTransitionError_Message(t *testing.T) {
	err := Transition(StatusConfirmed, StatusPending)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRMED")
	assert.Contains(t, err.Error(), "PENDING")
}

func TestCanModify(t *testing.T) {
	assert.True(t, CanModify(StatusPending, PaymentUnpaid))
	assert.True(t, CanModify(StatusPending, PaymentPending))
	assert.False(t, CanModify(StatusPending, PaymentPaid))
	assert.False(t, CanModify(StatusConfirmed, PaymentUnpaid))
	assert.False(t, CanModify(StatusCancelled, PaymentUnpaid))
	assert.False(t, CanModify(StatusCompleted, PaymentPaid))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending))
	assert.True(t, CanCancel(StatusConfirmed))
	assert.False(t, CanCancel(StatusCancelled))
	assert.False(t, CanCancel(StatusCompleted))
}
