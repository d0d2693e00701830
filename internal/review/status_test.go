package review

import (
	"errors"
	"extension-portal/internal/global/response"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{
	StatusDraft, StatusUnderReview, StatusForReview, StatusForRevision,
	StatusForApproval, StatusApproved, StatusRejected,
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseStatus("draft")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, got)

	_, err = ParseStatus("pending")
	assert.True(t, errors.Is(err, response.ErrValidation))
}

func TestTerminalHasNoExits(t *testing.T) {
	for _, from := range []Status{StatusApproved, StatusRejected} {
		assert.True(t, from.Terminal())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusUnderReview},
		{StatusUnderReview, StatusForReview},
		{StatusForReview, StatusUnderReview},
		{StatusForReview, StatusForRevision},
		{StatusForReview, StatusForApproval},
		{StatusForRevision, StatusForReview},
		{StatusForRevision, StatusUnderReview},
		{StatusForApproval, StatusApproved},
		{StatusForApproval, StatusRejected},
	}
	count := 0
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				count++
			}
		}
	}
	assert.Equal(t, len(allowed), count)
	for _, tr := range allowed {
		assert.NoError(t, Transition(tr.from, tr.to))
	}

	err := Transition(StatusUnderReview, StatusApproved)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
}

func TestSubmit(t *testing.T) {
	st, err := Submit(StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, st)

	_, err = Submit(StatusForReview)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
}

func TestAssignAndUnassignTransitions(t *testing.T) {
	st, err := AfterAssign(StatusUnderReview)
	require.NoError(t, err)
	assert.Equal(t, StatusForReview, st)

	// 已在 for_review 时再分配不改变状态
	st, err = AfterAssign(st)
	require.NoError(t, err)
	assert.Equal(t, StatusForReview, st)

	st, err = AfterUnassign(st, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusForReview, st)

	st, err = AfterUnassign(st, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, st)

	_, err = AfterAssign(StatusDraft)
	assert.True(t, errors.Is(err, response.ErrValidation))

	for _, term := range []Status{StatusApproved, StatusRejected} {
		_, err = AfterAssign(term)
		assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
		_, err = AfterUnassign(term, 0)
		assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
	}
}

func TestDecisionFlow(t *testing.T) {
	_, err := Decide(StatusUnderReview, StatusForApproval)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))

	_, err = Decide(StatusForReview, StatusApproved)
	assert.True(t, errors.Is(err, response.ErrValidation))

	st, err := Decide(StatusForReview, StatusForRevision)
	require.NoError(t, err)
	assert.Equal(t, StatusForRevision, st)

	back, err := Resubmit(st, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusForReview, back)

	back, err = Resubmit(st, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, back)

	_, err = Resubmit(StatusForApproval, 1)
	assert.Error(t, err)

	st, err = Decide(StatusForReview, StatusForApproval)
	require.NoError(t, err)
	final, err := Finalize(st, StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, final)

	_, err = Finalize(StatusForApproval, StatusForReview)
	assert.True(t, errors.Is(err, response.ErrValidation))
	_, err = Finalize(StatusForReview, StatusApproved)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
}
