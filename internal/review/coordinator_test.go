package review

import (
	"context"
	"errors"
	"extension-portal/internal/global/response"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend 内存中的后端，记录每次创建调用
type fakeBackend struct {
	mu          sync.Mutex
	nextID      uint
	assignments []Assignment
	statuses    map[uint]Status
	reviewers   []Reviewer
	createCalls []uint
	failFor     map[uint]error
	// 非空时 ListAssignments 取完数据后阻塞，直到 channel 关闭
	gate chan struct{}
	// 非空时 ListAssignments 取完数据后关闭它
	listed chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:   100,
		statuses: map[uint]Status{},
		failFor:  map[uint]error{},
		reviewers: []Reviewer{
			{ID: 5, Profile: &Profile{Name: "Maria Santos", Department: "CAS"}},
			{ID: 7, Profile: &Profile{Name: "Jose Reyes", Department: "CoE"}},
			{ID: 9},
		},
	}
}

func (f *fakeBackend) seed(proposalID, reviewerID uint) Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := Assignment{ID: f.nextID, ProposalID: proposalID, ReviewerID: reviewerID, AssignedAt: time.Now()}
	f.assignments = append(f.assignments, a)
	return a
}

func (f *fakeBackend) ListReviewers(context.Context) ([]Reviewer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Reviewer{}, f.reviewers...), nil
}

func (f *fakeBackend) ListAssignments(ctx context.Context, proposalID uint) ([]Assignment, error) {
	f.mu.Lock()
	var out []Assignment
	for _, a := range f.assignments {
		if proposalID == 0 || a.ProposalID == proposalID {
			out = append(out, a)
		}
	}
	gate, listed := f.gate, f.listed
	f.listed = nil
	f.mu.Unlock()

	if listed != nil {
		close(listed)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateAssignment(_ context.Context, proposalID, reviewerID uint) (Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, reviewerID)
	if err := f.failFor[reviewerID]; err != nil {
		return Assignment{}, err
	}
	for _, a := range f.assignments {
		if a.ProposalID == proposalID && a.ReviewerID == reviewerID {
			return Assignment{}, response.ErrAlreadyExists
		}
	}
	f.nextID++
	a := Assignment{ID: f.nextID, ProposalID: proposalID, ReviewerID: reviewerID, AssignedAt: time.Now()}
	f.assignments = append(f.assignments, a)
	if f.statuses[proposalID] == StatusUnderReview {
		f.statuses[proposalID] = StatusForReview
	}
	return a, nil
}

func (f *fakeBackend) DeleteAssignment(_ context.Context, assignmentID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.assignments {
		if a.ID == assignmentID {
			f.assignments = append(f.assignments[:i], f.assignments[i+1:]...)
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeBackend) ProposalStatus(_ context.Context, proposalID uint) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[proposalID]
	if !ok {
		return StatusDraft, response.ErrNotFound
	}
	return st, nil
}

func (f *fakeBackend) calls() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint{}, f.createCalls...)
}

func TestAssignSkipsAlreadyAssigned(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[42] = StatusForReview
	fb.seed(42, 5)
	c := NewCoordinator(fb, nil)

	res, err := c.Assign(context.Background(), 42, []uint{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, res.Created)
	assert.Equal(t, []uint{5}, res.Skipped)
	assert.Empty(t, res.Failed)
	assert.Equal(t, []uint{7}, fb.calls())
	assert.Len(t, c.ListAssigned(42), 2)
}

func TestAssignTwiceIsIdempotent(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[1] = StatusUnderReview
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	first, err := c.Assign(ctx, 1, []uint{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []uint{5, 7}, first.Created)

	second, err := c.Assign(ctx, 1, []uint{5, 7})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.ElementsMatch(t, []uint{5, 7}, second.Skipped)
	assert.Len(t, fb.calls(), 2)

	perReviewer := map[uint]int{}
	for _, a := range c.ListAssigned(1) {
		perReviewer[a.ReviewerID]++
	}
	assert.Equal(t, map[uint]int{5: 1, 7: 1}, perReviewer)
}

func TestAssignEmptySetDoesNotCallBackend(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[1] = StatusForReview
	fb.seed(1, 5)
	c := NewCoordinator(fb, nil)

	res, err := c.Assign(context.Background(), 1, []uint{5, 5, 0})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []uint{5}, res.Skipped)
	assert.Empty(t, fb.calls())
}

func TestAssignUnassignRoundTripsStatus(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[3] = StatusUnderReview
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	res, err := c.Assign(ctx, 3, []uint{5})
	require.NoError(t, err)
	st, _ := c.Status(3)
	assert.Equal(t, StatusForReview, st)

	require.NoError(t, c.Unassign(ctx, res.Assignments[0].ID))
	st, _ = c.Status(3)
	assert.Equal(t, StatusUnderReview, st)
	assert.Empty(t, c.ListAssigned(3))
}

func TestUnassignUnknownIsNotFound(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[3] = StatusForReview
	fb.seed(3, 5)
	c := NewCoordinator(fb, nil)
	_, err := c.Refresh(context.Background(), 3)
	require.NoError(t, err)
	before := c.ListAssigned(0)

	err = c.Unassign(context.Background(), 9999)
	assert.True(t, errors.Is(err, response.ErrNotFound))
	assert.Equal(t, before, c.ListAssigned(0))
}

func TestTerminalProposalRejectsMutation(t *testing.T) {
	for _, term := range []Status{StatusApproved, StatusRejected} {
		fb := newFakeBackend()
		fb.statuses[8] = term
		seeded := fb.seed(8, 5)
		c := NewCoordinator(fb, nil)

		_, err := c.Assign(context.Background(), 8, []uint{7})
		assert.True(t, errors.Is(err, response.ErrInvalidStateTransition), term)
		assert.Empty(t, fb.calls())

		err = c.Unassign(context.Background(), seeded.ID)
		assert.True(t, errors.Is(err, response.ErrInvalidStateTransition), term)
		assert.Len(t, c.ListAssigned(8), 1)

		st, _ := c.Status(8)
		assert.Equal(t, term, st)
	}
}

func TestAssignDraftIsValidationError(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[4] = StatusDraft
	c := NewCoordinator(fb, nil)

	_, err := c.Assign(context.Background(), 4, []uint{5})
	assert.True(t, errors.Is(err, response.ErrValidation))
	assert.Empty(t, fb.calls())
}

func TestAssignPartialFailureKeepsSuccesses(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[6] = StatusUnderReview
	fb.failFor[7] = response.ErrTransport
	c := NewCoordinator(fb, nil)

	res, err := c.Assign(context.Background(), 6, []uint{5, 7, 9})
	require.Error(t, err)

	var pf *PartialFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, []uint{7}, pf.Failed)
	assert.True(t, errors.Is(err, response.ErrTransport))

	assert.Equal(t, []uint{5, 9}, res.Created)
	assert.Equal(t, []uint{7}, res.Failed)
	assert.Len(t, c.ListAssigned(6), 2)

	// 只重试失败的那一个
	delete(fb.failFor, 7)
	retry, err := c.Assign(context.Background(), 6, pf.Failed)
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, retry.Created)
}

func TestAssignStopsOnAuthExpired(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[6] = StatusUnderReview
	fb.failFor[5] = response.ErrAuthExpired
	c := NewCoordinator(fb, nil)

	_, err := c.Assign(context.Background(), 6, []uint{5, 7})
	var pf *PartialFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, []uint{5, 7}, pf.Failed)
	assert.Equal(t, []uint{5}, fb.calls())
	assert.True(t, errors.Is(err, response.ErrAuthExpired))
}

func TestAssignBackendDuplicateIsSkipped(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[2] = StatusForReview
	c := NewCoordinator(fb, nil)
	_, err := c.Refresh(context.Background(), 2)
	require.NoError(t, err)

	// 缓存之外有人已分配
	fb.seed(2, 7)
	res, err := c.Assign(context.Background(), 2, []uint{7})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []uint{7}, res.Skipped)
}

func TestConcurrentAssignNeverDoubleCreates(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[11] = StatusUnderReview
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Assign(ctx, 11, []uint{5, 7, 9})
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []uint{5, 7, 9}, fb.calls())
	assert.Len(t, c.ListAssigned(11), 3)
}

func TestRefreshMergesDirectory(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[42] = StatusForReview
	fb.seed(42, 5)
	fb.seed(42, 9)
	fb.seed(43, 7)
	c := NewCoordinator(fb, nil)

	view, err := c.Refresh(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), c.Focus())
	assert.Equal(t, StatusForReview, view.Status)
	assert.Len(t, view.Assignments, 2)
	assert.Len(t, view.Reviewers, 3)
	require.Len(t, view.Selected, 2)
	assert.Equal(t, "Maria Santos", view.Selected[0].Name)
	assert.Equal(t, "CAS", view.Selected[0].Department)
	assert.Equal(t, UnknownReviewer, view.Selected[1].Name)
}

func TestRefreshDiscardsLateResponse(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[1] = StatusForReview
	fb.statuses[2] = StatusUnderReview
	fb.seed(1, 5)
	fb.gate = make(chan struct{})
	c := NewCoordinator(fb, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background(), 1)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Focus() == 1 }, time.Second, time.Millisecond)
	c.Close()
	close(fb.gate)

	err := <-done
	assert.True(t, errors.Is(err, ErrFocusChanged))
	assert.Empty(t, c.ListAssigned(1))
	_, ok := c.Status(1)
	assert.False(t, ok)
}

func TestRefreshAllProposals(t *testing.T) {
	fb := newFakeBackend()
	fb.seed(1, 5)
	fb.seed(2, 7)
	fb.seed(2, 5)
	c := NewCoordinator(fb, nil)

	view, err := c.Refresh(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, view.Assignments, 3)

	all := c.ListAssigned(0)
	require.Len(t, all, 3)
	assert.Equal(t, uint(1), all[0].ProposalID)
	assert.Len(t, c.ListAssigned(2), 2)
}

func TestListAssignedReturnsCopies(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[1] = StatusForReview
	fb.seed(1, 5)
	c := NewCoordinator(fb, nil)
	_, err := c.Refresh(context.Background(), 1)
	require.NoError(t, err)

	got := c.ListAssigned(1)
	got[0].ReviewerID = 999
	assert.Equal(t, uint(5), c.ListAssigned(1)[0].ReviewerID)
}

func TestSearch(t *testing.T) {
	reviewers := []Reviewer{
		{ID: 1, Profile: &Profile{Name: "Maria Santos"}},
		{ID: 2, Profile: &Profile{Name: "Jose Reyes"}},
		{ID: 3},
		{ID: 4, Profile: &Profile{}},
	}
	assert.Len(t, Search(reviewers, ""), 4)

	got := Search(reviewers, "SAN")
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)

	unknown := Search(reviewers, "unknown")
	assert.Len(t, unknown, 2)
	assert.Empty(t, Search(reviewers, "zzz"))
}

func TestPartialFailureMessage(t *testing.T) {
	pf := &PartialFailure{ProposalID: 3, Failed: []uint{7, 9}, Causes: map[uint]error{7: response.ErrTransport}}
	assert.Contains(t, pf.Error(), "7, 9")
	assert.Len(t, pf.Unwrap(), 1)
}

func TestUnassignAfterOverviewGuardsTerminal(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[1] = StatusApproved
	seeded := fb.seed(1, 5)
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	_, err := c.Refresh(ctx, 0)
	require.NoError(t, err)
	_, ok := c.Status(1)
	require.False(t, ok)

	err = c.Unassign(ctx, seeded.ID)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
	assert.Len(t, fb.assignments, 1)
	assert.Len(t, c.ListAssigned(1), 1)
	st, ok := c.Status(1)
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, st)
}

func TestUnassignAfterOverviewKeepsRealStatus(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[2] = StatusForReview
	first := fb.seed(2, 5)
	fb.seed(2, 7)
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	_, err := c.Refresh(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, c.Unassign(ctx, first.ID))

	st, ok := c.Status(2)
	assert.True(t, ok)
	assert.Equal(t, StatusForReview, st)

	res, err := c.Assign(ctx, 2, []uint{9})
	require.NoError(t, err)
	assert.Equal(t, []uint{9}, res.Created)
	assert.Equal(t, []uint{9}, fb.calls())
}

func TestUnassignLastAfterOverviewReturnsToUnderReview(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[3] = StatusForReview
	only := fb.seed(3, 5)
	c := NewCoordinator(fb, nil)
	ctx := context.Background()

	_, err := c.Refresh(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, c.Unassign(ctx, only.ID))

	st, _ := c.Status(3)
	assert.Equal(t, StatusUnderReview, st)
}

func TestRefreshKeepsAssignmentCommittedDuringFetch(t *testing.T) {
	fb := newFakeBackend()
	fb.statuses[4] = StatusUnderReview
	c := NewCoordinator(fb, nil)
	ctx := context.Background()
	_, err := c.Refresh(ctx, 4)
	require.NoError(t, err)

	fb.mu.Lock()
	fb.gate = make(chan struct{})
	fb.listed = make(chan struct{})
	listed := fb.listed
	fb.mu.Unlock()

	done := make(chan *View, 1)
	go func() {
		view, err := c.Refresh(ctx, 4)
		assert.NoError(t, err)
		done <- view
	}()
	<-listed

	// 拉取已经取完快照，此时的分配不在拉取结果里
	res, err := c.Assign(ctx, 4, []uint{5})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	close(fb.gate)

	view := <-done
	require.NotNil(t, view)
	assert.Len(t, view.Assignments, 1)
	assert.Equal(t, StatusForReview, view.Status)
	require.Len(t, c.ListAssigned(4), 1)
	assert.Equal(t, res.Assignments[0].ID, c.ListAssigned(4)[0].ID)
	st, _ := c.Status(4)
	assert.Equal(t, StatusForReview, st)
}
