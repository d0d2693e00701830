package server

import (
	"bytes"
	"context"
	"errors"
	"extension-portal/internal/global/backend"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/global/session"
	"extension-portal/internal/proposal"
	"extension-portal/internal/review"
	"extension-portal/test"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type world struct {
	baseURL string
	admin   *backend.Client
	owner   *backend.Client
}

func newWorld(t *testing.T) *world {
	test.Setup(t)
	InitModules()
	srv := httptest.NewServer(NewRouter())
	t.Cleanup(srv.Close)

	w := &world{baseURL: srv.URL + "/api"}
	test.CreateUser(t, "admin", jwt.RoleAdmin, "Admin")
	test.CreateUser(t, "owner", jwt.RoleImplementor, "Owner")
	w.admin = w.login(t, "admin")
	w.owner = w.login(t, "owner")
	return w
}

func (w *world) login(t *testing.T, username string) *backend.Client {
	t.Helper()
	s, err := session.New(session.NewMemoryStore())
	require.NoError(t, err)
	cli := backend.New(w.baseURL, 5*time.Second, s, nil)
	state, err := cli.Login(context.Background(), username, "password123")
	require.NoError(t, err)
	require.True(t, s.LoggedIn())
	require.NotZero(t, state.UserID)
	return cli
}

func (w *world) reviewer(t *testing.T, username, name string) uint {
	t.Helper()
	acc, err := w.admin.CreateAccount(context.Background(), backend.AccountRequest{
		Username: username,
		Password: "password123",
		RoleID:   jwt.RoleReviewer,
		Name:     name,
	})
	require.NoError(t, err)
	return acc.ID
}

// submitted 申报人保存并提交一份申报书
func (w *world) submitted(t *testing.T) uint {
	t.Helper()
	ctx := context.Background()
	p := proposal.NewProgram()
	p.Title = "Coastal Literacy"
	p.Leader = "Dr. Reyes"
	p.Projects[0].Title = "Reading Camps"
	require.NoError(t, w.owner.SaveProgram(ctx, p))
	require.True(t, p.Saved)
	require.True(t, p.Projects[0].Saved)

	st, err := w.owner.Submit(ctx, p.RecordID)
	require.NoError(t, err)
	require.Equal(t, "under_review", st)
	return p.RecordID
}

func TestPing(t *testing.T) {
	test.Setup(t)
	InitModules()
	w := test.Call(t, NewRouter(), "GET", "/api/ping", "", nil)
	var out map[string]any
	test.NoError(t, test.Decode(t, w, &out))
	assert.Equal(t, "pong", out["message"])
	assert.Equal(t, "ok", out["database"])
}

func TestAssignmentFlowOverHTTP(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	r5 := w.reviewer(t, "maria", "Maria Santos")
	r7 := w.reviewer(t, "jose", "Jose Rizal")
	id := w.submitted(t)

	coord := review.NewCoordinator(w.admin, nil)

	res, err := coord.Assign(ctx, id, []uint{r5})
	require.NoError(t, err)
	assert.Equal(t, []uint{r5}, res.Created)
	st, _ := coord.Status(id)
	assert.Equal(t, review.StatusForReview, st)

	res, err = coord.Assign(ctx, id, []uint{r5, r7})
	require.NoError(t, err)
	assert.Equal(t, []uint{r7}, res.Created)
	assert.Equal(t, []uint{r5}, res.Skipped)

	// 新的协调器从后端加载已有分配，同样跳过
	other := review.NewCoordinator(w.admin, nil)
	res, err = other.Assign(ctx, id, []uint{r5})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []uint{r5}, res.Skipped)

	view, err := coord.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, review.StatusForReview, view.Status)
	require.Len(t, view.Selected, 2)
	assert.Len(t, view.Reviewers, 2)

	for _, a := range coord.ListAssigned(id) {
		require.NoError(t, coord.Unassign(ctx, a.ID))
	}
	st, err = w.admin.ProposalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, review.StatusUnderReview, st)

	err = coord.Unassign(ctx, 12345)
	assert.True(t, errors.Is(err, response.ErrNotFound))
}

func TestTerminalProposalRejectsAssignment(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	r5 := w.reviewer(t, "maria", "Maria Santos")
	id := w.submitted(t)

	coord := review.NewCoordinator(w.admin, nil)
	_, err := coord.Assign(ctx, id, []uint{r5})
	require.NoError(t, err)

	rv := w.login(t, "maria")
	_, err = rv.Decide(ctx, id, "for_approval")
	require.NoError(t, err)
	_, err = w.admin.Finalize(ctx, id, "rejected")
	require.NoError(t, err)

	_, err = coord.Refresh(ctx, id)
	require.NoError(t, err)
	before := coord.ListAssigned(id)

	_, err = coord.Assign(ctx, id, []uint{r5 + 100})
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
	err = coord.Unassign(ctx, before[0].ID)
	assert.True(t, errors.Is(err, response.ErrInvalidStateTransition))
	assert.Equal(t, before, coord.ListAssigned(id))
}

func TestDeletedAccountSessionExpires(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	r5 := w.reviewer(t, "maria", "Maria Santos")

	s, err := session.New(session.NewMemoryStore())
	require.NoError(t, err)
	rv := backend.New(w.baseURL, 5*time.Second, s, nil)
	_, err = rv.Login(ctx, "maria", "password123")
	require.NoError(t, err)

	require.NoError(t, w.admin.DeleteAccount(ctx, r5))

	_, err = rv.GetProgram(ctx, 1)
	assert.True(t, errors.Is(err, response.ErrAuthExpired))
	assert.False(t, s.LoggedIn())
}

func TestCoverPageAndExport(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	r5 := w.reviewer(t, "maria", "Maria Santos")
	id := w.submitted(t)

	_, err := w.owner.CreateCoverPage(ctx, backend.CoverPageRequest{Proposal: id, CoverPageBody: " ", SubmissionDate: "2025-03-01"})
	assert.True(t, errors.Is(err, response.ErrValidation))

	cp, err := w.owner.CreateCoverPage(ctx, backend.CoverPageRequest{Proposal: id, CoverPageBody: "To the Director", SubmissionDate: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, id, cp.ProposalID)
	assert.NotEmpty(t, cp.URL)

	detail, err := w.owner.GetProgram(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Coastal Literacy", detail.Program.Title)
	assert.Equal(t, "under_review", detail.Program.Status)
	require.NotNil(t, detail.Progress)

	_, err = review.NewCoordinator(w.admin, nil).Assign(ctx, id, []uint{r5})
	require.NoError(t, err)
	data, err := w.admin.ExportAssignments(ctx)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("评审分配")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
