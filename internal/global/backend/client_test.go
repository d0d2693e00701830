package backend

import (
	"context"
	"errors"
	"extension-portal/internal/global/response"
	"extension-portal/internal/global/session"
	"extension-portal/internal/proposal"
	"extension-portal/internal/review"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *session.Session) {
	t.Helper()
	s, err := session.New(session.NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, s.Set(session.AuthState{Token: "tok"}))
	return New(srv.URL, 2*time.Second, s, nil), s
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "success", "data": data})
}

func fail(c *gin.Context, status int, code int32, detail string) {
	c.JSON(status, gin.H{"code": code, "msg": detail, "detail": detail})
}

func TestListReviewersSendsBearerToken(t *testing.T) {
	var auth atomic.Value
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/reviewers", func(c *gin.Context) {
			auth.Store(c.GetHeader("Authorization"))
			ok(c, []gin.H{
				{"id": 5, "profile": gin.H{"name": "Maria Santos", "email": "m@x.edu", "department": "CAS"}},
				{"id": 7, "profile": nil},
			})
		})
	})
	cli, _ := newTestClient(t, srv)

	list, err := cli.ListReviewers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth.Load())
	require.Len(t, list, 2)
	assert.Equal(t, "Maria Santos", list[0].DisplayName())
	assert.Nil(t, list[1].Profile)
	assert.Equal(t, review.UnknownReviewer, list[1].DisplayName())
}

func TestListAssignmentsFilter(t *testing.T) {
	var query atomic.Value
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/assignments", func(c *gin.Context) {
			query.Store(c.Query("proposal"))
			ok(c, []gin.H{{"id": 1, "proposal": 42, "reviewer": 5, "assigned_at": time.Now()}})
		})
	})
	cli, _ := newTestClient(t, srv)

	list, err := cli.ListAssignments(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "42", query.Load())
	require.Len(t, list, 1)
	assert.Equal(t, uint(5), list[0].ReviewerID)

	_, err = cli.ListAssignments(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "", query.Load())
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/reviewers", func(c *gin.Context) {
			fail(c, http.StatusUnauthorized, response.ErrTokenInvalid.Code, "登录已过期")
		})
	})
	cli, s := newTestClient(t, srv)

	_, err := cli.ListReviewers(context.Background())
	assert.True(t, errors.Is(err, response.ErrAuthExpired))
	assert.Empty(t, s.Token())
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		code   int32
		want   *response.Error
	}{
		{http.StatusNotFound, 0, response.ErrNotFound},
		{http.StatusConflict, response.ErrInvalidStateTransition.Code, response.ErrInvalidStateTransition},
		{http.StatusConflict, response.ErrAlreadyExists.Code, response.ErrAlreadyExists},
		{http.StatusBadRequest, 0, response.ErrValidation},
		{http.StatusInternalServerError, 0, response.ErrTransport},
		{http.StatusBadGateway, 0, response.ErrTransport},
	}
	for _, tc := range cases {
		srv := newTestServer(t, func(r *gin.Engine) {
			r.POST("/assignments", func(c *gin.Context) {
				fail(c, tc.status, tc.code, "出错了")
			})
		})
		cli, s := newTestClient(t, srv)
		_, err := cli.CreateAssignment(context.Background(), 1, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d code %d: %v", tc.status, tc.code, err)
		assert.Contains(t, err.Error(), "出错了")
		assert.Equal(t, "tok", s.Token(), "only 401 clears the session")
	}
}

func TestTransportFailure(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {})
	cli, _ := newTestClient(t, srv)
	srv.Close()

	_, err := cli.ProposalStatus(context.Background(), 1)
	assert.True(t, errors.Is(err, response.ErrTransport))
}

func TestProposalStatus(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/proposals/:id/status", func(c *gin.Context) {
			if c.Param("id") == "1" {
				ok(c, gin.H{"status": "for_review"})
				return
			}
			ok(c, gin.H{"status": ""})
		})
	})
	cli, _ := newTestClient(t, srv)

	st, err := cli.ProposalStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, review.StatusForReview, st)

	st, err = cli.ProposalStatus(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, review.StatusDraft, st)
}

func TestCoverPageValidatedLocally(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/cover-pages", func(c *gin.Context) {
			hits.Add(1)
			ok(c, gin.H{"id": 3, "proposal": 42, "submission_date": "2025-03-01", "url": "/files/3.xlsx"})
		})
	})
	cli, _ := newTestClient(t, srv)
	ctx := context.Background()

	_, err := cli.CreateCoverPage(ctx, CoverPageRequest{Proposal: 42, CoverPageBody: "  ", SubmissionDate: "2025-03-01"})
	assert.True(t, errors.Is(err, response.ErrValidation))
	_, err = cli.CreateCoverPage(ctx, CoverPageRequest{Proposal: 42, CoverPageBody: "body", SubmissionDate: "03/01/2025"})
	assert.True(t, errors.Is(err, response.ErrValidation))
	assert.Zero(t, hits.Load())

	cp, err := cli.CreateCoverPage(ctx, CoverPageRequest{Proposal: 42, CoverPageBody: "body", SubmissionDate: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), cp.ID)
	assert.Equal(t, "/files/3.xlsx", cp.URL)
}

func TestLoginStoresSession(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/user/login", func(c *gin.Context) {
			var req loginRequest
			_ = c.ShouldBindJSON(&req)
			if req.Password != "secret" {
				fail(c, http.StatusBadRequest, response.ErrInvalidPassword.Code, response.ErrInvalidPassword.Message)
				return
			}
			ok(c, gin.H{"token": "new-token", "user_id": 1, "role_id": 2, "username": req.Username})
		})
	})
	s, err := session.New(nil)
	require.NoError(t, err)
	cli := New(srv.URL, time.Second, s, nil)

	_, err = cli.Login(context.Background(), "admin", "wrong")
	assert.True(t, errors.Is(err, response.ErrInvalidPassword))
	assert.Empty(t, s.Token())

	state, err := cli.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, 2, state.RoleID)
	assert.Equal(t, "new-token", s.Token())

	require.NoError(t, cli.Logout())
	assert.Empty(t, s.Token())
}

func TestSaveProgramMarksTreeSaved(t *testing.T) {
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/programs", func(c *gin.Context) {
			var p proposal.Program
			if err := c.ShouldBindJSON(&p); err != nil {
				fail(c, http.StatusBadRequest, 0, err.Error())
				return
			}
			p.RecordID = 10
			for i, pr := range p.Projects {
				pr.RecordID = uint(20 + i)
				for j, a := range pr.Activities {
					a.RecordID = uint(30 + j)
				}
			}
			ok(c, p)
		})
	})
	cli, _ := newTestClient(t, srv)

	p := proposal.NewProgram()
	p.Title = "Literacy"
	proposal.CreateActivity(p.Projects[0])
	localID := p.Projects[0].ID

	require.NoError(t, cli.SaveProgram(context.Background(), p))
	assert.True(t, p.Eligible())
	assert.Equal(t, uint(10), p.RecordID)
	assert.Equal(t, uint(20), p.Projects[0].RecordID)
	assert.Equal(t, uint(30), p.Projects[0].Activities[0].RecordID)
	assert.Equal(t, localID, p.Projects[0].ID)
}

func TestCoordinatorOverHTTP(t *testing.T) {
	var created atomic.Int32
	srv := newTestServer(t, func(r *gin.Engine) {
		r.GET("/assignments", func(c *gin.Context) {
			ok(c, []gin.H{{"id": 1, "proposal": 42, "reviewer": 5}})
		})
		r.GET("/proposals/:id/status", func(c *gin.Context) {
			ok(c, gin.H{"status": "for_review"})
		})
		r.POST("/assignments", func(c *gin.Context) {
			var req assignmentRequest
			_ = c.ShouldBindJSON(&req)
			created.Add(1)
			ok(c, gin.H{"id": 2, "proposal": req.Proposal, "reviewer": req.Reviewer})
		})
	})
	cli, _ := newTestClient(t, srv)
	coord := review.NewCoordinator(cli, nil)

	res, err := coord.Assign(context.Background(), 42, []uint{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, res.Created)
	assert.Equal(t, []uint{5}, res.Skipped)
	assert.Equal(t, int32(1), created.Load())
}

func TestSubmitProgramRefusesUnsavedRows(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(r *gin.Engine) {
		r.POST("/proposals/:id/submit", func(c *gin.Context) {
			calls.Add(1)
			ok(c, gin.H{"status": "under_review"})
		})
	})
	cli, _ := newTestClient(t, srv)
	ctx := context.Background()

	p := proposal.NewProgram()
	p.Title = "Literacy"
	err := cli.SubmitProgram(ctx, p)
	assert.ErrorIs(t, err, response.ErrValidation)

	// 根节点已保存但新加的活动没有保存
	p.MarkSaved(10)
	p.Projects[0].MarkSaved(20)
	proposal.CreateActivity(p.Projects[0])
	err = cli.SubmitProgram(ctx, p)
	assert.ErrorIs(t, err, response.ErrValidation)
	assert.Zero(t, calls.Load())

	p.Projects[0].Activities[0].MarkSaved(30)
	require.NoError(t, cli.SubmitProgram(ctx, p))
	assert.Equal(t, "under_review", p.Status)
	assert.Equal(t, int32(1), calls.Load())
}
