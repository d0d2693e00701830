package account

import (
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"
	"extension-portal/test"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, string) {
	test.Setup(t)
	m := &ModuleAccount{}
	m.Init()
	r := gin.New()
	api := r.Group("/api")
	m.InitRouter(api)
	api.GET("/whoami", middleware.Auth(jwt.RoleImplementor), func(c *gin.Context) {
		response.Success(c)
	})
	_, admin := test.CreateUser(t, "admin", jwt.RoleAdmin, "Admin")
	return r, admin
}

func TestCreateAccount(t *testing.T) {
	r, admin := setup(t)
	body := gin.H{
		"username":   "maria",
		"password":   "password123",
		"role_id":    jwt.RoleReviewer,
		"name":       "Maria Santos",
		"email":      "maria@example.edu",
		"department": "CAS",
	}

	var u model.User
	w := test.Call(t, r, http.MethodPost, "/api/accounts", admin, body)
	test.NoError(t, test.Decode(t, w, &u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, jwt.RoleReviewer, u.RoleID)
	assert.Empty(t, u.Password)

	w = test.Call(t, r, http.MethodPost, "/api/accounts", admin, body)
	test.Status(t, w, response.ErrAlreadyExists)

	w = test.Call(t, r, http.MethodPost, "/api/accounts", admin, gin.H{"username": "x", "password": "short"})
	test.Status(t, w, response.ErrValidation)
}

func TestAccountRoutesRequireAdmin(t *testing.T) {
	r, _ := setup(t)
	_, tok := test.CreateUser(t, "rev", jwt.RoleReviewer, "R")
	w := test.Call(t, r, http.MethodGet, "/api/accounts", tok, nil)
	test.Status(t, w, response.ErrUnauthorized)
}

func TestListAccounts(t *testing.T) {
	r, admin := setup(t)
	test.CreateUser(t, "a", jwt.RoleReviewer, "A")
	test.CreateUser(t, "b", jwt.RoleReviewer, "B")
	test.CreateUser(t, "c", jwt.RoleImplementor, "C")

	var out struct {
		List  []model.User `json:"list"`
		Total int64        `json:"total"`
	}
	w := test.Call(t, r, http.MethodGet, fmt.Sprintf("/api/accounts?role_id=%d", jwt.RoleReviewer), admin, nil)
	test.NoError(t, test.Decode(t, w, &out))
	assert.Equal(t, int64(2), out.Total)
	assert.Len(t, out.List, 2)
}

func TestDeleteAccountRevokesToken(t *testing.T) {
	r, admin := setup(t)
	u, tok := test.CreateUser(t, "owner", jwt.RoleImplementor, "Owner")

	require.Equal(t, http.StatusOK, test.Call(t, r, http.MethodGet, "/api/whoami", tok, nil).Code)

	w := test.Call(t, r, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", u.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	test.Status(t, test.Call(t, r, http.MethodGet, "/api/whoami", tok, nil), response.ErrAuthExpired)
	test.Status(t, test.Call(t, r, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", u.ID), admin, nil), response.ErrNotFound)

	// 用户名可以重新使用
	test.CreateUser(t, "owner", jwt.RoleImplementor, "Owner")
}

func TestDeleteSelfRejected(t *testing.T) {
	r, _ := setup(t)
	me, tok := test.CreateUser(t, "root", jwt.RoleAdmin, "Root")
	w := test.Call(t, r, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", me.ID), tok, nil)
	test.Status(t, w, response.ErrValidation)
}

func TestDeleteReviewerReleasesOpenAssignments(t *testing.T) {
	r, admin := setup(t)
	owner, _ := test.CreateUser(t, "owner", jwt.RoleImplementor, "Owner")
	rv, _ := test.CreateUser(t, "maria", jwt.RoleReviewer, "Maria")
	open := test.CreateProgram(t, owner.ID, "open", string(review.StatusForReview))
	done := test.CreateProgram(t, owner.ID, "done", string(review.StatusApproved))
	require.NoError(t, database.DB.Create(&model.Assignment{ProposalID: open.ID, ReviewerID: rv.ID}).Error)
	require.NoError(t, database.DB.Create(&model.Assignment{ProposalID: done.ID, ReviewerID: rv.ID}).Error)

	w := test.Call(t, r, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", rv.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, string(review.StatusUnderReview), test.ProgramStatus(t, open.ID))
	assert.Equal(t, string(review.StatusApproved), test.ProgramStatus(t, done.ID))

	var left []model.Assignment
	require.NoError(t, database.DB.Preload("Reviewer").Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, done.ID, left[0].ProposalID)
	// 账号已删除，资料缺失
	assert.Nil(t, left[0].ToReview().Profile)
}
