// Package backend 访问后端记录系统的 HTTP 客户端，实现 review.Backend
package backend

import (
	"context"
	"encoding/json"
	"extension-portal/config"
	"extension-portal/internal/global/httpclient"
	"extension-portal/internal/global/response"
	"extension-portal/internal/global/session"
	"extension-portal/internal/review"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// envelope 后端统一响应体
type envelope struct {
	Code   int32           `json:"code"`
	Msg    string          `json:"msg"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

// Client 每个请求都从 Accessor 取 token；收到 401 时清空会话。不自动重试
type Client struct {
	http    *resty.Client
	session session.Accessor
	log     *slog.Logger
}

var _ review.Backend = (*Client)(nil)

func New(baseURL string, timeout time.Duration, acc session.Accessor, log *slog.Logger) *Client {
	if acc == nil {
		acc = session.Get()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http:    httpclient.New(baseURL, timeout),
		session: acc,
		log:     log,
	}
}

// NewFromConfig 使用 backend 配置段创建客户端
func NewFromConfig(cfg config.Backend, acc session.Accessor, log *slog.Logger) *Client {
	return New(cfg.BaseURL, time.Duration(cfg.TimeoutSec)*time.Second, acc, log)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if tok := c.session.Token(); tok != "" {
		req.SetAuthToken(tok)
	}
	return req
}

// do 发送请求并把 data 解码到 out，out 为 nil 时忽略响应体
func (c *Client) do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Warn("请求后端失败", "method", method, "path", path, "error", err)
		return response.ErrTransport.WithOrigin(err)
	}
	if err := c.check(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return response.ErrTransport.WithOrigin(err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return response.ErrTransport.WithOrigin(err)
	}
	return nil
}

// check 非 2xx 响应转换为错误，401 同时清空会话
func (c *Client) check(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}
	var env envelope
	_ = json.Unmarshal(resp.Body(), &env)
	detail := env.Detail
	if detail == "" {
		detail = env.Msg
	}
	if status == http.StatusUnauthorized {
		if err := c.session.Clear(); err != nil {
			c.log.Warn("清除会话失败", "error", err)
		}
	}
	c.log.Debug("后端返回错误", "status", status, "code", env.Code, "detail", detail)
	return response.FromResponse(status, env.Code, detail)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 登录成功后写入会话
func (c *Client) Login(ctx context.Context, username, password string) (session.AuthState, error) {
	var state session.AuthState
	req := c.request(ctx).SetBody(loginRequest{Username: username, Password: password})
	if err := c.do(req, http.MethodPost, "/user/login", &state); err != nil {
		return session.AuthState{}, err
	}
	if state.Token == "" {
		return session.AuthState{}, response.ErrTransport.WithTips("登录响应缺少 token")
	}
	if err := c.session.Set(state); err != nil {
		return session.AuthState{}, err
	}
	return state, nil
}

func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) ListReviewers(ctx context.Context) ([]review.Reviewer, error) {
	list := []review.Reviewer{}
	if err := c.do(c.request(ctx), http.MethodGet, "/reviewers", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ListAssignments(ctx context.Context, proposalID uint) ([]review.Assignment, error) {
	req := c.request(ctx)
	if proposalID != 0 {
		req.SetQueryParam("proposal", strconv.FormatUint(uint64(proposalID), 10))
	}
	list := []review.Assignment{}
	if err := c.do(req, http.MethodGet, "/assignments", &list); err != nil {
		return nil, err
	}
	return list, nil
}

type assignmentRequest struct {
	Proposal uint `json:"proposal"`
	Reviewer uint `json:"reviewer"`
}

func (c *Client) CreateAssignment(ctx context.Context, proposalID, reviewerID uint) (review.Assignment, error) {
	var a review.Assignment
	req := c.request(ctx).SetBody(assignmentRequest{Proposal: proposalID, Reviewer: reviewerID})
	if err := c.do(req, http.MethodPost, "/assignments", &a); err != nil {
		return review.Assignment{}, err
	}
	return a, nil
}

func (c *Client) DeleteAssignment(ctx context.Context, assignmentID uint) error {
	return c.do(c.request(ctx), http.MethodDelete, fmt.Sprintf("/assignments/%d", assignmentID), nil)
}

type statusResponse struct {
	Status string `json:"status"`
}

func (c *Client) ProposalStatus(ctx context.Context, proposalID uint) (review.Status, error) {
	var out statusResponse
	if err := c.do(c.request(ctx), http.MethodGet, fmt.Sprintf("/proposals/%d/status", proposalID), &out); err != nil {
		return review.StatusDraft, err
	}
	return review.ParseStatus(out.Status)
}

// ExportAssignments 下载全部分配的 xlsx 文件
func (c *Client) ExportAssignments(ctx context.Context) ([]byte, error) {
	resp, err := c.request(ctx).Get("/assignments/export")
	if err != nil {
		return nil, response.ErrTransport.WithOrigin(err)
	}
	if err := c.check(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
