package backend

import (
	"context"
	"encoding/json"
	"extension-portal/internal/global/response"
	"extension-portal/internal/proposal"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Account 管理员维护的账号
type Account struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	RoleID     int    `json:"role_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type AccountRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RoleID     int    `json:"role_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

func (c *Client) CreateAccount(ctx context.Context, in AccountRequest) (*Account, error) {
	var out Account
	if err := c.do(c.request(ctx).SetBody(in), http.MethodPost, "/accounts", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAccount(ctx context.Context, accountID uint) error {
	return c.do(c.request(ctx), http.MethodDelete, fmt.Sprintf("/accounts/%d", accountID), nil)
}

// CoverPageRequest 封面页请求，提交日期格式 YYYY-MM-DD
type CoverPageRequest struct {
	Proposal       uint   `json:"proposal"`
	CoverPageBody  string `json:"cover_page_body"`
	SubmissionDate string `json:"submission_date"`
}

// Validate 发请求前的本地检查，与后端规则一致
func (r CoverPageRequest) Validate() error {
	if r.Proposal == 0 {
		return response.ErrValidation.WithTips("缺少申报书 ID")
	}
	if strings.TrimSpace(r.CoverPageBody) == "" {
		return response.ErrValidation.WithTips("封面正文不能为空")
	}
	if _, err := time.Parse(proposal.DateLayout, r.SubmissionDate); err != nil {
		return response.ErrValidation.WithTips("提交日期格式应为 YYYY-MM-DD")
	}
	return nil
}

type CoverPage struct {
	ID             uint      `json:"id"`
	ProposalID     uint      `json:"proposal"`
	SubmissionDate string    `json:"submission_date"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateCoverPage 本地校验失败时不会发出请求
func (c *Client) CreateCoverPage(ctx context.Context, in CoverPageRequest) (*CoverPage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out CoverPage
	if err := c.do(c.request(ctx).SetBody(in), http.MethodPost, "/cover-pages", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProgram 保存整份申报书：没有记录 ID 时创建，否则覆盖。
// 成功后整棵树标记为已保存，记录 ID 取自后端返回
func (c *Client) SaveProgram(ctx context.Context, p *proposal.Program) error {
	if err := proposal.Validate(p); err != nil {
		return err
	}
	data, err := proposal.ToPayload(p)
	if err != nil {
		return response.ErrValidation.WithOrigin(err)
	}
	method, path := http.MethodPost, "/programs"
	if p.RecordID != 0 {
		method, path = http.MethodPut, fmt.Sprintf("/programs/%d", p.RecordID)
	}

	var raw json.RawMessage
	req := c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(data)
	if err := c.do(req, method, path, &raw); err != nil {
		return err
	}
	saved, err := proposal.FromPayload(raw)
	if err != nil {
		return response.ErrTransport.WithOrigin(err)
	}
	markSaved(p, saved)
	return nil
}

// markSaved 按顺序把后端生成的记录 ID 写回本地树，本地临时 ID 保持不变
func markSaved(local, remote *proposal.Program) {
	local.MarkSaved(remote.RecordID)
	for i, pr := range local.Projects {
		if i >= len(remote.Projects) {
			break
		}
		pr.MarkSaved(remote.Projects[i].RecordID)
		for j, a := range pr.Activities {
			if j >= len(remote.Projects[i].Activities) {
				break
			}
			a.MarkSaved(remote.Projects[i].Activities[j].RecordID)
		}
	}
}

// ProgramDetail GET /programs/:id 的响应
type ProgramDetail struct {
	Program  *proposal.Program
	Progress *proposal.Node
}

func (c *Client) GetProgram(ctx context.Context, id uint) (*ProgramDetail, error) {
	var out struct {
		Program  json.RawMessage `json:"program"`
		Progress *proposal.Node  `json:"progress"`
	}
	if err := c.do(c.request(ctx), http.MethodGet, fmt.Sprintf("/programs/%d", id), &out); err != nil {
		return nil, err
	}
	p, err := proposal.FromPayload(out.Program)
	if err != nil {
		return nil, response.ErrTransport.WithOrigin(err)
	}
	return &ProgramDetail{Program: p, Progress: out.Progress}, nil
}

type decisionRequest struct {
	Status string `json:"status"`
}

// Submit 提交审核，返回新的状态
func (c *Client) Submit(ctx context.Context, proposalID uint) (string, error) {
	return c.transition(ctx, proposalID, "submit", "")
}

// SubmitProgram 提交本地申报书，有未保存的行时不发请求
func (c *Client) SubmitProgram(ctx context.Context, p *proposal.Program) error {
	if !p.Eligible() {
		return response.ErrValidation.WithTips("申报书尚未保存，不能提交")
	}
	st, err := c.Submit(ctx, p.RecordID)
	if err != nil {
		return err
	}
	p.Status = st
	return nil
}

func (c *Client) Decide(ctx context.Context, proposalID uint, status string) (string, error) {
	return c.transition(ctx, proposalID, "decision", status)
}

func (c *Client) Resubmit(ctx context.Context, proposalID uint) (string, error) {
	return c.transition(ctx, proposalID, "resubmit", "")
}

func (c *Client) Finalize(ctx context.Context, proposalID uint, status string) (string, error) {
	return c.transition(ctx, proposalID, "finalize", status)
}

func (c *Client) transition(ctx context.Context, proposalID uint, action, status string) (string, error) {
	req := c.request(ctx)
	if status != "" {
		req.SetBody(decisionRequest{Status: status})
	}
	var out statusResponse
	if err := c.do(req, http.MethodPost, fmt.Sprintf("/proposals/%d/%s", proposalID, action), &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
