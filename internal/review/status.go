// Package review 评审状态机与评审人分配
package review

import (
	"extension-portal/internal/global/response"
	"fmt"
)

// Status 申报书评审状态，草稿（未提交）为空串，不在状态机内
type Status string

const (
	StatusDraft       Status = ""
	StatusUnderReview Status = "under_review"
	StatusForReview   Status = "for_review"
	StatusForRevision Status = "for_revision"
	StatusForApproval Status = "for_approval"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Valid 是否为状态机内的状态，草稿不算
func (s Status) Valid() bool {
	switch s {
	case StatusUnderReview, StatusForReview, StatusForRevision,
		StatusForApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal 已通过或已驳回，之后不允许任何变更
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string {
	if s == StatusDraft {
		return "draft"
	}
	return string(s)
}

// ParseStatus 解析后端返回的状态，空串和 "draft" 都视为草稿
func ParseStatus(s string) (Status, error) {
	if s == "" || s == "draft" {
		return StatusDraft, nil
	}
	st := Status(s)
	if !st.Valid() {
		return StatusDraft, response.ErrValidation.WithTips(fmt.Sprintf("未知的评审状态 %q", s))
	}
	return st, nil
}

// CanTransition 状态转移表
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusUnderReview
	case StatusUnderReview:
		return to == StatusForReview
	case StatusForReview:
		return to == StatusUnderReview || to == StatusForRevision || to == StatusForApproval
	case StatusForRevision:
		return to == StatusForReview || to == StatusUnderReview
	case StatusForApproval:
		return to == StatusApproved || to == StatusRejected
	}
	return false
}

func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	return nil
}

func invalidTransition(from, to Status) error {
	return response.ErrInvalidStateTransition.WithTips(fmt.Sprintf("%s -> %s", from, to))
}

// Submit 首次提交，只能从草稿进入评审。
// 未保存的本地申报书由客户端通过 proposal.Program.Eligible 拦截
func Submit(cur Status) (Status, error) {
	if err := Transition(cur, StatusUnderReview); err != nil {
		return cur, err
	}
	return StatusUnderReview, nil
}

// AfterAssign 新增评审人后的状态。
// under_review 进入 for_review，其余非终态保持不变
func AfterAssign(cur Status) (Status, error) {
	switch {
	case cur == StatusDraft:
		return cur, response.ErrValidation.WithTips("申报书尚未提交，不能分配评审人")
	case cur.Terminal():
		return cur, response.ErrInvalidStateTransition.WithTips(fmt.Sprintf("申报书已%s，不能分配评审人", label(cur)))
	case cur == StatusUnderReview:
		return StatusForReview, nil
	}
	return cur, nil
}

// AfterUnassign 移除评审人后的状态，remaining 为剩余分配数。
// for_review 下移除最后一个评审人回到 under_review
func AfterUnassign(cur Status, remaining int) (Status, error) {
	if cur.Terminal() {
		return cur, response.ErrInvalidStateTransition.WithTips(fmt.Sprintf("申报书已%s，不能移除评审人", label(cur)))
	}
	if cur == StatusForReview && remaining == 0 {
		return StatusUnderReview, nil
	}
	return cur, nil
}

// Decide 评审结论：退回修改或提交审批
func Decide(cur, to Status) (Status, error) {
	if to != StatusForRevision && to != StatusForApproval {
		return cur, response.ErrValidation.WithTips(fmt.Sprintf("评审结论只能是 %s 或 %s", StatusForRevision, StatusForApproval))
	}
	if err := Transition(cur, to); err != nil {
		return cur, err
	}
	return to, nil
}

// Resubmit 修改后重新提交，仍有评审人时直接回到 for_review
func Resubmit(cur Status, assignments int) (Status, error) {
	if cur != StatusForRevision {
		return cur, invalidTransition(cur, StatusUnderReview)
	}
	if assignments > 0 {
		return StatusForReview, nil
	}
	return StatusUnderReview, nil
}

// Finalize 最终审批，只能进入 approved 或 rejected
func Finalize(cur, to Status) (Status, error) {
	if !to.Terminal() {
		return cur, response.ErrValidation.WithTips(fmt.Sprintf("审批结果只能是 %s 或 %s", StatusApproved, StatusRejected))
	}
	if err := Transition(cur, to); err != nil {
		return cur, err
	}
	return to, nil
}

func label(s Status) string {
	switch s {
	case StatusApproved:
		return "通过"
	case StatusRejected:
		return "驳回"
	}
	return s.String()
}
