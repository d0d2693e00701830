package model

import (
	"extension-portal/internal/review"
	"time"
)

// Assignment 申报书与评审人的分配。
// 不做软删除，否则同一评审人被移除后无法再次分配
type Assignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProposalID uint      `gorm:"uniqueIndex:uk_proposal_reviewer;not null" json:"proposal"`
	ReviewerID uint      `gorm:"uniqueIndex:uk_proposal_reviewer;not null;index" json:"reviewer"`
	AssignedBy uint      `json:"assigned_by"`
	CreatedAt  time.Time `json:"assigned_at"`

	Reviewer User `gorm:"foreignKey:ReviewerID" json:"-"`
}

// ToReview 转换为对外的分配记录，评审人资料取下单时已 Preload 的 Reviewer
func (a *Assignment) ToReview() review.Assignment {
	out := review.Assignment{
		ID:         a.ID,
		ProposalID: a.ProposalID,
		ReviewerID: a.ReviewerID,
		AssignedAt: a.CreatedAt,
	}
	if a.Reviewer.ID != 0 {
		out.Profile = a.Reviewer.Profile()
	}
	return out
}
