package stats

import (
	"context"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
)

type statusCount struct {
	Status string `gorm:"column:status"`
	Count  int64  `gorm:"column:count"`
}

// workloadRow 评审人的分配数量，active 只统计未结束的申报书
type workloadRow struct {
	ReviewerID uint   `gorm:"column:reviewer_id" json:"reviewer_id" excel:"评审人编号"`
	Name       string `gorm:"column:name" json:"name" excel:"评审人"`
	Department string `gorm:"column:department" json:"department" excel:"部门"`
	Total      int64  `gorm:"column:total" json:"total" excel:"分配总数"`
	Active     int64  `gorm:"column:active" json:"active" excel:"评审中"`
}

const (
	statusCountSql = `
	SELECT status, COUNT(*) AS count
	FROM programs
	WHERE deleted_at IS NULL
	GROUP BY status`

	// 没有任何评审人的已提交申报书
	unassignedSql = `
	SELECT COUNT(*)
	FROM programs p
	WHERE p.deleted_at IS NULL
	  AND p.status = 'under_review'
	  AND NOT EXISTS (SELECT 1 FROM assignments a WHERE a.proposal_id = p.id)`

	workloadSql = `
	SELECT u.id AS reviewer_id,
	       u.name AS name,
	       u.department AS department,
	       COUNT(a.id) AS total,
	       COALESCE(SUM(CASE WHEN p.status IN ('approved', 'rejected') OR p.id IS NULL THEN 0 ELSE 1 END), 0) AS active
	FROM users u
	LEFT JOIN assignments a ON a.reviewer_id = u.id
	LEFT JOIN programs p ON p.id = a.proposal_id AND p.deleted_at IS NULL
	WHERE u.deleted_at IS NULL AND u.role_id = ?
	GROUP BY u.id, u.name, u.department
	ORDER BY active DESC, total DESC, u.id ASC`

	reviewerCountSql = `
	SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND role_id = ?`
)

func countByStatus(ctx context.Context) ([]statusCount, error) {
	var rows []statusCount
	err := database.DB.WithContext(ctx).Raw(statusCountSql).Scan(&rows).Error
	return rows, err
}

func countUnassigned(ctx context.Context) (int64, error) {
	var n int64
	err := database.DB.WithContext(ctx).Raw(unassignedSql).Scan(&n).Error
	return n, err
}

func countReviewers(ctx context.Context) (int64, error) {
	var n int64
	err := database.DB.WithContext(ctx).Raw(reviewerCountSql, jwt.RoleReviewer).Scan(&n).Error
	return n, err
}

// workload offset/limit 小于 0 时不分页
func workload(ctx context.Context, offset, limit int) ([]workloadRow, error) {
	rows := []workloadRow{}
	q := workloadSql
	args := []any{jwt.RoleReviewer}
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	err := database.DB.WithContext(ctx).Raw(q, args...).Scan(&rows).Error
	return rows, err
}
