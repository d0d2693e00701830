package program

import (
	"context"
	"errors"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"

	"gorm.io/gorm"
)

// Load 读取申报书，withTree 为 true 时按顺序带出项目和活动
func Load(ctx context.Context, id uint, withTree bool) (*model.Program, error) {
	db := database.DB.WithContext(ctx)
	if withTree {
		db = db.
			Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Preload("Projects.Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
	}
	var m model.Program
	if err := db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrNotFound.WithTips("申报书不存在")
		}
		return nil, response.ErrDatabase.WithOrigin(err)
	}
	return &m, nil
}

// IsAssigned 评审人是否被分配到该申报书
func IsAssigned(ctx context.Context, proposalID, reviewerID uint) (bool, error) {
	var n int64
	err := database.DB.WithContext(ctx).Model(&model.Assignment{}).
		Where("proposal_id = ? AND reviewer_id = ?", proposalID, reviewerID).
		Count(&n).Error
	return n > 0, err
}

// CanView 管理员、申报人本人和被分配的评审人可以查看
func CanView(ctx context.Context, claims *jwt.Claims, m *model.Program) error {
	switch {
	case claims.RoleID >= jwt.RoleAdmin, claims.UserID == m.OwnerID:
		return nil
	case claims.RoleID == jwt.RoleReviewer:
		ok, err := IsAssigned(ctx, m.ID, claims.UserID)
		if err != nil {
			return response.ErrDatabase.WithOrigin(err)
		}
		if ok {
			return nil
		}
	}
	return response.ErrForbidden
}

// CanEdit 只有申报人本人和管理员可以修改
func CanEdit(claims *jwt.Claims, m *model.Program) error {
	if claims.RoleID >= jwt.RoleAdmin || claims.UserID == m.OwnerID {
		return nil
	}
	return response.ErrForbidden
}
