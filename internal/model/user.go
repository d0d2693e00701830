package model

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/review"
	"strings"
)

// User 账号由管理员创建，RoleID 见 jwt.Role*
type User struct {
	Model
	Username   string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password   string `gorm:"type:varchar(255);not null" json:"-"`
	RoleID     int    `gorm:"default:0;not null;index" json:"role_id"`
	Name       string `gorm:"type:varchar(64)" json:"name"`
	Email      string `gorm:"type:varchar(128)" json:"email"`
	Department string `gorm:"type:varchar(128)" json:"department"`
}

// Profile 资料全部为空时返回 nil，调用方按 "Unknown Reviewer" 处理
func (u *User) Profile() *review.Profile {
	if strings.TrimSpace(u.Name) == "" && u.Email == "" && u.Department == "" {
		return nil
	}
	return &review.Profile{Name: u.Name, Email: u.Email, Department: u.Department}
}

func (u *User) IsReviewer() bool {
	return u.RoleID == jwt.RoleReviewer
}
