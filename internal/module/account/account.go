package account

import (
	"errors"
	"extension-portal/config"
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"
	"extension-portal/tools"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateReq struct {
	Username   string `json:"username" binding:"required,max=64"`
	Password   string `json:"password" binding:"required,min=8"`
	RoleID     int    `json:"role_id" binding:"min=0,max=2"`
	Name       string `json:"name" binding:"max=64"`
	Email      string `json:"email" binding:"omitempty,email,max=128"`
	Department string `json:"department" binding:"max=128"`
}

type ListReq struct {
	RoleID   *int `form:"role_id"`
	Page     int  `form:"page"`
	PageSize int  `form:"page_size"`
}

func ListAccounts(c *gin.Context) {
	var req ListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := database.DB.WithContext(c.Request.Context()).Model(&model.User{})
	if req.RoleID != nil {
		query = query.Where("role_id = ?", *req.RoleID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("统计账号数量失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	users := []model.User{}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("id").Offset(offset).Limit(req.PageSize).Find(&users).Error; err != nil {
		log.Error("查询账号列表失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, map[string]any{
		"list":        users,
		"total":       total,
		"page":        req.Page,
		"page_size":   req.PageSize,
		"total_pages": (total + int64(req.PageSize) - 1) / int64(req.PageSize),
	})
}

func CreateAccount(c *gin.Context) {
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定创建账号请求失败", "error", err)
		response.Fail(c, response.ErrValidation.WithOrigin(err))
		return
	}
	hash, err := tools.PasswordHash(req.Password)
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	user := model.User{
		Username:   req.Username,
		Password:   hash,
		RoleID:     req.RoleID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	}
	if err := database.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if database.IsDuplicate(err) {
			log.Warn("用户名已存在", "username", req.Username)
			response.Fail(c, response.ErrAlreadyExists.WithTips("用户名已存在"))
			return
		}
		log.Error("创建账号失败", "error", err, "username", req.Username)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if user.IsReviewer() {
		invalidateReviewers(c)
	}
	log.Info("创建账号成功", "user_id", user.ID, "role_id", user.RoleID)
	response.Success(c, user)
}

// DeleteAccount 删除账号并吊销其令牌。
// 未终审申报书上的分配随账号一起删除，已终审的保留，评审人显示为未知
func DeleteAccount(c *gin.Context) {
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	payload, _ := jwt.GetUserPayload(c)
	if payload != nil && payload.UserID == id {
		response.Fail(c, response.ErrValidation.WithTips("不能删除自己的账号"))
		return
	}

	ctx := c.Request.Context()
	var user model.User
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if err := releaseAssignments(tx, id); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Fail(c, response.ErrNotFound.WithTips("账号不存在"))
		return
	case err != nil:
		log.Error("删除账号失败", "error", err, "user_id", id)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	ttl := time.Duration(config.Get().JWT.AccessExpire) * time.Second
	if err := cache.Revoke(ctx, id, ttl); err != nil {
		log.Error("写入吊销标记失败", "error", err, "user_id", id)
	}
	if user.IsReviewer() {
		invalidateReviewers(c)
	}
	log.Info("删除账号成功", "user_id", id, "username", user.Username)
	response.Success(c)
}

// releaseAssignments 删除评审人在未终审申报书上的分配，并回退评审状态
func releaseAssignments(tx *gorm.DB, reviewerID uint) error {
	var list []model.Assignment
	if err := tx.Where("reviewer_id = ?", reviewerID).Find(&list).Error; err != nil {
		return err
	}
	for _, a := range list {
		var program model.Program
		if err := tx.Select("id", "status").First(&program, a.ProposalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		cur := review.Status(program.Status)
		if cur.Terminal() {
			continue
		}
		if err := tx.Delete(&a).Error; err != nil {
			return err
		}
		var remaining int64
		if err := tx.Model(&model.Assignment{}).Where("proposal_id = ?", a.ProposalID).Count(&remaining).Error; err != nil {
			return err
		}
		next, err := review.AfterUnassign(cur, int(remaining))
		if err != nil {
			return err
		}
		if next != cur {
			if err := tx.Model(&program).Update("status", string(next)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func invalidateReviewers(c *gin.Context) {
	if err := cache.Delete(c.Request.Context(), cache.ReviewersKey()); err != nil {
		log.Warn("清除评审人缓存失败", "error", err)
	}
}
