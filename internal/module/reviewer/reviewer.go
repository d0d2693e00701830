package reviewer

import (
	"context"
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"

	"github.com/gin-gonic/gin"
)

// ListReviewers 评审人目录，优先读 Redis 缓存。
// 带 search 参数时按姓名过滤
func ListReviewers(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := Directory(ctx)
	if err != nil {
		log.Error("查询评审人失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if q := c.Query("search"); q != "" {
		list = review.Search(list, q)
	}
	response.Success(c, list)
}

// Directory 返回全部评审人，资料缺失时 profile 为 null
func Directory(ctx context.Context) ([]review.Reviewer, error) {
	list := []review.Reviewer{}
	hit, err := cache.GetJSON(ctx, cache.ReviewersKey(), &list)
	if err != nil {
		log.Warn("读取评审人缓存失败", "error", err)
	}
	if hit {
		return list, nil
	}

	var users []model.User
	if err := database.DB.WithContext(ctx).
		Where("role_id = ?", jwt.RoleReviewer).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, err
	}
	list = make([]review.Reviewer, 0, len(users))
	for i := range users {
		list = append(list, review.Reviewer{ID: users[i].ID, Profile: users[i].Profile()})
	}
	if err := cache.SetJSON(ctx, cache.ReviewersKey(), list, cache.ReviewersTTL); err != nil {
		log.Warn("写入评审人缓存失败", "error", err)
	}
	return list, nil
}
