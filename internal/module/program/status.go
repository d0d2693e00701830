package program

import (
	"context"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"
	"extension-portal/tools"

	"github.com/gin-gonic/gin"
)

type StatusResp struct {
	Status string `json:"status"`
}

type DecisionReq struct {
	Status string `json:"status" binding:"required"`
}

// target 解析路径中的申报书并校验查看权限
func target(c *gin.Context) (*jwt.Claims, *model.Program, bool) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return nil, nil, false
	}
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return nil, nil, false
	}
	m, err := Load(c.Request.Context(), id, false)
	if err != nil {
		response.Fail(c, err)
		return nil, nil, false
	}
	if err := CanView(c.Request.Context(), claims, m); err != nil {
		response.Fail(c, err)
		return nil, nil, false
	}
	return claims, m, true
}

// apply 仅当状态仍为 from 时写入 to，并发修改时返回状态冲突
func apply(ctx context.Context, m *model.Program, from, to review.Status) error {
	if from == to {
		return nil
	}
	res := database.DB.WithContext(ctx).Model(&model.Program{}).
		Where("id = ? AND status = ?", m.ID, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return response.ErrDatabase.WithOrigin(res.Error)
	}
	if res.RowsAffected == 0 {
		return response.ErrInvalidStateTransition.WithTips("评审状态已被修改，请刷新后重试")
	}
	m.Status = string(to)
	return nil
}

func GetStatus(c *gin.Context) {
	_, m, ok := target(c)
	if !ok {
		return
	}
	response.Success(c, StatusResp{Status: m.Status})
}

// Submit 申报人提交审核，已保存即可提交，完成度不做要求
func Submit(c *gin.Context) {
	claims, m, ok := target(c)
	if !ok {
		return
	}
	if claims.UserID != m.OwnerID {
		response.Fail(c, response.ErrForbidden.WithTips("只有申报人可以提交"))
		return
	}
	cur := review.Status(m.Status)
	next, err := review.Submit(cur)
	if err == nil {
		err = apply(c.Request.Context(), m, cur, next)
	}
	if err != nil {
		log.Warn("提交申报书失败", "error", err, "program_id", m.ID)
		response.Fail(c, err)
		return
	}
	log.Info("申报书已提交", "program_id", m.ID, "user_id", claims.UserID)
	response.Success(c, StatusResp{Status: m.Status})
}

// Decide 评审结论：退回修改或提请终审
func Decide(c *gin.Context) {
	claims, m, ok := target(c)
	if !ok {
		return
	}
	var req DecisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrValidation.WithOrigin(err))
		return
	}
	to, err := review.ParseStatus(req.Status)
	if err != nil {
		response.Fail(c, err)
		return
	}
	cur := review.Status(m.Status)
	next, err := review.Decide(cur, to)
	if err == nil {
		err = apply(c.Request.Context(), m, cur, next)
	}
	if err != nil {
		log.Warn("评审结论无效", "error", err, "program_id", m.ID, "to", req.Status)
		response.Fail(c, err)
		return
	}
	log.Info("评审结论已记录", "program_id", m.ID, "reviewer_id", claims.UserID, "status", m.Status)
	response.Success(c, StatusResp{Status: m.Status})
}

// Resubmit 修改后重新提交，仍有评审人时直接回到待评审
func Resubmit(c *gin.Context) {
	claims, m, ok := target(c)
	if !ok {
		return
	}
	if claims.UserID != m.OwnerID {
		response.Fail(c, response.ErrForbidden.WithTips("只有申报人可以重新提交"))
		return
	}
	ctx := c.Request.Context()
	var n int64
	if err := database.DB.WithContext(ctx).Model(&model.Assignment{}).Where("proposal_id = ?", m.ID).Count(&n).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	cur := review.Status(m.Status)
	next, err := review.Resubmit(cur, int(n))
	if err == nil {
		err = apply(ctx, m, cur, next)
	}
	if err != nil {
		log.Warn("重新提交失败", "error", err, "program_id", m.ID)
		response.Fail(c, err)
		return
	}
	log.Info("申报书已重新提交", "program_id", m.ID, "assignments", n, "status", m.Status)
	response.Success(c, StatusResp{Status: m.Status})
}

// Finalize 管理员终审
func Finalize(c *gin.Context) {
	claims, m, ok := target(c)
	if !ok {
		return
	}
	var req DecisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrValidation.WithOrigin(err))
		return
	}
	to, err := review.ParseStatus(req.Status)
	if err != nil {
		response.Fail(c, err)
		return
	}
	cur := review.Status(m.Status)
	next, err := review.Finalize(cur, to)
	if err == nil {
		err = apply(c.Request.Context(), m, cur, next)
	}
	if err != nil {
		log.Warn("终审失败", "error", err, "program_id", m.ID, "to", req.Status)
		response.Fail(c, err)
		return
	}
	log.Info("申报书已终审", "program_id", m.ID, "admin_id", claims.UserID, "status", m.Status)
	response.Success(c, StatusResp{Status: m.Status})
}
