package assignment

import (
	"errors"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"
	"extension-portal/tools"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateReq struct {
	Proposal uint `json:"proposal" binding:"required"`
	Reviewer uint `json:"reviewer" binding:"required"`
}

// ListAssignments 不带 proposal 参数时返回全部分配
func ListAssignments(c *gin.Context) {
	query := database.DB.WithContext(c.Request.Context()).Preload("Reviewer").Order("id")
	if raw := c.Query("proposal"); raw != "" {
		id, err := tools.ParseID(raw)
		if err != nil {
			response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
			return
		}
		query = query.Where("proposal_id = ?", id)
	}
	var rows []model.Assignment
	if err := query.Find(&rows).Error; err != nil {
		log.Error("查询分配失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	list := make([]review.Assignment, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].ToReview())
	}
	response.Success(c, list)
}

// CreateAssignment 分配一名评审人，同一对只能存在一条。
// 首个评审人让申报书从 under_review 进入 for_review
func CreateAssignment(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrValidation.WithOrigin(err))
		return
	}

	a := model.Assignment{ProposalID: req.Proposal, ReviewerID: req.Reviewer, AssignedBy: claims.UserID}
	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var program model.Program
		if err := tx.Select("id", "status").First(&program, req.Proposal).Error; err != nil {
			return notFound(err, "申报书不存在")
		}
		cur := review.Status(program.Status)
		next, err := review.AfterAssign(cur)
		if err != nil {
			return err
		}

		if err := tx.First(&a.Reviewer, req.Reviewer).Error; err != nil {
			return notFound(err, "评审人不存在")
		}
		if !a.Reviewer.IsReviewer() {
			return response.ErrValidation.WithTips("该账号不是评审人")
		}

		if err := tx.Omit("Reviewer").Create(&a).Error; err != nil {
			if database.IsDuplicate(err) {
				return response.ErrAlreadyExists.WithTips("该评审人已分配")
			}
			return response.ErrDatabase.WithOrigin(err)
		}
		return moveStatus(tx, program.ID, cur, next)
	})
	if err != nil {
		log.Warn("分配评审人失败", "error", err, "proposal", req.Proposal, "reviewer", req.Reviewer)
		response.Fail(c, err)
		return
	}
	log.Info("分配评审人成功", "assignment_id", a.ID, "proposal", req.Proposal, "reviewer", req.Reviewer)
	response.Success(c, a.ToReview())
}

// DeleteAssignment 移除分配，最后一名评审人被移除时回到 under_review
func DeleteAssignment(c *gin.Context) {
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var a model.Assignment
		if err := tx.First(&a, id).Error; err != nil {
			return notFound(err, "分配记录不存在")
		}
		var program model.Program
		if err := tx.Select("id", "status").First(&program, a.ProposalID).Error; err != nil {
			return notFound(err, "申报书不存在")
		}
		var total int64
		if err := tx.Model(&model.Assignment{}).Where("proposal_id = ?", a.ProposalID).Count(&total).Error; err != nil {
			return response.ErrDatabase.WithOrigin(err)
		}
		cur := review.Status(program.Status)
		next, err := review.AfterUnassign(cur, int(total)-1)
		if err != nil {
			return err
		}
		if err := tx.Delete(&a).Error; err != nil {
			return response.ErrDatabase.WithOrigin(err)
		}
		return moveStatus(tx, program.ID, cur, next)
	})
	if err != nil {
		log.Warn("移除评审人失败", "error", err, "assignment_id", id)
		response.Fail(c, err)
		return
	}
	log.Info("移除评审人成功", "assignment_id", id)
	response.Success(c)
}

// moveStatus 条件更新，状态已被并发修改时整个事务回滚
func moveStatus(tx *gorm.DB, programID uint, from, to review.Status) error {
	if from == to {
		return nil
	}
	res := tx.Model(&model.Program{}).
		Where("id = ? AND status = ?", programID, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return response.ErrDatabase.WithOrigin(res.Error)
	}
	if res.RowsAffected == 0 {
		return response.ErrInvalidStateTransition.WithTips("评审状态已被修改，请刷新后重试")
	}
	return nil
}

func notFound(err error, tips string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.ErrNotFound.WithTips(tips)
	}
	return response.ErrDatabase.WithOrigin(err)
}
