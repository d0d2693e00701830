package program

import (
	"context"
	"errors"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/proposal"
	"extension-portal/internal/review"
	"extension-portal/tools"
	"io"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Detail GET /programs/:id 的响应
type Detail struct {
	Program  *proposal.Program `json:"program"`
	Progress *proposal.Node    `json:"progress"`
}

type ListReq struct {
	Status   *string `form:"status"`
	Keyword  string  `form:"keyword"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// readPayload 读取请求体中的申报书 JSON 并做格式检查
func readPayload(c *gin.Context) (*proposal.Program, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, response.ErrInvalidRequest.WithOrigin(err)
	}
	p, err := proposal.FromPayload(data)
	if err != nil {
		return nil, err
	}
	if err := proposal.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// saved 重新读取整棵树并转换为申报书
func saved(ctx context.Context, id uint) (*proposal.Program, error) {
	m, err := Load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	p, err := m.ToProposal()
	if err != nil {
		return nil, response.ErrServerInternal.WithOrigin(err)
	}
	return p, nil
}

func CreateProgram(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	p, err := readPayload(c)
	if err != nil {
		log.Warn("申报书格式错误", "error", err, "user_id", claims.UserID)
		response.Fail(c, err)
		return
	}
	m, err := model.NewProgram(p, claims.UserID)
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	ctx := c.Request.Context()
	if err := database.DB.WithContext(ctx).Create(m).Error; err != nil {
		log.Error("保存申报书失败", "error", err, "user_id", claims.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	out, err := saved(ctx, m.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	log.Info("创建申报书成功", "program_id", m.ID, "user_id", claims.UserID, "score", m.Score)
	response.Success(c, out)
}

// UpdateProgram 整份覆盖，旧的项目和活动记录全部替换。
// 只有草稿和退回修改中的申报书允许修改
func UpdateProgram(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	ctx := c.Request.Context()
	cur, err := Load(ctx, id, false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := CanEdit(claims, cur); err != nil {
		response.Fail(c, err)
		return
	}
	if st := review.Status(cur.Status); st != review.StatusDraft && st != review.StatusForRevision {
		response.Fail(c, response.ErrInvalidStateTransition.WithTips("申报书当前状态为 "+st.String()+"，不能修改"))
		return
	}

	p, err := readPayload(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	next, err := model.NewProgram(p, cur.OwnerID)
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTree(tx, id, next)
	})
	if errors.Is(err, response.ErrInvalidStateTransition) {
		response.Fail(c, response.ErrInvalidStateTransition.WithTips("评审状态已被修改，请刷新后重试"))
		return
	}
	if err != nil {
		log.Error("更新申报书失败", "error", err, "program_id", id)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	out, err := saved(ctx, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	log.Info("更新申报书成功", "program_id", id, "user_id", claims.UserID, "score", next.Score)
	response.Success(c, out)
}

// replaceTree 在事务内覆盖申报书，状态条件与写入放在同一条 UPDATE 里
func replaceTree(tx *gorm.DB, id uint, next *model.Program) error {
	res := tx.Model(&model.Program{}).
		Where("id = ? AND status IN ?", id, []string{string(review.StatusDraft), string(review.StatusForRevision)}).
		Updates(map[string]any{
			"title":  next.Title,
			"leader": next.Leader,
			"score":  next.Score,
			"body":   next.Body,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.ErrInvalidStateTransition
	}
	if err := deleteTree(tx, id); err != nil {
		return err
	}
	if len(next.Projects) == 0 {
		return nil
	}
	for i := range next.Projects {
		next.Projects[i].ProgramID = id
	}
	return tx.Create(&next.Projects).Error
}

// deleteTree 物理删除申报书下的项目和活动
func deleteTree(tx *gorm.DB, programID uint) error {
	var projectIDs []uint
	if err := tx.Unscoped().Model(&model.Project{}).Where("program_id = ?", programID).Pluck("id", &projectIDs).Error; err != nil {
		return err
	}
	if len(projectIDs) == 0 {
		return nil
	}
	if err := tx.Unscoped().Where("project_id IN ?", projectIDs).Delete(&model.Activity{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id IN ?", projectIDs).Delete(&model.Project{}).Error
}

func GetProgram(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	ctx := c.Request.Context()
	m, err := Load(ctx, id, true)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := CanView(ctx, claims, m); err != nil {
		response.Fail(c, err)
		return
	}
	p, err := m.ToProposal()
	if err != nil {
		log.Error("还原申报书失败", "error", err, "program_id", id)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	response.Success(c, Detail{Program: p, Progress: proposal.Progress(p)})
}

// ListPrograms 申报人看到自己的，评审人看到分配给自己的，管理员看到全部
func ListPrograms(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	var req ListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	db := database.DB.WithContext(c.Request.Context())
	query := db.Model(&model.Program{})
	switch {
	case claims.RoleID >= jwt.RoleAdmin:
	case claims.RoleID == jwt.RoleReviewer:
		query = query.Where("id IN (?)", db.Model(&model.Assignment{}).Select("proposal_id").Where("reviewer_id = ?", claims.UserID))
	default:
		query = query.Where("owner_id = ?", claims.UserID)
	}
	if req.Status != nil {
		st, err := review.ParseStatus(*req.Status)
		if err != nil {
			response.Fail(c, err)
			return
		}
		query = query.Where("status = ?", string(st))
	}
	if req.Keyword != "" {
		query = query.Where("title LIKE ?", "%"+req.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("统计申报书数量失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	programs := []model.Program{}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("updated_at DESC").Offset(offset).Limit(req.PageSize).Find(&programs).Error; err != nil {
		log.Error("查询申报书列表失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	response.Success(c, map[string]any{
		"list":        programs,
		"total":       total,
		"page":        req.Page,
		"page_size":   req.PageSize,
		"total_pages": (total + int64(req.PageSize) - 1) / int64(req.PageSize),
	})
}

// DeleteProgram 只能删除草稿
func DeleteProgram(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	id, err := tools.ParseID(c.Param("id"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	ctx := c.Request.Context()
	cur, err := Load(ctx, id, false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := CanEdit(claims, cur); err != nil {
		response.Fail(c, err)
		return
	}
	if review.Status(cur.Status) != review.StatusDraft {
		response.Fail(c, response.ErrInvalidStateTransition.WithTips("已提交的申报书不能删除"))
		return
	}
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("status = ?", string(review.StatusDraft)).Delete(cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.ErrInvalidStateTransition
		}
		return deleteTree(tx, id)
	})
	if errors.Is(err, response.ErrInvalidStateTransition) {
		response.Fail(c, response.ErrInvalidStateTransition.WithTips("已提交的申报书不能删除"))
		return
	}
	if err != nil {
		log.Error("删除申报书失败", "error", err, "program_id", id)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	log.Info("删除申报书成功", "program_id", id, "user_id", claims.UserID)
	response.Success(c)
}
