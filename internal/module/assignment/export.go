package assignment

import (
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"extension-portal/internal/review"
	"extension-portal/tools"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type exportRow struct {
	ID         uint      `excel:"分配编号"`
	ProposalID uint      `excel:"申报书编号"`
	Title      string    `excel:"申报书标题"`
	Status     string    `excel:"评审状态"`
	ReviewerID uint      `excel:"评审人编号"`
	Reviewer   string    `excel:"评审人"`
	Department string    `excel:"部门"`
	Email      string    `excel:"邮箱"`
	AssignedAt time.Time `excel:"分配时间"`
}

// ExportAssignments 导出全部分配为 xlsx
func ExportAssignments(c *gin.Context) {
	db := database.DB.WithContext(c.Request.Context())
	var rows []model.Assignment
	if err := db.Preload("Reviewer").Order("proposal_id, id").Find(&rows).Error; err != nil {
		log.Error("查询分配失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	ids := make([]uint, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ProposalID)
	}
	var programs []model.Program
	if len(ids) > 0 {
		if err := db.Select("id", "title", "status").Where("id IN ?", ids).Find(&programs).Error; err != nil {
			log.Error("查询申报书失败", "error", err)
			response.Fail(c, response.ErrDatabase.WithOrigin(err))
			return
		}
	}
	byID := make(map[uint]model.Program, len(programs))
	for _, p := range programs {
		byID[p.ID] = p
	}

	out := make([]exportRow, 0, len(rows))
	for _, a := range rows {
		ra := a.ToReview()
		r := review.Reviewer{ID: ra.ReviewerID, Profile: ra.Profile}
		row := exportRow{
			ID:         a.ID,
			ProposalID: a.ProposalID,
			Title:      byID[a.ProposalID].Title,
			Status:     review.Status(byID[a.ProposalID].Status).String(),
			ReviewerID: a.ReviewerID,
			Reviewer:   r.DisplayName(),
			Department: r.Department(),
			AssignedAt: a.CreatedAt,
		}
		if ra.Profile != nil {
			row.Email = ra.Profile.Email
		}
		out = append(out, row)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := tools.ExportToExcel(f, "评审分配", out); err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	_ = f.DeleteSheet("Sheet1")
	buf, err := f.WriteToBuffer()
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	name := fmt.Sprintf("评审分配_%s.xlsx", time.Now().Format("20060102"))
	log.Info("导出评审分配", "rows", len(out))
	tools.SendBytes(c, buf.Bytes(), name, tools.ExcelContentType)
}
