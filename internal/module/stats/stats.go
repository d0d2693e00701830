package stats

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

type OverviewResp struct {
	// key 为状态名，草稿记为 draft
	Programs    map[string]int64 `json:"programs"`
	Total       int64            `json:"total"`
	Unassigned  int64            `json:"unassigned"`
	Assignments int64            `json:"assignments"`
	Reviewers   int64            `json:"reviewers"`
}

// Overview 各状态申报书数量、待分配数量和评审人数量
func Overview(c *gin.Context) {
	ctx := c.Request.Context()
	rows, err := countByStatus(ctx)
	if err != nil {
		log.Error("统计申报书状态失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	resp := OverviewResp{Programs: map[string]int64{}}
	for _, r := range rows {
		resp.Programs[review.Status(r.Status).String()] += r.Count
		resp.Total += r.Count
	}
	if resp.Unassigned, err = countUnassigned(ctx); err != nil {
		log.Error("统计待分配申报书失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if resp.Reviewers, err = countReviewers(ctx); err != nil {
		log.Error("统计评审人失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if err := database.DB.WithContext(ctx).Model(&model.Assignment{}).Count(&resp.Assignments).Error; err != nil {
		log.Error("统计分配失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, resp)
}

type WorkloadReq struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Workload 评审人工作量排行，进行中的分配多的排在前面
func Workload(c *gin.Context) {
	var req WorkloadReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	ctx := c.Request.Context()
	total, err := countReviewers(ctx)
	if err != nil {
		log.Error("统计评审人失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	rows, err := workload(ctx, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		log.Error("查询评审人工作量失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, gin.H{
		"list":        rows,
		"total":       total,
		"page":        req.Page,
		"page_size":   req.PageSize,
		"total_pages": (total + int64(req.PageSize) - 1) / int64(req.PageSize),
	})
}

// WorkloadExport 导出全部评审人的工作量
func WorkloadExport(c *gin.Context) {
	rows, err := workload(c.Request.Context(), 0, 0)
	if err != nil {
		log.Error("查询评审人工作量失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "评审工作量"
	if err := tools.ExportToExcel(f, sheet, rows); err != nil {
		log.Error("生成工作量表失败", "error", err)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	_ = f.DeleteSheet("Sheet1")
	buf, err := f.WriteToBuffer()
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	name := fmt.Sprintf("评审工作量_%s.xlsx", time.Now().Format("20060102"))
	tools.SendBytes(c, buf.Bytes(), name, tools.ExcelContentType)
}
