package coverpage

import (
	"errors"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/global/storage"
	"extension-portal/internal/model"
	"extension-portal/internal/module/program"
	"extension-portal/internal/proposal"
	"extension-portal/tools"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateReq struct {
	Proposal       uint   `json:"proposal" binding:"required"`
	CoverPageBody  string `json:"cover_page_body"`
	SubmissionDate string `json:"submission_date" binding:"required"`
}

// CreateCoverPage 生成封面文档并保存，正文为空或日期格式错误返回 400
func CreateCoverPage(c *gin.Context) {
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
	if strings.TrimSpace(req.CoverPageBody) == "" {
		response.Fail(c, response.ErrValidation.WithTips("封面正文不能为空"))
		return
	}
	if _, err := time.Parse(proposal.DateLayout, req.SubmissionDate); err != nil {
		response.Fail(c, response.ErrValidation.WithTips("提交日期格式应为 YYYY-MM-DD"))
		return
	}

	ctx := c.Request.Context()
	m, err := program.Load(ctx, req.Proposal, true)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := program.CanEdit(claims, m); err != nil {
		response.Fail(c, err)
		return
	}
	p, err := m.ToProposal()
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	data, err := Build(p, req.CoverPageBody, req.SubmissionDate)
	if err != nil {
		log.Error("生成封面文档失败", "error", err, "proposal", req.Proposal)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}

	key := fmt.Sprintf("cover-pages/%d/%s.xlsx", req.Proposal, uuid.NewString())
	url, err := storage.Default.Save(ctx, key, data, tools.ExcelContentType)
	if err != nil {
		log.Error("保存封面文档失败", "error", err, "key", key)
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}

	cp := model.CoverPage{
		ProposalID:     req.Proposal,
		Body:           req.CoverPageBody,
		SubmissionDate: req.SubmissionDate,
		StorageKey:     key,
		URL:            url,
		CreatedBy:      claims.UserID,
	}
	if err := database.DB.WithContext(ctx).Create(&cp).Error; err != nil {
		log.Error("保存封面记录失败", "error", err, "proposal", req.Proposal)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	log.Info("生成封面成功", "cover_page_id", cp.ID, "proposal", req.Proposal, "size", len(data))
	response.Success(c, cp)
}

// ListCoverPages 按申报书列出已生成的封面
func ListCoverPages(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrTokenInvalid)
		return
	}
	id, err := tools.ParseID(c.Query("proposal"))
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	ctx := c.Request.Context()
	m, err := program.Load(ctx, id, false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := program.CanView(ctx, claims, m); err != nil {
		response.Fail(c, err)
		return
	}
	list := []model.CoverPage{}
	if err := database.DB.WithContext(ctx).Where("proposal_id = ?", id).Order("id DESC").Find(&list).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, list)
}

// DownloadCoverPage 本地存储直接返回文件，对象存储跳转到预签名地址
func DownloadCoverPage(c *gin.Context) {
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
	var cp model.CoverPage
	if err := database.DB.WithContext(ctx).First(&cp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Fail(c, response.ErrNotFound.WithTips("封面不存在"))
			return
		}
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	m, err := program.Load(ctx, cp.ProposalID, false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := program.CanView(ctx, claims, m); err != nil {
		response.Fail(c, err)
		return
	}

	name := fmt.Sprintf("封面_%d_%s.xlsx", cp.ProposalID, cp.SubmissionDate)
	if local, ok := storage.Default.(*storage.Local); ok {
		path, err := local.Path(cp.StorageKey)
		if err == nil {
			err = tools.SendStoredFile(c, path, name, tools.ExcelContentType)
		}
		if err != nil {
			log.Error("读取封面文件失败", "error", err, "key", cp.StorageKey)
			response.Fail(c, response.ErrNotFound.WithTips("封面文件不存在"))
		}
		return
	}
	link, err := storage.Default.Link(ctx, cp.StorageKey)
	if err != nil {
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}
	c.Redirect(http.StatusFound, link)
}
