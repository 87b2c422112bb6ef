package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/service"
	"shelfmate/backend/pkg/response"
)

// DistributionHandler 发放会话模块 HTTP 处理器
type DistributionHandler struct {
	distSvc service.DistributionService
	codec   *service.RosterCodec
}

// NewDistributionHandler 创建 DistributionHandler
func NewDistributionHandler(distSvc service.DistributionService, codec *service.RosterCodec) *DistributionHandler {
	return &DistributionHandler{distSvc: distSvc, codec: codec}
}

// CreateSession 创建发放会话
// POST /api/v1/distribution-sessions
func (h *DistributionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.distSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions 获取发放会话列表
// GET /api/v1/distribution-sessions
func (h *DistributionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.distSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// GetSession 获取会话详情（含名册）
// GET /api/v1/distribution-sessions/:id
func (h *DistributionHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	detail, err := h.distSvc.GetDetail(c.Request.Context(), id)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, detail)
}

// ImportAssignments 导入分配列表（JSON 行）
// POST /api/v1/distribution-sessions/:id/import
func (h *DistributionHandler) ImportAssignments(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	outcome, err := h.distSvc.Import(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, outcome)
}

// ImportAssignmentFile 上传分配表文件并导入
// POST /api/v1/distribution-sessions/:id/import-file  (multipart: file, mode)
func (h *DistributionHandler) ImportAssignmentFile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	mode := c.DefaultPostForm("mode", dto.ImportModeStrict)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return
	}
	defer file.Close()

	rows, err := h.codec.Decode(file)
	if err != nil {
		response.BadRequest(c, 10006, err.Error())
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	outcome, err := h.distSvc.Import(c.Request.Context(), id, &dto.ImportRequest{
		FileName: fileHeader.Filename,
		Mode:     mode,
		Rows:     rows,
	}, callerID)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, outcome)
}

// ExportRoster 导出会话名册为 xlsx（可填写书号后重新上传）
// GET /api/v1/distribution-sessions/:id/export
func (h *DistributionHandler) ExportRoster(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	detail, err := h.distSvc.GetDetail(c.Request.Context(), id)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	sheetName := fmt.Sprintf("%s-%s-%s", detail.Session.ClassName, detail.Session.Stream, detail.Session.Subject)
	buf, filename, err := h.codec.Encode(sheetName, detail.Roster)
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetSummary 获取会话汇总
// GET /api/v1/distribution-sessions/:id/summary
func (h *DistributionHandler) GetSummary(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	summary, err := h.distSvc.Summary(c.Request.Context(), id)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, summary)
}

// PostSession 过账
// POST /api/v1/distribution-sessions/:id/post
func (h *DistributionHandler) PostSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.distSvc.Post(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, session)
}

// UndoSession 撤销会话
// DELETE /api/v1/distribution-sessions/:id
func (h *DistributionHandler) UndoSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	if err := h.distSvc.Undo(c.Request.Context(), id); err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, nil)
}

// ReturnViaSession 经会话批量归还
// POST /api/v1/distribution-sessions/:id/return
func (h *DistributionHandler) ReturnViaSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	outcome, err := h.distSvc.ReturnViaDistribution(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, outcome)
}

// ListImportLogs 获取会话导入日志
// GET /api/v1/distribution-sessions/:id/import-logs
func (h *DistributionHandler) ListImportLogs(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会话ID不能为空")
		return
	}

	logs, err := h.distSvc.ListImportLogs(c.Request.Context(), id)
	if err != nil {
		h.handleDistributionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// handleDistributionError 统一映射发放模块业务错误
func (h *DistributionHandler) handleDistributionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrSessionFieldRequired),
		errors.Is(err, service.ErrRosterEmpty),
		errors.Is(err, service.ErrImportModeInvalid):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrSessionPosted),
		errors.Is(err, service.ErrSessionBusy):
		response.Conflict(c, 20003, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/distribution_handler.go
