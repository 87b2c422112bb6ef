package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/service"
	"shelfmate/backend/pkg/response"
)

// CatalogHandler 馆藏与学生登记模块 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// CreateBook 图书入库
// POST /api/v1/books
func (h *CatalogHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	book, err := h.catalogSvc.CreateBook(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.Created(c, book)
}

// ListBooks 获取图书列表
// GET /api/v1/books?available=true
func (h *CatalogHandler) ListBooks(c *gin.Context) {
	availableOnly := c.Query("available") == "true"

	books, err := h.catalogSvc.ListBooks(c.Request.Context(), availableOnly)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": books})
}

// DetectDuplicates 扫描疑似重复入库的书目
// GET /api/v1/books/duplicates
func (h *CatalogHandler) DetectDuplicates(c *gin.Context) {
	groups, err := h.catalogSvc.DetectDuplicates(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": groups})
}

// CreateStudent 学生登记
// POST /api/v1/students
func (h *CatalogHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	student, err := h.catalogSvc.CreateStudent(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.Created(c, student)
}

// ListStudents 获取学生列表
// GET /api/v1/students
func (h *CatalogHandler) ListStudents(c *gin.Context) {
	students, err := h.catalogSvc.ListStudents(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": students})
}

// handleCatalogError 统一映射馆藏模块业务错误
func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookNumberRequired):
		response.BadRequest(c, 30001, err.Error())
	case errors.Is(err, service.ErrBookNumberTaken),
		errors.Is(err, service.ErrAdmissionNoTaken):
		response.Conflict(c, 30002, err.Error())
	default:
		response.InternalError(c)
	}
}
