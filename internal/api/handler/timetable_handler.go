package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planner/internal/dto"
	"campus-planner/internal/service"
	"campus-planner/pkg/response"
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// Upload 上传课表图片 / PDF 并识别
// POST /api/v1/timetable/upload  multipart/form-data, field="file"
func (h *TimetableHandler) Upload(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, 12002, service.ErrFileTooLarge.Error())
			return
		}
		response.BadRequest(c, 12000, "请上传课表文件")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, 12000, "无法读取上传的文件")
		return
	}
	defer file.Close()

	resp, err := h.svc.Upload(c.Request.Context(), userID, service.UploadFile{
		Name:   header.Filename,
		Size:   header.Size,
		Reader: file,
	})
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// ImportICS 导入 ICS 课表
// POST /api/v1/timetable/import-ics
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}（支持 webcal://）
func (h *TimetableHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		resp, err := h.svc.ImportICS(c.Request.Context(), userID, file)
		if err != nil {
			handleTimetableError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 也可能是纯 form 提交
		req.URL = c.PostForm("url")
	}
	if req.URL == "" {
		response.BadRequest(c, 12000, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	resp, err := h.svc.ImportICSFromURL(c.Request.Context(), userID, req.URL)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// Get 获取课表
// GET /api/v1/timetable
func (h *TimetableHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 审阅后保存课表
// PUT /api/v1/timetable
func (h *TimetableHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), userID, &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// Summary 课表概览
// GET /api/v1/timetable/summary
func (h *TimetableHandler) Summary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Summary(c.Request.Context(), userID)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListUploads 上传记录
// GET /api/v1/timetable/uploads?page=1&page_size=20
func (h *TimetableHandler) ListUploads(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "分页参数无效")
		return
	}
	list, total, err := h.svc.ListUploads(c.Request.Context(), userID, &page)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// handleTimetableError 统一课表模块错误映射
func handleTimetableError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Error(c, http.StatusUnsupportedMediaType, 12001, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 12002, err.Error())
	case errors.Is(err, service.ErrExtractionFailed):
		response.ErrorWithDetails(c, http.StatusBadGateway, 12003, "课表识别失败", err.Error())
	case errors.Is(err, service.ErrTimetableEmpty):
		response.Error(c, http.StatusUnprocessableEntity, 12004, err.Error())
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 12005, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 12006, err.Error())
	case errors.Is(err, service.ErrICSBadURL):
		response.BadRequest(c, 12007, err.Error())
	case errors.Is(err, service.ErrICSFetchFailed):
		response.ErrorWithDetails(c, http.StatusBadGateway, 12008, "ICS URL 获取失败", err.Error())
	case errors.Is(err, service.ErrICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12009, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.Error(c, http.StatusUnprocessableEntity, 12010, err.Error())
	default:
		response.InternalError(c)
	}
}
