package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planner/internal/dto"
	"campus-planner/internal/service"
	"campus-planner/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Export 导出最近一次生成的日程
// GET /api/v1/schedule/export?format=json|xlsx|ics|pdf&week_start=2025-10-06
func (h *ExportHandler) Export(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), userID, &q)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, file.FileName, file.ContentType, file.Data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportUnsupportedFormat):
		response.BadRequest(c, 15001, err.Error())
	case errors.Is(err, service.ErrExportBadWeekStart):
		response.BadRequest(c, 15002, err.Error())
	case errors.Is(err, service.ErrScheduleNotGenerated):
		response.NotFound(c, 15003, err.Error())
	default:
		response.InternalError(c)
	}
}
