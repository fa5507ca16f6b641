package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planner/internal/service"
	"campus-planner/pkg/response"
)

// ScheduleHandler 周日程生成与读取
type ScheduleHandler struct {
	plannerSvc service.PlannerService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(plannerSvc service.PlannerService) *ScheduleHandler {
	return &ScheduleHandler{plannerSvc: plannerSvc}
}

// Generate 生成一周日程（覆盖上一次的结果）
// POST /api/v1/schedule/generate
func (h *ScheduleHandler) Generate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.plannerSvc.Generate(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, result)
}

// Get 最近一次生成的日程
// GET /api/v1/schedule
func (h *ScheduleHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.plannerSvc.Get(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrTimetableNotFound):
		response.ErrorWithDetails(c, http.StatusConflict, 14001, "请先导入课表", err.Error())
	case errors.Is(err, service.ErrScheduleNotGenerated):
		response.NotFound(c, 14002, err.Error())
	default:
		response.InternalError(c)
	}
}
