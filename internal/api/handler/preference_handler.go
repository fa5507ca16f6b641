package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planner/internal/dto"
	"campus-planner/internal/service"
	"campus-planner/pkg/response"
)

// PreferenceHandler 活动、学习偏好与作息
type PreferenceHandler struct {
	svc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler 实例
func NewPreferenceHandler(svc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

// GetActivities GET /api/v1/activities
func (h *PreferenceHandler) GetActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetActivities(c.Request.Context(), userID)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// SaveActivities PUT /api/v1/activities
func (h *PreferenceHandler) SaveActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ActivitiesRequest
	if !bindBody(c, &req) {
		return
	}
	resp, err := h.svc.SaveActivities(c.Request.Context(), userID, &req)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetStudyPreferences GET /api/v1/study-preferences
func (h *PreferenceHandler) GetStudyPreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetStudyPreferences(c.Request.Context(), userID)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// SaveStudyPreferences PUT /api/v1/study-preferences
func (h *PreferenceHandler) SaveStudyPreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.StudyPreferencesRequest
	if !bindBody(c, &req) {
		return
	}
	resp, err := h.svc.SaveStudyPreferences(c.Request.Context(), userID, &req)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetLifeEssentials GET /api/v1/life-essentials
func (h *PreferenceHandler) GetLifeEssentials(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetLifeEssentials(c.Request.Context(), userID)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// SaveLifeEssentials PUT /api/v1/life-essentials
func (h *PreferenceHandler) SaveLifeEssentials(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.LifeEssentialsRequest
	if !bindBody(c, &req) {
		return
	}
	resp, err := h.svc.SaveLifeEssentials(c.Request.Context(), userID, &req)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

// SleepReport 睡眠时长与评价
// GET /api/v1/life-essentials/sleep
func (h *PreferenceHandler) SleepReport(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.SleepReport(c.Request.Context(), userID)
	if err != nil {
		handlePreferenceError(c, err)
		return
	}
	response.OK(c, resp)
}

func bindBody(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return false
	}
	return true
}

func handlePreferenceError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	response.InternalError(c)
}
