package handler

import "campus-planner/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Timetable  *TimetableHandler
	Preference *PreferenceHandler
	Schedule   *ScheduleHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Timetable:  NewTimetableHandler(svc.Timetable),
		Preference: NewPreferenceHandler(svc.Preference),
		Schedule:   NewScheduleHandler(svc.Planner),
		Export:     NewExportHandler(svc.Export),
	}
}
