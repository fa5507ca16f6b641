package dto

import "campus-planner/internal/planner"

// ScheduleResponse 生成的周日程
type ScheduleResponse struct {
	*planner.WeekSchedule
	GeneratedAt string `json:"generatedAt"`
	Cached      bool   `json:"cached"`
}

// ExportQuery 导出参数
type ExportQuery struct {
	Format    string `form:"format"     binding:"omitempty,oneof=json xlsx ics pdf"`
	WeekStart string `form:"week_start" binding:"omitempty,datetime=2006-01-02"`
}

// ExportFile 导出文件
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}
