package dto

import "campus-planner/internal/planner"

// ── 课表导入 ──

// ImportICSRequest ICS 导入请求（URL 方式，支持 webcal://）
type ImportICSRequest struct {
	URL string `json:"url" binding:"required"`
}

// TimetableResponse 课表及其来源信息
type TimetableResponse struct {
	Title     string               `json:"title,omitempty"`
	ValidFrom string               `json:"validFrom,omitempty"`
	ValidTo   string               `json:"validTo,omitempty"`
	Classes   []planner.ClassEntry `json:"classes"`
	Version   int                  `json:"version"`
}

// UpdateTimetableRequest 审阅后保存课表
type UpdateTimetableRequest struct {
	Title     string               `json:"title"`
	ValidFrom string               `json:"validFrom"`
	ValidTo   string               `json:"validTo"`
	Classes   []planner.ClassEntry `json:"classes" binding:"required"`
	Version   int                  `json:"version"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	UploadID      string               `json:"upload_id,omitempty"`
	Title         string               `json:"title,omitempty"`
	ValidFrom     string               `json:"validFrom,omitempty"`
	ValidTo       string               `json:"validTo,omitempty"`
	ImportedCount int                  `json:"imported_count"`
	Skipped       int                  `json:"skipped"`
	Classes       []planner.ClassEntry `json:"classes"`
}

// UploadResponse 上传记录
type UploadResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Status      string `json:"status"`
	Title       string `json:"title,omitempty"`
	ClassCount  int    `json:"class_count"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}
