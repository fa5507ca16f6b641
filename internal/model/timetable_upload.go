package model

// 上传记录状态
const (
	UploadPending   = "pending"
	UploadExtracted = "extracted"
	UploadFailed    = "failed"
)

// TimetableUpload 课表文件上传与识别记录，对应 timetable_uploads
type TimetableUpload struct {
	UploadID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"upload_id"`
	UserID      string `gorm:"type:uuid;not null"                             json:"user_id"`
	ObjectKey   string `gorm:"type:varchar(255);not null"                     json:"object_key"`
	FileName    string `gorm:"type:varchar(255);not null"                     json:"file_name"`
	ContentType string `gorm:"type:varchar(100);not null"                     json:"content_type"`
	SizeBytes   int64  `gorm:"not null"                                       json:"size_bytes"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | extracted | failed
	Title       string `gorm:"type:varchar(255);not null;default:''"          json:"title"`
	ValidFrom   string `gorm:"type:varchar(20);not null;default:''"           json:"valid_from"`
	ValidTo     string `gorm:"type:varchar(20);not null;default:''"           json:"valid_to"`
	ClassCount  int    `gorm:"not null;default:0"                             json:"class_count"`
	Error       string `gorm:"type:text;not null;default:''"                  json:"error,omitempty"`
	BaseModel
}

func (TimetableUpload) TableName() string { return "timetable_uploads" }
