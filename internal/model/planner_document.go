package model

// 每个用户固定的五份文档
const (
	DocParsedSchedule    = "parsedSchedule"
	DocUserActivities    = "userActivities"
	DocStudyPreferences  = "studyPreferences"
	DocLifeEssentials    = "lifeEssentials"
	DocGeneratedSchedule = "generatedSchedule"
)

// DocumentKeys 全部合法 key
var DocumentKeys = []string{
	DocParsedSchedule, DocUserActivities, DocStudyPreferences, DocLifeEssentials, DocGeneratedSchedule,
}

// PlannerDocument 用户的排布输入/输出文档，对应 planner_documents
// 以 (user_id, doc_key) 唯一，payload 为 JSON
type PlannerDocument struct {
	DocumentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	UserID     string `gorm:"type:uuid;not null"                             json:"user_id"`
	Key        string `gorm:"column:doc_key;type:varchar(32);not null"       json:"key"`
	Payload    JSONB  `gorm:"type:jsonb;not null"                            json:"payload"`
	VersionedModel
}

func (PlannerDocument) TableName() string { return "planner_documents" }
