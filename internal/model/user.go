package model

// User 用户表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	Name         string `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
