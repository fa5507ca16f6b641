package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User     UserRepository
	Document DocumentRepository
	Upload   UploadRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:     NewUserRepo(db),
		Document: NewDocumentRepo(db),
		Upload:   NewUploadRepo(db),
	}
}
