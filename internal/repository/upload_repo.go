package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-planner/internal/model"
)

// UploadRepository 课表上传记录数据访问接口
type UploadRepository interface {
	Create(ctx context.Context, upload *model.TimetableUpload) error
	Update(ctx context.Context, upload *model.TimetableUpload) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.TimetableUpload, int64, error)
}

type uploadRepo struct {
	db *gorm.DB
}

// NewUploadRepo 创建 UploadRepository 实例
func NewUploadRepo(db *gorm.DB) UploadRepository {
	return &uploadRepo{db: db}
}

func (r *uploadRepo) Create(ctx context.Context, upload *model.TimetableUpload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *uploadRepo) Update(ctx context.Context, upload *model.TimetableUpload) error {
	return r.db.WithContext(ctx).
		Model(upload).
		Where("upload_id = ?", upload.UploadID).
		Updates(map[string]interface{}{
			"status":      upload.Status,
			"title":       upload.Title,
			"valid_from":  upload.ValidFrom,
			"valid_to":    upload.ValidTo,
			"class_count": upload.ClassCount,
			"error":       upload.Error,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *uploadRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.TimetableUpload, int64, error) {
	var uploads []model.TimetableUpload
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TimetableUpload{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&uploads).Error; err != nil {
		return nil, 0, err
	}

	return uploads, total, nil
}
