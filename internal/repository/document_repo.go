package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-planner/internal/model"
	pkgerrors "campus-planner/pkg/errors"
)

// DocumentRepository 排布文档数据访问接口
type DocumentRepository interface {
	Get(ctx context.Context, userID, key string) (*model.PlannerDocument, error)
	ListByUser(ctx context.Context, userID string) ([]model.PlannerDocument, error)
	// Save Version 为 0 时新建，否则按版本号做乐观锁更新
	Save(ctx context.Context, doc *model.PlannerDocument) error
	Delete(ctx context.Context, userID, key string) error
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Get(ctx context.Context, userID, key string) (*model.PlannerDocument, error) {
	var doc model.PlannerDocument
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND doc_key = ?", userID, key).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string) ([]model.PlannerDocument, error) {
	var docs []model.PlannerDocument
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("doc_key").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepo) Save(ctx context.Context, doc *model.PlannerDocument) error {
	if doc.Version == 0 {
		doc.Version = 1
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(doc)
		if result.Error != nil {
			doc.Version = 0
			return result.Error
		}
		// 并发请求已先一步创建了同一份文档
		if result.RowsAffected == 0 {
			doc.Version = 0
			return pkgerrors.ErrOptimisticLock
		}
		return nil
	}

	oldVersion := doc.Version
	result := r.db.WithContext(ctx).
		Model(&model.PlannerDocument{}).
		Where("user_id = ? AND doc_key = ? AND version = ?", doc.UserID, doc.Key, oldVersion).
		Updates(map[string]interface{}{
			"payload":    doc.Payload,
			"version":    oldVersion + 1,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	doc.Version = oldVersion + 1
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, userID, key string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND doc_key = ?", userID, key).
		Delete(&model.PlannerDocument{}).Error
}
