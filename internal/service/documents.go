package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"campus-planner/internal/model"
	"campus-planner/internal/repository"
	pkgerrors "campus-planner/pkg/errors"
)

// ── 用户文档读写 ──
//
// 每个用户的课表、活动、学习偏好、作息与生成结果各存一份 JSON 文档，
// 以 version 做乐观锁。

// loadDocument 读取文档并解码到 out；文档不存在时 found 为 false、version 为 0
func loadDocument(ctx context.Context, repo repository.DocumentRepository, userID, key string, out any) (version int, found bool, err error) {
	doc, err := repo.Get(ctx, userID, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if err := json.Unmarshal(doc.Payload, out); err != nil {
		return 0, false, fmt.Errorf("解析文档 %s 失败: %w", key, err)
	}
	return doc.Version, true, nil
}

// saveDocument 按调用方持有的 version 写入；version 为 0 表示首次创建。
// 版本不一致时返回 pkgerrors.ErrOptimisticLock。
func saveDocument(ctx context.Context, repo repository.DocumentRepository, userID, key string, version int, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("序列化文档 %s 失败: %w", key, err)
	}
	doc := &model.PlannerDocument{
		UserID:  userID,
		Key:     key,
		Payload: model.JSONB(payload),
	}
	doc.Version = version
	if err := repo.Save(ctx, doc); err != nil {
		return 0, err
	}
	return doc.Version, nil
}

// overwriteDocument 服务端生成的内容（导入结果、生成的日程）直接覆盖当前版本，
// 与并发写入冲突时重读版本号再试一次
func overwriteDocument(ctx context.Context, repo repository.DocumentRepository, userID, key string, v any) (int, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		version := 0
		doc, err := repo.Get(ctx, userID, key)
		switch {
		case err == nil:
			version = doc.Version
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return 0, err
		}

		newVersion, err := saveDocument(ctx, repo, userID, key, version, v)
		if err == nil {
			return newVersion, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}
