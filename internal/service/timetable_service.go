package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-planner/internal/dto"
	"campus-planner/internal/model"
	"campus-planner/internal/planner"
	"campus-planner/internal/repository"
	"campus-planner/pkg/metrics"
	"campus-planner/pkg/storage"
)

// ── 课表模块业务错误 ──

var (
	ErrUnsupportedFileType = errors.New("仅支持 JPG、PNG 或 PDF 文件")
	ErrFileTooLarge        = errors.New("文件大小不能超过 10MB")
	ErrTimetableEmpty      = errors.New("未识别到任何有效课程")
	ErrTimetableNotFound   = errors.New("尚未导入课表")
	ErrStorageUnavailable  = errors.New("对象存储不可用")
)

const (
	maxUploadSize   = 10 * 1024 * 1024 // 10MB
	presignedExpiry = 15 * time.Minute
)

// uploadTypes 允许上传的文件类型 → 扩展名（按内容嗅探，不信任客户端声明）
var uploadTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// UploadFile 上传的课表文件
type UploadFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// timetableDocument parsedSchedule 文档内容
type timetableDocument struct {
	Title     string               `json:"title,omitempty"`
	ValidFrom string               `json:"validFrom,omitempty"`
	ValidTo   string               `json:"validTo,omitempty"`
	Classes   []planner.ClassEntry `json:"classes"`
}

// ── TimetableService 接口 ──────────────────────────────────
//
//   - 上传（Upload）：文件存入对象存储 → 识别服务提取课程 → 规范化 → 覆盖保存课表；
//     识别失败时删除已上传的文件，上传记录标记为 failed。
//   - ICS 导入（ImportICS / ImportICSFromURL）同样覆盖保存课表。
//   - 审阅后保存（Update）按 version 做乐观锁。
// ─────────────────────────────────────────────────────────────

// TimetableService 课表模块业务接口
type TimetableService interface {
	Upload(ctx context.Context, userID string, file UploadFile) (*dto.ImportResponse, error)
	ImportICS(ctx context.Context, userID string, reader io.Reader) (*dto.ImportResponse, error)
	ImportICSFromURL(ctx context.Context, userID, rawURL string) (*dto.ImportResponse, error)
	Get(ctx context.Context, userID string) (*dto.TimetableResponse, error)
	Update(ctx context.Context, userID string, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error)
	Summary(ctx context.Context, userID string) (*planner.TimetableSummary, error)
	ListUploads(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.UploadResponse, int64, error)
}

type timetableService struct {
	repo      *repository.Repository
	store     storage.ObjectStore
	extractor Extractor
	metrics   *metrics.Metrics
	location  *time.Location
	logger    *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例；store 为 nil 时上传不可用，ICS 导入不受影响
func NewTimetableService(
	repo *repository.Repository,
	store storage.ObjectStore,
	extractor Extractor,
	m *metrics.Metrics,
	logger *zap.Logger,
) TimetableService {
	return &timetableService{
		repo:      repo,
		store:     store,
		extractor: extractor,
		metrics:   m,
		location:  time.Local,
		logger:    logger,
	}
}

// ════════════════════════════════════════════════════════════
// Upload 上传课表图片 / PDF
// ════════════════════════════════════════════════════════════

func (s *timetableService) Upload(ctx context.Context, userID string, file UploadFile) (*dto.ImportResponse, error) {
	if file.Size > maxUploadSize {
		return nil, ErrFileTooLarge
	}
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}

	// 1. 嗅探文件类型
	br := bufio.NewReaderSize(file.Reader, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)
	ext, ok := uploadTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedFileType
	}

	// 2. 上传记录 + 对象存储
	objectKey := fmt.Sprintf("schedules/%s.%s", uuid.New().String(), ext)
	upload := &model.TimetableUpload{
		UserID:      userID,
		ObjectKey:   objectKey,
		FileName:    file.Name,
		ContentType: contentType,
		SizeBytes:   file.Size,
		Status:      model.UploadPending,
	}
	if err := s.repo.Upload.Create(ctx, upload); err != nil {
		s.logger.Error("创建上传记录失败", zap.Error(err))
		return nil, err
	}
	if err := s.store.Put(ctx, objectKey, br, file.Size, contentType); err != nil {
		s.logger.Error("上传课表文件失败", zap.String("key", objectKey), zap.Error(err))
		s.markFailed(ctx, upload, err)
		return nil, ErrStorageUnavailable
	}

	// 之后任何一步失败都删除已上传的文件
	saved := false
	defer func() {
		if saved {
			return
		}
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), objectKey); rmErr != nil {
			s.logger.Warn("删除上传文件失败", zap.String("key", objectKey), zap.Error(rmErr))
		}
	}()

	// 3. 识别
	result, err := s.extract(ctx, objectKey, contentType)
	if err != nil {
		s.metrics.RecordExtraction("upload", err)
		s.logger.Warn("课表识别失败", zap.String("key", objectKey), zap.Error(err))
		s.markFailed(ctx, upload, err)
		return nil, err
	}
	if len(result.Classes) == 0 {
		s.metrics.RecordExtraction("upload", ErrTimetableEmpty)
		s.markFailed(ctx, upload, ErrTimetableEmpty)
		return nil, ErrTimetableEmpty
	}

	classes, err := normalizeClasses(result.Classes)
	if err != nil {
		s.metrics.RecordExtraction("upload", err)
		s.logger.Warn("识别结果不合法", zap.String("key", objectKey), zap.Error(err))
		s.markFailed(ctx, upload, err)
		return nil, err
	}

	// 4. 覆盖保存课表
	doc := timetableDocument{
		Title:     result.Title,
		ValidFrom: result.ValidFrom,
		ValidTo:   result.ValidTo,
		Classes:   classes,
	}
	if _, err := overwriteDocument(ctx, s.repo.Document, userID, model.DocParsedSchedule, doc); err != nil {
		s.logger.Error("保存课表失败", zap.Error(err))
		s.markFailed(ctx, upload, err)
		return nil, err
	}
	saved = true
	s.metrics.RecordExtraction("upload", nil)

	upload.Status = model.UploadExtracted
	upload.Title = result.Title
	upload.ValidFrom = result.ValidFrom
	upload.ValidTo = result.ValidTo
	upload.ClassCount = len(classes)
	if err := s.repo.Upload.Update(ctx, upload); err != nil {
		s.logger.Warn("更新上传记录失败", zap.String("upload_id", upload.UploadID), zap.Error(err))
	}

	s.logger.Info("课表识别完成",
		zap.String("user_id", userID),
		zap.Int("classes", len(classes)),
	)
	return &dto.ImportResponse{
		UploadID:      upload.UploadID,
		Title:         doc.Title,
		ValidFrom:     doc.ValidFrom,
		ValidTo:       doc.ValidTo,
		ImportedCount: len(classes),
		Classes:       classes,
	}, nil
}

func (s *timetableService) extract(ctx context.Context, objectKey, contentType string) (*Extraction, error) {
	if s.extractor == nil {
		return nil, ErrExtractionFailed
	}
	fileURL, err := s.store.PresignedURL(ctx, objectKey, presignedExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return s.extractor.Extract(ctx, ExtractRequest{
		FilePath:    objectKey,
		FileURL:     fileURL,
		ContentType: contentType,
	})
}

func (s *timetableService) markFailed(ctx context.Context, upload *model.TimetableUpload, cause error) {
	upload.Status = model.UploadFailed
	upload.Error = cause.Error()
	if err := s.repo.Upload.Update(ctx, upload); err != nil {
		s.logger.Warn("更新上传记录失败", zap.String("upload_id", upload.UploadID), zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// ImportICS 导入 ICS 课表（文件或 URL）
// ════════════════════════════════════════════════════════════

func (s *timetableService) ImportICS(ctx context.Context, userID string, reader io.Reader) (*dto.ImportResponse, error) {
	parsed, err := ParseICS(reader, s.location)
	if err != nil {
		s.metrics.RecordExtraction("ics", err)
		s.logger.Warn("ICS 解析失败", zap.Error(err))
		return nil, err
	}

	doc := timetableDocument{
		Title:     parsed.Title,
		ValidFrom: parsed.ValidFrom,
		ValidTo:   parsed.ValidTo,
		Classes:   parsed.Classes,
	}
	if _, err := overwriteDocument(ctx, s.repo.Document, userID, model.DocParsedSchedule, doc); err != nil {
		s.logger.Error("保存课表失败", zap.Error(err))
		return nil, err
	}
	s.metrics.RecordExtraction("ics", nil)

	return &dto.ImportResponse{
		Title:         parsed.Title,
		ValidFrom:     parsed.ValidFrom,
		ValidTo:       parsed.ValidTo,
		ImportedCount: len(parsed.Classes),
		Skipped:       parsed.Skipped,
		Classes:       parsed.Classes,
	}, nil
}

func (s *timetableService) ImportICSFromURL(ctx context.Context, userID, rawURL string) (*dto.ImportResponse, error) {
	body, err := FetchICSContent(ctx, rawURL)
	if err != nil {
		s.metrics.RecordExtraction("ics", err)
		s.logger.Warn("获取 ICS 失败", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}
	defer body.Close()
	return s.ImportICS(ctx, userID, body)
}

// ════════════════════════════════════════════════════════════
// 课表读写
// ════════════════════════════════════════════════════════════

func (s *timetableService) Get(ctx context.Context, userID string) (*dto.TimetableResponse, error) {
	var doc timetableDocument
	version, found, err := loadDocument(ctx, s.repo.Document, userID, model.DocParsedSchedule, &doc)
	if err != nil {
		s.logger.Error("查询课表失败", zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, ErrTimetableNotFound
	}
	return toTimetableResponse(doc, version), nil
}

func (s *timetableService) Update(ctx context.Context, userID string, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := planner.ValidateClasses(req.Classes); err != nil {
		return nil, err
	}
	doc := timetableDocument{
		Title:     req.Title,
		ValidFrom: req.ValidFrom,
		ValidTo:   req.ValidTo,
		Classes:   req.Classes,
	}
	version, err := saveDocument(ctx, s.repo.Document, userID, model.DocParsedSchedule, req.Version, doc)
	if err != nil {
		return nil, err
	}
	return toTimetableResponse(doc, version), nil
}

func (s *timetableService) Summary(ctx context.Context, userID string) (*planner.TimetableSummary, error) {
	tt, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := planner.SummarizeClasses(tt.Classes)
	return &summary, nil
}

func (s *timetableService) ListUploads(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.UploadResponse, int64, error) {
	uploads, total, err := s.repo.Upload.ListByUser(ctx, userID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询上传记录失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		list = append(list, dto.UploadResponse{
			ID:          u.UploadID,
			FileName:    u.FileName,
			ContentType: u.ContentType,
			SizeBytes:   u.SizeBytes,
			Status:      u.Status,
			Title:       u.Title,
			ClassCount:  u.ClassCount,
			Error:       u.Error,
			CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		})
	}
	return list, total, nil
}

func toTimetableResponse(doc timetableDocument, version int) *dto.TimetableResponse {
	classes := doc.Classes
	if classes == nil {
		classes = []planner.ClassEntry{}
	}
	return &dto.TimetableResponse{
		Title:     doc.Title,
		ValidFrom: doc.ValidFrom,
		ValidTo:   doc.ValidTo,
		Classes:   classes,
		Version:   version,
	}
}
