package service

import (
	"context"

	"go.uber.org/zap"

	"campus-planner/internal/dto"
	"campus-planner/internal/model"
	"campus-planner/internal/planner"
	"campus-planner/internal/repository"
)

// PreferenceService 活动、学习偏好与作息的读写。
// 未保存过的文档返回引导页的默认值，version 为 0。
type PreferenceService interface {
	GetActivities(ctx context.Context, userID string) (*dto.ActivitiesResponse, error)
	SaveActivities(ctx context.Context, userID string, req *dto.ActivitiesRequest) (*dto.ActivitiesResponse, error)
	GetStudyPreferences(ctx context.Context, userID string) (*dto.StudyPreferencesResponse, error)
	SaveStudyPreferences(ctx context.Context, userID string, req *dto.StudyPreferencesRequest) (*dto.StudyPreferencesResponse, error)
	GetLifeEssentials(ctx context.Context, userID string) (*dto.LifeEssentialsResponse, error)
	SaveLifeEssentials(ctx context.Context, userID string, req *dto.LifeEssentialsRequest) (*dto.LifeEssentialsResponse, error)
	// SleepReport 按已保存（或默认）的作息计算睡眠时长
	SleepReport(ctx context.Context, userID string) (*planner.SleepReport, error)
}

type preferenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, logger: logger}
}

// ── 活动 ──

func (s *preferenceService) GetActivities(ctx context.Context, userID string) (*dto.ActivitiesResponse, error) {
	activities, version, err := s.loadActivities(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ActivitiesResponse{Activities: activities, Version: version}, nil
}

func (s *preferenceService) loadActivities(ctx context.Context, userID string) ([]planner.Activity, int, error) {
	var activities []planner.Activity
	version, _, err := loadDocument(ctx, s.repo.Document, userID, model.DocUserActivities, &activities)
	if err != nil {
		s.logger.Error("查询活动失败", zap.Error(err))
		return nil, 0, err
	}
	if activities == nil {
		activities = []planner.Activity{}
	}
	return activities, version, nil
}

func (s *preferenceService) SaveActivities(ctx context.Context, userID string, req *dto.ActivitiesRequest) (*dto.ActivitiesResponse, error) {
	activities := req.Activities
	if activities == nil {
		activities = []planner.Activity{}
	}
	if err := planner.ValidateActivities(activities); err != nil {
		return nil, err
	}
	version, err := saveDocument(ctx, s.repo.Document, userID, model.DocUserActivities, req.Version, activities)
	if err != nil {
		return nil, err
	}
	return &dto.ActivitiesResponse{Activities: activities, Version: version}, nil
}

// ── 学习偏好 ──

func (s *preferenceService) GetStudyPreferences(ctx context.Context, userID string) (*dto.StudyPreferencesResponse, error) {
	prefs, version, err := s.loadStudyPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.StudyPreferencesResponse{StudyPreferences: prefs, Version: version}, nil
}

func (s *preferenceService) loadStudyPreferences(ctx context.Context, userID string) (planner.StudyPreferences, int, error) {
	prefs := planner.DefaultStudyPreferences()
	version, _, err := loadDocument(ctx, s.repo.Document, userID, model.DocStudyPreferences, &prefs)
	if err != nil {
		s.logger.Error("查询学习偏好失败", zap.Error(err))
		return planner.StudyPreferences{}, 0, err
	}
	if prefs.PreferredTimeSlots == nil {
		prefs.PreferredTimeSlots = []planner.Bucket{}
	}
	return prefs, version, nil
}

func (s *preferenceService) SaveStudyPreferences(ctx context.Context, userID string, req *dto.StudyPreferencesRequest) (*dto.StudyPreferencesResponse, error) {
	prefs := req.StudyPreferences
	if prefs.PreferredTimeSlots == nil {
		prefs.PreferredTimeSlots = []planner.Bucket{}
	}
	if err := planner.ValidateStudyPreferences(prefs); err != nil {
		return nil, err
	}
	version, err := saveDocument(ctx, s.repo.Document, userID, model.DocStudyPreferences, req.Version, prefs)
	if err != nil {
		return nil, err
	}
	return &dto.StudyPreferencesResponse{StudyPreferences: prefs, Version: version}, nil
}

// ── 作息 ──

func (s *preferenceService) GetLifeEssentials(ctx context.Context, userID string) (*dto.LifeEssentialsResponse, error) {
	le, version, err := s.loadLifeEssentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.LifeEssentialsResponse{LifeEssentials: le, Version: version}, nil
}

func (s *preferenceService) loadLifeEssentials(ctx context.Context, userID string) (planner.LifeEssentials, int, error) {
	le := planner.DefaultLifeEssentials()
	version, _, err := loadDocument(ctx, s.repo.Document, userID, model.DocLifeEssentials, &le)
	if err != nil {
		s.logger.Error("查询作息失败", zap.Error(err))
		return planner.LifeEssentials{}, 0, err
	}
	return le, version, nil
}

func (s *preferenceService) SaveLifeEssentials(ctx context.Context, userID string, req *dto.LifeEssentialsRequest) (*dto.LifeEssentialsResponse, error) {
	if err := planner.ValidateLifeEssentials(req.LifeEssentials); err != nil {
		return nil, err
	}
	version, err := saveDocument(ctx, s.repo.Document, userID, model.DocLifeEssentials, req.Version, req.LifeEssentials)
	if err != nil {
		return nil, err
	}
	return &dto.LifeEssentialsResponse{LifeEssentials: req.LifeEssentials, Version: version}, nil
}

func (s *preferenceService) SleepReport(ctx context.Context, userID string) (*planner.SleepReport, error) {
	le, _, err := s.loadLifeEssentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	report, err := planner.SummarizeSleep(le.Sleep)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
