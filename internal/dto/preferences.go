package dto

import "campus-planner/internal/planner"

// ── 偏好设置 ──

// ActivitiesRequest 保存活动列表
type ActivitiesRequest struct {
	Activities []planner.Activity `json:"activities"`
	Version    int                `json:"version"`
}

// ActivitiesResponse 活动列表
type ActivitiesResponse struct {
	Activities []planner.Activity `json:"activities"`
	Version    int                `json:"version"`
}

// StudyPreferencesRequest 保存学习偏好
type StudyPreferencesRequest struct {
	planner.StudyPreferences
	Version int `json:"version"`
}

// StudyPreferencesResponse 学习偏好
type StudyPreferencesResponse struct {
	planner.StudyPreferences
	Version int `json:"version"`
}

// LifeEssentialsRequest 保存作息
type LifeEssentialsRequest struct {
	planner.LifeEssentials
	Version int `json:"version"`
}

// LifeEssentialsResponse 作息
type LifeEssentialsResponse struct {
	planner.LifeEssentials
	Version int `json:"version"`
}
