package service

import (
	"context"
	"errors"
	"testing"

	"campus-planner/internal/dto"
	"campus-planner/internal/planner"
	pkgerrors "campus-planner/pkg/errors"
)

func setupTestPreferenceService() (PreferenceService, *testRepos) {
	tr := newTestRepos()
	return NewPreferenceService(tr.repo, tr.logger), tr
}

func TestPreferences_DefaultsWhenUnset(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	ctx := context.Background()

	acts, err := svc.GetActivities(ctx, tr.testUser)
	if err != nil {
		t.Fatalf("GetActivities 应成功: %v", err)
	}
	if acts.Activities == nil || len(acts.Activities) != 0 || acts.Version != 0 {
		t.Errorf("未保存时应返回空列表、version=0，实际 %+v", acts)
	}

	study, err := svc.GetStudyPreferences(ctx, tr.testUser)
	if err != nil {
		t.Fatalf("GetStudyPreferences 应成功: %v", err)
	}
	if study.SessionDurationMinutes != 90 || study.HoursPerCoursePerWeek != 5 {
		t.Errorf("学习偏好默认值不正确: %+v", study.StudyPreferences)
	}

	le, err := svc.GetLifeEssentials(ctx, tr.testUser)
	if err != nil {
		t.Fatalf("GetLifeEssentials 应成功: %v", err)
	}
	if le.LifeEssentials != planner.DefaultLifeEssentials() {
		t.Errorf("作息默认值不正确: %+v", le.LifeEssentials)
	}
}

func TestSaveActivities_Versioned(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	ctx := context.Background()
	req := &dto.ActivitiesRequest{
		Activities: []planner.Activity{{
			Name:               "Gym",
			DurationMinutes:    60,
			Frequency:          planner.FrequencyThreeToFive,
			PreferredTimeSlots: []planner.Bucket{planner.BucketEvening},
		}},
	}

	saved, err := svc.SaveActivities(ctx, tr.testUser, req)
	if err != nil {
		t.Fatalf("SaveActivities 应成功: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("期望 version=1，实际 %d", saved.Version)
	}

	got, _ := svc.GetActivities(ctx, tr.testUser)
	if len(got.Activities) != 1 || got.Activities[0].Name != "Gym" || got.Activities[0].PreferredTimeSlots[0] != planner.BucketEvening {
		t.Errorf("读回的活动不正确: %+v", got.Activities)
	}

	// 过期版本
	_, err = svc.SaveActivities(ctx, tr.testUser, req)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestSaveActivities_Invalid(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	_, err := svc.SaveActivities(context.Background(), tr.testUser, &dto.ActivitiesRequest{
		Activities: []planner.Activity{{Name: "Gym", DurationMinutes: 0}},
	})
	if !errors.Is(err, planner.ErrValidation) {
		t.Errorf("时长为 0 应校验失败，实际: %v", err)
	}
	if len(tr.docs.docs) != 0 {
		t.Error("校验失败时不应写入")
	}
}

func TestSaveStudyPreferences_RejectsNegative(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	prefs := planner.DefaultStudyPreferences()
	prefs.SessionDurationMinutes = -30

	_, err := svc.SaveStudyPreferences(context.Background(), tr.testUser, &dto.StudyPreferencesRequest{StudyPreferences: prefs})
	if !errors.Is(err, planner.ErrValidation) {
		t.Errorf("负数时长应校验失败，实际: %v", err)
	}
}

func TestSaveStudyPreferences_RoundTrip(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	ctx := context.Background()
	prefs := planner.StudyPreferences{
		SessionDurationMinutes: 60,
		HoursPerCoursePerWeek:  3,
		PreferredTimeSlots:     []planner.Bucket{planner.BucketMorning, planner.BucketNight},
	}

	if _, err := svc.SaveStudyPreferences(ctx, tr.testUser, &dto.StudyPreferencesRequest{StudyPreferences: prefs}); err != nil {
		t.Fatalf("SaveStudyPreferences 应成功: %v", err)
	}
	got, _ := svc.GetStudyPreferences(ctx, tr.testUser)
	if got.SessionDurationMinutes != 60 || len(got.PreferredTimeSlots) != 2 || got.Version != 1 {
		t.Errorf("读回的学习偏好不正确: %+v", got)
	}
}

func TestSaveLifeEssentials_InvalidClock(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	le := planner.DefaultLifeEssentials()
	le.Sleep.Bedtime = "25:00"

	_, err := svc.SaveLifeEssentials(context.Background(), tr.testUser, &dto.LifeEssentialsRequest{LifeEssentials: le})
	if !errors.Is(err, planner.ErrValidation) {
		t.Errorf("非法时间应校验失败，实际: %v", err)
	}
}

func TestSleepReport(t *testing.T) {
	svc, tr := setupTestPreferenceService()
	ctx := context.Background()

	// 默认 23:00 → 07:00
	r, err := svc.SleepReport(ctx, tr.testUser)
	if err != nil {
		t.Fatalf("SleepReport 应成功: %v", err)
	}
	if r.TotalMinutes != 480 || r.Quality != planner.SleepOptimal {
		t.Errorf("期望 8 小时 Optimal，实际 %+v", r)
	}

	le := planner.DefaultLifeEssentials()
	le.Sleep = planner.Sleep{Bedtime: "01:30", WakeTime: "06:00"}
	if _, err := svc.SaveLifeEssentials(ctx, tr.testUser, &dto.LifeEssentialsRequest{LifeEssentials: le}); err != nil {
		t.Fatalf("SaveLifeEssentials 应成功: %v", err)
	}
	r, _ = svc.SleepReport(ctx, tr.testUser)
	if r.Hours != 4 || r.Minutes != 30 || r.Quality != planner.SleepTooLittle {
		t.Errorf("期望 4 小时 30 分 Too little，实际 %+v", r)
	}
}
