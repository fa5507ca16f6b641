package planner

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mathClass() ClassEntry {
	return ClassEntry{Day: Monday, StartTime: "08:00", EndTime: "10:00", Subject: "Math", Type: ClassLecture}
}

func sampleClasses() []ClassEntry {
	return []ClassEntry{
		mathClass(),
		{Day: Monday, StartTime: "12:00", EndTime: "13:00", Subject: "Physics", Type: ClassLab, Room: "B12"},
		{Day: Wednesday, StartTime: "10:00", EndTime: "12:00", Subject: "Math", Type: ClassSeminar},
		{Day: Thursday, StartTime: "14:00", EndTime: "16:00", Subject: "History", Type: ClassOptionalSeminar, Frequency: FrequencyOddWeeks},
	}
}

func sampleActivities() []Activity {
	return []Activity{
		{Name: "Gym", Icon: "🏋️", DurationMinutes: 60, Frequency: FrequencyThreeToFive, PreferredTimeSlots: []Bucket{BucketEvening}, Priority: PriorityHigh, Flexible: true},
		{Name: "Reading", DurationMinutes: 30, Frequency: FrequencyDaily, PreferredTimeSlots: []Bucket{BucketNight}},
		{Name: "Hiking", DurationMinutes: 180, Frequency: FrequencyWeekendsOnly, PreferredTimeSlots: []Bucket{BucketLateMorning}, Flexible: true},
	}
}

func sampleStudy() StudyPreferences {
	return StudyPreferences{
		SessionDurationMinutes: 60,
		HoursPerCoursePerWeek:  3,
		PreferredTimeSlots:     []Bucket{BucketAfternoon, BucketEvening},
	}
}

type span struct {
	kind  BlockKind
	title string
	start string
	end   string
}

func spans(blocks []TimeBlock) []span {
	out := make([]span, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, span{b.Kind, b.Title, b.StartTime, b.EndTime})
	}
	return out
}

func TestSynthesize_MondayLectureDay(t *testing.T) {
	le := DefaultLifeEssentials()
	le.CommuteMinutesOneWay = 30

	ws, err := Synthesize([]ClassEntry{mathClass()}, nil, StudyPreferences{}, le)
	require.NoError(t, err)

	want := []span{
		{KindSleep, "Sleep", "00:00", "07:00"},
		{KindCommute, "Commute to University", "07:15", "08:00"},
		{KindMeal, "Breakfast", "07:30", "08:00"},
		{KindClass, "Math", "08:00", "10:00"},
		{KindCommute, "Commute from University", "10:00", "10:30"},
		{KindMeal, "Lunch", "13:00", "13:45"},
		{KindMeal, "Dinner", "19:00", "19:45"},
		{KindSleep, "Sleep", "23:00", "23:59"},
	}
	assert.Equal(t, want, spans(ws.Blocks(Monday)))

	// 早餐与早间通勤的重叠作为冲突报告出来
	require.Len(t, ws.Conflicts, 1)
	assert.Equal(t, Conflict{Day: Monday, First: "Commute to University", Second: "Breakfast", Start: "07:30", End: "08:00"}, ws.Conflicts[0])

	// 未选择偏好学习时段：默认 5 小时 / 90 分钟 = 4 次，全部舍弃
	require.Len(t, ws.Dropped, 4)
	for _, d := range ws.Dropped {
		assert.Equal(t, KindStudy, d.Kind)
		assert.Equal(t, "Study: Math", d.Title)
		assert.Equal(t, 90, d.DurationMinutes)
	}

	assert.Equal(t, Stats{TotalClasses: 1, TotalFreeTimeHours: 69}, ws.Stats)

	for _, d := range WeekDays {
		assert.Contains(t, ws.Days, d)
	}
	assert.Len(t, ws.Blocks(Tuesday), 5)
}

func TestSynthesize_NoOverlapForPlacedItems(t *testing.T) {
	ws, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)

	for _, d := range WeekDays {
		blocks := ws.Blocks(d)
		for i, a := range blocks {
			if a.Kind != KindStudy && a.Kind != KindActivity {
				continue
			}
			for j, b := range blocks {
				if i == j {
					continue
				}
				assert.False(t, overlaps(a.StartMinute(), a.EndMinute(), b.StartMinute(), b.EndMinute()),
					"%s: %s %s-%s 与 %s %s-%s 重叠", d, a.Title, a.StartTime, a.EndTime, b.Title, b.StartTime, b.EndTime)
			}
		}
	}
}

func TestSynthesize_NoOverlapWithoutFixedConflicts(t *testing.T) {
	le := DefaultLifeEssentials()
	le.CommuteMinutesOneWay = 0

	ws, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), le)
	require.NoError(t, err)
	require.Empty(t, ws.Conflicts)

	for _, d := range WeekDays {
		blocks := ws.Blocks(d)
		for i := 0; i < len(blocks); i++ {
			for j := i + 1; j < len(blocks); j++ {
				a, b := blocks[i], blocks[j]
				if a.Kind == KindSleep || b.Kind == KindSleep {
					continue
				}
				assert.False(t, overlaps(a.StartMinute(), a.EndMinute(), b.StartMinute(), b.EndMinute()),
					"%s: %s 与 %s 重叠", d, a.Title, b.Title)
			}
		}
	}
}

func TestSynthesize_ClassesKeptVerbatim(t *testing.T) {
	classes := sampleClasses()
	ws, err := Synthesize(classes, sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)

	for _, c := range classes {
		found := false
		for _, b := range ws.Blocks(c.Day) {
			if b.Kind == KindClass && b.Title == c.Subject && b.StartTime == c.StartTime && b.EndTime == c.EndTime {
				found = true
				assert.Equal(t, c.Type, b.Subtype)
				assert.Equal(t, ClassColor(c.Type), b.ColorTag)
				assert.Equal(t, c.Room, b.Location)
				assert.Equal(t, c.Frequency, b.Frequency)
			}
		}
		assert.True(t, found, "课程 %s %s %s 未保留", c.Day, c.Subject, c.StartTime)
	}
}

func TestSynthesize_Idempotent(t *testing.T) {
	first, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)
	second, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSynthesize_ConcurrentCallsAgree(t *testing.T) {
	want, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)

	const workers = 8
	results := make([]*WeekSchedule, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, want, got, "worker %d", i)
	}
}

func TestSynthesize_StatsMatchBlocks(t *testing.T) {
	ws, err := Synthesize(sampleClasses(), sampleActivities(), sampleStudy(), DefaultLifeEssentials())
	require.NoError(t, err)

	counts := map[BlockKind]int{}
	for _, d := range WeekDays {
		for _, b := range ws.Blocks(d) {
			counts[b.Kind]++
		}
	}
	assert.Equal(t, counts[KindClass], ws.Stats.TotalClasses)
	assert.Equal(t, counts[KindStudy], ws.Stats.TotalStudySessions)
	assert.Equal(t, counts[KindActivity], ws.Stats.TotalActivities)
	assert.Equal(t, 4, ws.Stats.TotalClasses)
}

func TestSynthesize_StudySessionCount(t *testing.T) {
	assert.Equal(t, 2, SessionsNeeded(2, 90))
	assert.Equal(t, 4, SessionsNeeded(5, 90))
	assert.Equal(t, 3, SessionsNeeded(3, 60))

	le := DefaultLifeEssentials()
	le.CommuteMinutesOneWay = 0
	study := StudyPreferences{SessionDurationMinutes: 90, HoursPerCoursePerWeek: 2, PreferredTimeSlots: []Bucket{BucketEvening}}

	ws, err := Synthesize([]ClassEntry{mathClass()}, nil, study, le)
	require.NoError(t, err)
	assert.Equal(t, 2, ws.Stats.TotalStudySessions)
	assert.Empty(t, ws.Dropped)

	// 第二次看到第一次：周一 17:00 已占，18:00 与 19:00 撞上晚餐，只能去周二
	var placed []string
	for _, d := range WeekDays {
		for _, b := range ws.Blocks(d) {
			if b.Kind == KindStudy {
				placed = append(placed, string(d)+" "+b.StartTime+"-"+b.EndTime)
			}
		}
	}
	assert.Equal(t, []string{"Monday 17:00-18:30", "Tuesday 17:00-18:30"}, placed)
}

func TestSynthesize_StudyTitleTruncated(t *testing.T) {
	long := "Introduction to Distributed Systems Engineering"
	le := DefaultLifeEssentials()
	study := StudyPreferences{SessionDurationMinutes: 60, HoursPerCoursePerWeek: 1, PreferredTimeSlots: []Bucket{BucketAfternoon}}
	ws, err := Synthesize([]ClassEntry{{Day: Friday, StartTime: "09:00", EndTime: "11:00", Subject: long}}, nil, study, le)
	require.NoError(t, err)
	require.Equal(t, 1, ws.Stats.TotalStudySessions)

	for _, b := range ws.Blocks(Monday) {
		if b.Kind == KindStudy {
			assert.Equal(t, "Study: Introduction to Distributed Sy...", b.Title)
			assert.Equal(t, "12:00", b.StartTime)
		}
	}
	assert.Equal(t, "Study: Math", studyTitle("Math"))
}

func TestSynthesize_ValidationStopsEarly(t *testing.T) {
	_, err := Synthesize(nil, nil, StudyPreferences{}, DefaultLifeEssentials())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	bad := DefaultLifeEssentials()
	bad.Sleep.Bedtime = "25:00"
	_, err = Synthesize([]ClassEntry{mathClass()}, nil, StudyPreferences{}, bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidClock)

	_, err = Synthesize([]ClassEntry{mathClass()}, []Activity{{Name: "Yoga"}}, StudyPreferences{}, DefaultLifeEssentials())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "activities", ve.Section)
	assert.Equal(t, "duration", ve.Field)
}

func TestPlaceActivities_DailyFlexibleFillsEveryDay(t *testing.T) {
	act := Activity{Name: "Walk", DurationMinutes: 45, Frequency: FrequencyDaily, Flexible: true}
	w, dropped := PlaceActivities(NewWeek(), []Activity{act})

	assert.Empty(t, dropped)
	assert.Equal(t, 7, w.Count(KindActivity))
	for _, d := range WeekDays {
		blocks := w.Blocks(d)
		require.Len(t, blocks, 1)
		assert.Equal(t, "08:00", blocks[0].StartTime)
		assert.Equal(t, "08:45", blocks[0].EndTime)
	}
}

func TestPlaceActivities_InflexibleWithoutPreferenceIsDropped(t *testing.T) {
	act := Activity{Name: "Chess", Icon: "♟", DurationMinutes: 60, Frequency: FrequencyOneToTwo}
	w, dropped := PlaceActivities(NewWeek(), []Activity{act})

	assert.Equal(t, 0, w.Count(KindActivity))
	require.Len(t, dropped, 2)
	assert.Equal(t, Monday, dropped[0].Day)
	assert.Equal(t, Thursday, dropped[1].Day)
	assert.Equal(t, "♟ Chess", dropped[0].Title)
}

func TestPlaceActivities_FallsBackToAnyHour(t *testing.T) {
	w := NewWeek().With(TimeBlock{Day: Saturday, StartTime: "20:00", EndTime: "23:00", Kind: KindClass})
	act := Activity{Name: "Run", DurationMinutes: 30, Frequency: FrequencyWeekendsOnly, PreferredTimeSlots: []Bucket{BucketNight}, Flexible: true}

	w, dropped := PlaceActivities(w, []Activity{act})
	assert.Empty(t, dropped)

	sat := w.Blocks(Saturday)
	require.Len(t, sat, 2)
	assert.Equal(t, "08:00", sat[1].StartTime)

	sun := w.Blocks(Sunday)
	require.Len(t, sun, 1)
	assert.Equal(t, "20:00", sun[0].StartTime)
}
