package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCommute_UsesEarliestAndLatestClass(t *testing.T) {
	w, err := LoadClasses(NewWeek(), []ClassEntry{
		{Day: Tuesday, StartTime: "14:00", EndTime: "16:00", Subject: "B"},
		{Day: Tuesday, StartTime: "09:00", EndTime: "10:00", Subject: "A"},
	})
	require.NoError(t, err)

	w = AddCommute(w, 30)
	blocks := w.Blocks(Tuesday)
	require.Len(t, blocks, 4)
	assert.Equal(t, span{KindCommute, "Commute to University", "08:15", "09:00"}, spans(blocks)[2])
	assert.Equal(t, span{KindCommute, "Commute from University", "16:00", "16:30"}, spans(blocks)[3])
	assert.Empty(t, w.Blocks(Monday))
}

func TestAddCommute_ClampsToDay(t *testing.T) {
	w, err := LoadClasses(NewWeek(), []ClassEntry{{Day: Friday, StartTime: "00:30", EndTime: "23:40", Subject: "Hackathon"}})
	require.NoError(t, err)

	w = AddCommute(w, 45)
	blocks := w.Blocks(Friday)
	require.Len(t, blocks, 3)
	assert.Equal(t, "00:00", blocks[1].StartTime)
	assert.Equal(t, "23:59", blocks[2].EndTime)

	assert.Equal(t, w, AddCommute(w, 0))
}

func TestAddMeals_ThreeMealsEveryDay(t *testing.T) {
	meals := DefaultLifeEssentials().Meals

	w, err := AddMeals(NewWeek(), meals)
	require.NoError(t, err)
	for _, d := range WeekDays {
		assert.Equal(t, []span{
			{KindMeal, "Breakfast", "07:30", "08:00"},
			{KindMeal, "Lunch", "13:00", "13:45"},
			{KindMeal, "Dinner", "19:00", "19:45"},
		}, spans(w.Blocks(d)), d)
	}
	assert.Equal(t, 21, w.Count(KindMeal))

	meals.Dinner.Time = "7pm"
	_, err = AddMeals(NewWeek(), meals)
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestAddSleep(t *testing.T) {
	tests := []struct {
		name  string
		sleep Sleep
		want  []span
	}{
		{"跨午夜拆成两段", Sleep{"23:00", "07:00"}, []span{
			{KindSleep, "Sleep", "23:00", "23:59"},
			{KindSleep, "Sleep", "00:00", "07:00"},
		}},
		{"午夜后入睡只有一段", Sleep{"01:00", "08:00"}, []span{
			{KindSleep, "Sleep", "01:00", "08:00"},
		}},
		{"00:00 入睡", Sleep{"00:00", "07:00"}, []span{
			{KindSleep, "Sleep", "00:00", "07:00"},
		}},
		{"23:59 入睡只保留清晨一段", Sleep{"23:59", "06:30"}, []span{
			{KindSleep, "Sleep", "00:00", "06:30"},
		}},
		{"入睡与起床相同", Sleep{"22:00", "22:00"}, []span{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := AddSleep(NewWeek(), tt.sleep)
			require.NoError(t, err)
			for _, d := range WeekDays {
				assert.Equal(t, tt.want, spans(w.Blocks(d)))
			}
		})
	}
}

func TestDetectConflicts_IgnoresSleepPairs(t *testing.T) {
	w, err := AddSleep(NewWeek(), Sleep{"23:00", "07:00"})
	require.NoError(t, err)
	assert.Empty(t, DetectConflicts(w))

	w = w.With(TimeBlock{Day: Sunday, StartTime: "06:30", EndTime: "07:30", Kind: KindMeal, Title: "Breakfast"})
	conflicts := DetectConflicts(w)
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{Day: Sunday, First: "Sleep", Second: "Breakfast", Start: "06:30", End: "07:00"}, conflicts[0])
}

func TestClassColor(t *testing.T) {
	assert.Equal(t, "#667EEA", ClassColor(ClassLecture))
	assert.Equal(t, "#F59E0B", ClassColor(ClassLab))
	assert.Equal(t, "#6B7280", ClassColor("Workshop"))
	assert.Equal(t, ClassLab, ParseClassType("Laborator"))
	assert.Equal(t, ClassOptionalSeminar, ParseClassType("Seminar Facultativ"))
}
