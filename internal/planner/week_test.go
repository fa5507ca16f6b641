package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeek_SortedKeepsInsertionOrderOnTies(t *testing.T) {
	w, err := LoadClasses(NewWeek(), []ClassEntry{mathClass()})
	require.NoError(t, err)

	meals := DefaultLifeEssentials().Meals
	meals.Breakfast.Time = "08:00"
	w, err = AddMeals(w, meals)
	require.NoError(t, err)

	got := spans(w.Sorted().Blocks(Monday))
	require.Len(t, got, 4)
	assert.Equal(t, span{KindClass, "Math", "08:00", "10:00"}, got[0])
	assert.Equal(t, span{KindMeal, "Breakfast", "08:00", "08:30"}, got[1])

	// 反过来追加时顺序随之反转
	w = NewWeek().With(TimeBlock{Day: Monday, StartTime: "08:00", EndTime: "08:30", Kind: KindMeal, Title: "Breakfast"})
	w, err = LoadClasses(w, []ClassEntry{mathClass()})
	require.NoError(t, err)
	got = spans(w.Sorted().Blocks(Monday))
	assert.Equal(t, KindMeal, got[0].kind)
	assert.Equal(t, KindClass, got[1].kind)
}

func TestSynthesize_ClassBeforeMealAtSameStart(t *testing.T) {
	le := DefaultLifeEssentials()
	le.Meals.Breakfast.Time = "08:00"

	ws, err := Synthesize([]ClassEntry{mathClass()}, nil, StudyPreferences{}, le)
	require.NoError(t, err)

	var order []BlockKind
	for _, b := range ws.Blocks(Monday) {
		if b.StartTime == "08:00" {
			order = append(order, b.Kind)
		}
	}
	assert.Equal(t, []BlockKind{KindClass, KindMeal}, order)
}

func TestWeek_WithDoesNotMutateReceiver(t *testing.T) {
	base := NewWeek()
	next := base.With(TimeBlock{Day: Friday, StartTime: "10:00", EndTime: "11:00", Kind: KindActivity})

	assert.Empty(t, base.Blocks(Friday))
	assert.Len(t, next.Blocks(Friday), 1)
}
