package planner

// ── 颜色标签 ──

const (
	colorCommute  = "#EC4899"
	colorMeal     = "#FBBF24"
	colorSleep    = "#8B5CF6"
	colorStudy    = "#10B981"
	colorActivity = "#F59E0B"
	colorDefault  = "#6B7280"
)

// commuteBufferMinutes 早间通勤额外预留，仅作用于当天第一节课
const commuteBufferMinutes = 15

var classColors = map[ClassType]string{
	ClassLecture:         "#667EEA",
	ClassSeminar:         "#10B981",
	ClassLab:             "#F59E0B",
	ClassOptionalSeminar: "#6B7280",
}

// ClassColor 课程类型 → 颜色，未知类型使用灰色
func ClassColor(t ClassType) string {
	if c, ok := classColors[t]; ok {
		return c
	}
	return colorDefault
}

// LoadClasses 步骤 1：课程原样放入对应的那一天
func LoadClasses(w Week, classes []ClassEntry) (Week, error) {
	blocks := make([]TimeBlock, 0, len(classes))
	for _, c := range classes {
		start, err := ToMinutes(c.StartTime)
		if err != nil {
			return w, err
		}
		end, err := ToMinutes(c.EndTime)
		if err != nil {
			return w, err
		}
		blocks = append(blocks, TimeBlock{
			Day:       c.Day,
			StartTime: FormatClock(start),
			EndTime:   FormatClock(end),
			Kind:      KindClass,
			Subtype:   c.Type,
			Title:     c.Subject,
			ColorTag:  ClassColor(c.Type),
			Location:  c.Room,
			Professor: c.Professor,
			Frequency: c.Frequency,
		})
	}
	return w.With(blocks...), nil
}

// AddCommute 步骤 2：有课的日子在第一节课前、最后一节课后各加一段通勤。
// 去程提前 commute+15 分钟出发，回程从最后一节课结束开始；两端都不跨越当天边界。
func AddCommute(w Week, commuteMinutes int) Week {
	if commuteMinutes <= 0 {
		return w
	}
	var blocks []TimeBlock
	for _, d := range WeekDays {
		first, last := -1, -1
		for _, b := range w.days[d] {
			if b.Kind != KindClass {
				continue
			}
			if first < 0 || b.StartMinute() < first {
				first = b.StartMinute()
			}
			if b.EndMinute() > last {
				last = b.EndMinute()
			}
		}
		if first < 0 {
			continue
		}
		departure := max(first-(commuteMinutes+commuteBufferMinutes), 0)
		arrival := min(last+commuteMinutes, lastMinute)
		blocks = append(blocks,
			TimeBlock{
				Day:       d,
				StartTime: FormatClock(departure),
				EndTime:   FormatClock(first),
				Kind:      KindCommute,
				Title:     "Commute to University",
				ColorTag:  colorCommute,
			},
			TimeBlock{
				Day:       d,
				StartTime: FormatClock(last),
				EndTime:   FormatClock(arrival),
				Kind:      KindCommute,
				Title:     "Commute from University",
				ColorTag:  colorCommute,
			},
		)
	}
	return w.With(blocks...)
}

// AddMeals 步骤 3：七天都加入三餐（与是否有课无关）
func AddMeals(w Week, meals Meals) (Week, error) {
	named := []struct {
		title string
		meal  Meal
	}{
		{"Breakfast", meals.Breakfast},
		{"Lunch", meals.Lunch},
		{"Dinner", meals.Dinner},
	}
	var blocks []TimeBlock
	for _, d := range WeekDays {
		for _, n := range named {
			start, err := ToMinutes(n.meal.Time)
			if err != nil {
				return w, err
			}
			end := min(start+n.meal.DurationMinutes, lastMinute)
			blocks = append(blocks, TimeBlock{
				Day:       d,
				StartTime: FormatClock(start),
				EndTime:   FormatClock(end),
				Kind:      KindMeal,
				Title:     n.title,
				ColorTag:  colorMeal,
			})
		}
	}
	return w.With(blocks...), nil
}

// AddSleep 步骤 4：跨午夜的睡眠拆成同一天内的两段 [bedtime,23:59] 与 [00:00,wakeTime]；
// 入睡时间早于起床时间（如 01:00-08:00）时只放一段。
func AddSleep(w Week, sleep Sleep) (Week, error) {
	bed, err := ToMinutes(sleep.Bedtime)
	if err != nil {
		return w, err
	}
	wake, err := ToMinutes(sleep.WakeTime)
	if err != nil {
		return w, err
	}
	if bed == wake {
		return w, nil
	}

	type span struct{ start, end int }
	var spans []span
	if bed > wake {
		if bed < lastMinute {
			spans = append(spans, span{bed, lastMinute})
		}
		if wake > 0 {
			spans = append(spans, span{0, wake})
		}
	} else {
		spans = append(spans, span{bed, wake})
	}

	var blocks []TimeBlock
	for _, d := range WeekDays {
		for _, s := range spans {
			blocks = append(blocks, TimeBlock{
				Day:       d,
				StartTime: FormatClock(s.start),
				EndTime:   FormatClock(s.end),
				Kind:      KindSleep,
				Title:     "Sleep",
				ColorTag:  colorSleep,
			})
		}
	}
	return w.With(blocks...), nil
}

// DetectConflicts 找出固定块之间的重叠（两段睡眠之间除外），按星期与放置顺序输出
func DetectConflicts(w Week) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, d := range WeekDays {
		list := w.days[d]
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if a.Kind == KindSleep && b.Kind == KindSleep {
					continue
				}
				if !overlaps(a.StartMinute(), a.EndMinute(), b.StartMinute(), b.EndMinute()) {
					continue
				}
				conflicts = append(conflicts, Conflict{
					Day:    d,
					First:  a.Title,
					Second: b.Title,
					Start:  FormatClock(max(a.StartMinute(), b.StartMinute())),
					End:    FormatClock(min(a.EndMinute(), b.EndMinute())),
				})
			}
		}
	}
	return conflicts
}
