package planner

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// 弹性活动兜底搜索的整点范围 [8, 21]
const (
	anyHourFrom = 8
	anyHourTo   = 21
)

// studyTitleMaxRunes 学习块标题中课程名最多保留的字符数
const studyTitleMaxRunes = 30

// Slot 一个候选区间（分钟）
type Slot struct {
	Start int
	End   int
}

// candidate 从整点 hour 开始、持续 duration 分钟的候选区间。
// 结束时间越过当天 23:59 的候选直接放弃，块不跨越午夜。
func candidate(hour, duration int) (Slot, bool) {
	if duration <= 0 {
		return Slot{}, false
	}
	start := hour * 60
	end := start + duration
	if end > lastMinute {
		return Slot{}, false
	}
	return Slot{Start: start, End: end}, true
}

// FindSlot 按 hours 给定的顺序逐个尝试整点，返回第一个不冲突的区间
func FindSlot(w Week, day Day, duration int, hours []int) (Slot, bool) {
	for _, h := range hours {
		s, ok := candidate(h, duration)
		if !ok {
			continue
		}
		if IsSlotAvailable(w, day, s.Start, s.End) {
			return s, true
		}
	}
	return Slot{}, false
}

// FindSlotAnyHour 弹性活动的兜底：8 点到 21 点逐个整点尝试
func FindSlotAnyHour(w Week, day Day, duration int) (Slot, bool) {
	hours := make([]int, 0, anyHourTo-anyHourFrom+1)
	for h := anyHourFrom; h <= anyHourTo; h++ {
		hours = append(hours, h)
	}
	return FindSlot(w, day, duration, hours)
}

// SessionsNeeded 每门课每周需要的学习次数 ceil(hours*60/duration)
func SessionsNeeded(hoursPerWeek, sessionMinutes int) int {
	if hoursPerWeek <= 0 || sessionMinutes <= 0 {
		return 0
	}
	return int(math.Ceil(float64(hoursPerWeek*60) / float64(sessionMinutes)))
}

// Subjects 课程名去重，保持首次出现的顺序
func Subjects(classes []ClassEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range classes {
		if !seen[c.Subject] {
			seen[c.Subject] = true
			out = append(out, c.Subject)
		}
	}
	return out
}

func studyTitle(subject string) string {
	if utf8.RuneCountInString(subject) <= studyTitleMaxRunes {
		return "Study: " + subject
	}
	runes := []rune(subject)
	return "Study: " + string(runes[:studyTitleMaxRunes]) + "..."
}

// PlaceStudySessions 步骤 5：为每门课安排学习时段。
// 每一次都按 周一→周五（外层）× 偏好整点（内层）搜索第一个空位，放下后再找下一次；
// 学习时段不使用兜底搜索，找不到时记入 dropped。
func PlaceStudySessions(w Week, subjects []string, prefs StudyPreferences) (Week, []DroppedItem) {
	duration := prefs.SessionDurationMinutes
	if duration == 0 {
		duration = defaultSessionMinutes
	}
	hoursPerCourse := prefs.HoursPerCoursePerWeek
	if hoursPerCourse == 0 {
		hoursPerCourse = defaultHoursPerCourse
	}
	hours := ResolvePreferredHours(prefs.PreferredTimeSlots)

	var dropped []DroppedItem
	for _, subject := range subjects {
		title := studyTitle(subject)
		needed := SessionsNeeded(hoursPerCourse, duration)
		for i := 0; i < needed; i++ {
			block, ok := findStudySlot(w, duration, hours)
			if !ok {
				reason := "工作日偏好时段内没有空位"
				if len(hours) == 0 {
					reason = "未选择偏好学习时段"
				}
				dropped = append(dropped, DroppedItem{
					Kind:            KindStudy,
					Title:           title,
					DurationMinutes: duration,
					Reason:          reason,
				})
				continue
			}
			block.Title = title
			w = w.With(block)
		}
	}
	return w, dropped
}

func findStudySlot(w Week, duration int, hours []int) (TimeBlock, bool) {
	for _, d := range Weekdays {
		if s, ok := FindSlot(w, d, duration, hours); ok {
			return TimeBlock{
				Day:       d,
				StartTime: FormatClock(s.Start),
				EndTime:   FormatClock(s.End),
				Kind:      KindStudy,
				ColorTag:  colorStudy,
			}, true
		}
	}
	return TimeBlock{}, false
}

// PlaceActivities 步骤 6：按频率选出的每一天先在偏好整点里找，
// 弹性活动再退到 8-21 点兜底，仍找不到则记入 dropped。
func PlaceActivities(w Week, activities []Activity) (Week, []DroppedItem) {
	var dropped []DroppedItem
	for _, a := range activities {
		title := a.Name
		if a.Icon != "" {
			title = a.Icon + " " + a.Name
		}
		hours := ResolvePreferredHours(a.PreferredTimeSlots)
		for _, d := range SelectDays(a.Frequency) {
			s, ok := FindSlot(w, d, a.DurationMinutes, hours)
			if !ok && a.Flexible {
				s, ok = FindSlotAnyHour(w, d, a.DurationMinutes)
			}
			if !ok {
				dropped = append(dropped, DroppedItem{
					Kind:            KindActivity,
					Title:           title,
					Day:             d,
					DurationMinutes: a.DurationMinutes,
					Reason:          activityDropReason(a, hours),
				})
				continue
			}
			w = w.With(TimeBlock{
				Day:       d,
				StartTime: FormatClock(s.Start),
				EndTime:   FormatClock(s.End),
				Kind:      KindActivity,
				Title:     title,
				ColorTag:  colorActivity,
				Priority:  a.Priority,
			})
		}
	}
	return w, dropped
}

func activityDropReason(a Activity, hours []int) string {
	switch {
	case a.Flexible:
		return "8-21 点之间没有空位"
	case len(hours) == 0:
		return "未选择偏好时段且不允许弹性安排"
	default:
		return fmt.Sprintf("偏好时段 %s 起均无空位", hourClock(hours[0]))
	}
}
