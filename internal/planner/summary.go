package planner

import "math"

// TimetableSummary 课表概览：各类型数量、有课的日子与每天课时
type TimetableSummary struct {
	TotalClasses int               `json:"totalClasses"`
	ByType       map[ClassType]int `json:"byType"`
	Days         []Day             `json:"days"`
	HoursPerDay  map[Day]float64   `json:"hoursPerDay"`
	Subjects     []string          `json:"subjects"`
}

// SummarizeClasses 统计课表；时间无法解析的条目不计入课时
func SummarizeClasses(classes []ClassEntry) TimetableSummary {
	s := TimetableSummary{
		TotalClasses: len(classes),
		ByType:       make(map[ClassType]int),
		Days:         make([]Day, 0),
		HoursPerDay:  make(map[Day]float64),
		Subjects:     Subjects(classes),
	}
	if s.Subjects == nil {
		s.Subjects = []string{}
	}
	minutes := make(map[Day]int)
	for _, c := range classes {
		t := c.Type
		if t == "" {
			t = ClassLecture
		}
		s.ByType[t]++

		start, err1 := ToMinutes(c.StartTime)
		end, err2 := ToMinutes(c.EndTime)
		if err1 == nil && err2 == nil && end > start {
			minutes[c.Day] += end - start
		}
		if _, ok := minutes[c.Day]; !ok {
			minutes[c.Day] = 0
		}
	}
	for _, d := range WeekDays {
		if m, ok := minutes[d]; ok {
			s.Days = append(s.Days, d)
			s.HoursPerDay[d] = math.Round(float64(m)/60*10) / 10
		}
	}
	return s
}

// SleepQuality 睡眠时长评价
type SleepQuality string

const (
	SleepOptimal   SleepQuality = "Optimal"
	SleepGood      SleepQuality = "Good"
	SleepTooLittle SleepQuality = "Too little"
	SleepTooMuch   SleepQuality = "Too much"
)

// SleepReport 作息对应的睡眠时长
type SleepReport struct {
	Hours        int          `json:"hours"`
	Minutes      int          `json:"minutes"`
	TotalMinutes int          `json:"totalMinutes"`
	Quality      SleepQuality `json:"quality"`
}

// SummarizeSleep 计算入睡到起床的时长（跨午夜时加一天），并按 7-9 小时为最佳评价
func SummarizeSleep(sleep Sleep) (SleepReport, error) {
	bed, err := ToMinutes(sleep.Bedtime)
	if err != nil {
		return SleepReport{}, err
	}
	wake, err := ToMinutes(sleep.WakeTime)
	if err != nil {
		return SleepReport{}, err
	}
	total := wake - bed
	if total < 0 {
		total += minutesPerDay
	}
	r := SleepReport{Hours: total / 60, Minutes: total % 60, TotalMinutes: total}
	hours := float64(total) / 60
	switch {
	case hours >= 7 && hours <= 9:
		r.Quality = SleepOptimal
	case hours >= 6 && hours < 7:
		r.Quality = SleepGood
	case hours < 6:
		r.Quality = SleepTooLittle
	default:
		r.Quality = SleepTooMuch
	}
	return r, nil
}
