package planner

import (
	"math"
	"sort"
)

// 计入空闲时间的最小间隔（分钟），以及统计起点 06:00
const (
	freeGapThreshold = 30
	freeDayStart     = 6 * 60
)

// ComputeStats 汇总整周的课程、学习、活动数量与估算空闲时间。
//
// 空闲时间：每天取非睡眠且 06:00 之后开始的块，按开始时间排序，
// 相邻块之间超过 30 分钟的间隔累加；整周分钟数最后统一四舍五入为小时。
func ComputeStats(w Week) Stats {
	stats := Stats{
		TotalClasses:       w.Count(KindClass),
		TotalStudySessions: w.Count(KindStudy),
		TotalActivities:    w.Count(KindActivity),
	}
	freeMinutes := 0
	for _, d := range WeekDays {
		freeMinutes += dayFreeMinutes(w.days[d])
	}
	stats.TotalFreeTimeHours = int(math.Round(float64(freeMinutes) / 60))
	return stats
}

func dayFreeMinutes(blocks []TimeBlock) int {
	awake := make([]TimeBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind != KindSleep && b.StartMinute() >= freeDayStart {
			awake = append(awake, b)
		}
	}
	sort.SliceStable(awake, func(i, j int) bool {
		return awake[i].StartMinute() < awake[j].StartMinute()
	})
	total := 0
	for i := 0; i+1 < len(awake); i++ {
		gap := awake[i+1].StartMinute() - awake[i].EndMinute()
		if gap > freeGapThreshold {
			total += gap
		}
	}
	return total
}
