package planner

import "sort"

// Week 排布过程中的中间状态。每个步骤接收当前 Week 并返回新的 Week，
// 不会修改传入的值，便于逐步组合与单独测试。
type Week struct {
	days map[Day][]TimeBlock
}

// NewWeek 创建七天均为空的 Week
func NewWeek() Week {
	days := make(map[Day][]TimeBlock, len(WeekDays))
	for _, d := range WeekDays {
		days[d] = []TimeBlock{}
	}
	return Week{days: days}
}

// Blocks 返回某天的时间块副本
func (w Week) Blocks(d Day) []TimeBlock {
	out := make([]TimeBlock, len(w.days[d]))
	copy(out, w.days[d])
	return out
}

// With 追加时间块并返回新的 Week；只复制受影响的那几天
func (w Week) With(blocks ...TimeBlock) Week {
	next := make(map[Day][]TimeBlock, len(w.days))
	for d, list := range w.days {
		next[d] = list
	}
	touched := make(map[Day]bool)
	for _, b := range blocks {
		if !touched[b.Day] {
			touched[b.Day] = true
			cp := make([]TimeBlock, len(next[b.Day]), len(next[b.Day])+len(blocks))
			copy(cp, next[b.Day])
			next[b.Day] = cp
		}
		next[b.Day] = append(next[b.Day], b)
	}
	return Week{days: next}
}

// Sorted 按开始时间稳定排序；开始时间相同的块保持追加顺序
func (w Week) Sorted() Week {
	next := make(map[Day][]TimeBlock, len(w.days))
	for d, list := range w.days {
		cp := append([]TimeBlock(nil), list...)
		sort.SliceStable(cp, func(i, j int) bool {
			return cp[i].StartMinute() < cp[j].StartMinute()
		})
		next[d] = cp
	}
	return Week{days: next}
}

// Count 统计某类时间块在整周的数量
func (w Week) Count(kind BlockKind) int {
	n := 0
	for _, list := range w.days {
		for _, b := range list {
			if b.Kind == kind {
				n++
			}
		}
	}
	return n
}

// ── 可用性判断 ──

// overlaps 半开区间 [s1,e1) 与 [s2,e2) 是否重叠
func overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// IsSlotAvailable 候选区间与当天已放置的任何块（不区分类型，睡眠块同样占位）都不重叠时可用
func IsSlotAvailable(w Week, day Day, start, end int) bool {
	for _, b := range w.days[day] {
		if overlaps(start, end, b.StartMinute(), b.EndMinute()) {
			return false
		}
	}
	return true
}
