package planner

import (
	"sort"
	"strings"
)

// Bucket 定性时间段（JSON 中使用前端展示的标签）
type Bucket string

const (
	BucketMorning     Bucket = "Morning (6-9)"
	BucketLateMorning Bucket = "Late Morning (9-12)"
	BucketAfternoon   Bucket = "Afternoon (12-17)"
	BucketEvening     Bucket = "Evening (17-20)"
	BucketNight       Bucket = "Night (20-23)"
)

// bucketTable 时间段 → 候选整点，学习与活动共用这一张表
var bucketTable = []struct {
	bucket Bucket
	key    string
	hours  []int
}{
	{BucketMorning, "morning", []int{6, 7, 8}},
	{BucketLateMorning, "late_morning", []int{9, 10, 11}},
	{BucketAfternoon, "afternoon", []int{12, 13, 14, 15, 16}},
	{BucketEvening, "evening", []int{17, 18, 19}},
	{BucketNight, "night", []int{20, 21, 22}},
}

// Buckets 全部时间段，按一天中的先后排列
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(bucketTable))
	for _, b := range bucketTable {
		out = append(out, b.bucket)
	}
	return out
}

// ParseBucket 接受展示标签或简写 key（morning / late_morning / afternoon / evening / night）
func ParseBucket(s string) (Bucket, bool) {
	v := strings.TrimSpace(s)
	lower := strings.ToLower(v)
	for _, b := range bucketTable {
		if v == string(b.bucket) || lower == b.key || lower == strings.ToLower(string(b.bucket)) {
			return b.bucket, true
		}
	}
	return "", false
}

// Hours 某个时间段对应的整点
func (b Bucket) Hours() []int {
	for _, row := range bucketTable {
		if row.bucket == b {
			return append([]int(nil), row.hours...)
		}
	}
	return nil
}

// ResolvePreferredHours 合并所选时间段的整点，去重后升序。未选任何时间段时返回空切片。
func ResolvePreferredHours(selected []Bucket) []int {
	seen := make(map[int]bool)
	hours := make([]int, 0)
	for _, b := range selected {
		for _, h := range b.Hours() {
			if !seen[h] {
				seen[h] = true
				hours = append(hours, h)
			}
		}
	}
	sort.Ints(hours)
	return hours
}

// TargetOccurrences 频率 → 每周目标次数；未知频率按 3 次处理
func TargetOccurrences(freq ActivityFrequency) int {
	switch freq {
	case FrequencyDaily:
		return 7
	case FrequencyFiveToSix:
		return 5
	case FrequencyThreeToFive:
		return 4
	case FrequencyOneToTwo, FrequencyWeekendsOnly:
		return 2
	}
	return 3
}

// SelectDays 选出活动安排在哪几天。
//
// 周末活动固定为周六、周日；其余按 floor(7/n) 的步长从周一开始取，
// 7 不能被 n 整除时可能取到的天数少于 n（例如 n=4 步长为 1，取周一至周四）。
func SelectDays(freq ActivityFrequency) []Day {
	if freq == FrequencyWeekendsOnly {
		return []Day{Saturday, Sunday}
	}
	n := TargetOccurrences(freq)
	if n <= 0 {
		return nil
	}
	step := len(WeekDays) / n
	if step == 0 {
		step = 1
	}
	days := make([]Day, 0, n)
	for i := 0; i < n && i*step < len(WeekDays); i++ {
		days = append(days, WeekDays[i*step])
	}
	return days
}

// UnmarshalText 解码时把简写 key 规范为展示标签；无法识别的值原样保留，解析不出任何整点
func (b *Bucket) UnmarshalText(text []byte) error {
	if parsed, ok := ParseBucket(string(text)); ok {
		*b = parsed
		return nil
	}
	*b = Bucket(text)
	return nil
}
