package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// lastMinute 当天可表示的最后一分钟（23:59）
const lastMinute = minutesPerDay - 1

// ErrInvalidClock 所有 FormatError 均可用 errors.Is 匹配
var ErrInvalidClock = errors.New("时间格式无效")

// FormatError 非法的 HH:MM 时间字符串
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("时间格式无效 %q: %s", e.Value, e.Reason)
}

// Is 使 errors.Is(err, ErrInvalidClock) 成立
func (e *FormatError) Is(target error) bool { return target == ErrInvalidClock }

// ToMinutes 将 HH:MM 转为当天的分钟数
func ToMinutes(clock string) (int, error) {
	h, m, ok := strings.Cut(clock, ":")
	if !ok || strings.Contains(m, ":") {
		return 0, &FormatError{Value: clock, Reason: "应为 HH:MM"}
	}
	if len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, &FormatError{Value: clock, Reason: "应为 HH:MM"}
	}
	hours, err := strconv.Atoi(h)
	if err != nil || h[0] == '-' || h[0] == '+' {
		return 0, &FormatError{Value: clock, Reason: "小时不是整数"}
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || m[0] == '-' || m[0] == '+' {
		return 0, &FormatError{Value: clock, Reason: "分钟不是整数"}
	}
	if hours < 0 || hours > 23 {
		return 0, &FormatError{Value: clock, Reason: "小时超出 0-23"}
	}
	if minutes < 0 || minutes > 59 {
		return 0, &FormatError{Value: clock, Reason: "分钟超出 0-59"}
	}
	return hours*60 + minutes, nil
}

// FormatClock 将分钟数格式化为两位补零的 HH:MM，超出一天的部分按 24 小时取模
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes 在 clock 上加 delta 分钟（可为负），按 24 小时回绕。
// 跨天不会被报告，调用方需要自行判断。
func AddMinutes(clock string, delta int) (string, error) {
	base, err := ToMinutes(clock)
	if err != nil {
		return "", err
	}
	return FormatClock(base + delta), nil
}

// SubtractMinutes 减去 delta 分钟；先补一天再取模，中间值不会为负
func SubtractMinutes(clock string, delta int) (string, error) {
	base, err := ToMinutes(clock)
	if err != nil {
		return "", err
	}
	total := base - delta%minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return FormatClock(total), nil
}

// NormalizeClock 规范化外部输入的时间："9" → "09:00"，"8:05" → "08:05"
func NormalizeClock(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &FormatError{Value: raw, Reason: "为空"}
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok || m == "" {
		m = "00"
	}
	if len(h) == 1 {
		h = "0" + h
	}
	mins, err := ToMinutes(h + ":" + m)
	if err != nil {
		return "", &FormatError{Value: raw, Reason: "无法规范化为 HH:MM"}
	}
	return FormatClock(mins), nil
}

// hourClock 整点时间
func hourClock(hour int) string {
	return FormatClock(hour * 60)
}
