package planner

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation 所有 ValidationError 均可用 errors.Is 匹配
var ErrValidation = errors.New("输入校验失败")

// ValidationError 外部输入不合法；排布不会开始
type ValidationError struct {
	Section string // classes / activities / studyPreferences / lifeEssentials
	Index   int    // 条目下标，-1 表示整体
	Field   string
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Section)
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structError 把 validator 的第一条错误转换为 ValidationError
func structError(section string, index int, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Section: section, Index: index, Reason: "结构无效", Err: err}
	}
	fe := fieldErrs[0]
	reason := "不满足 " + fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "缺少必填字段"
	case "gt":
		reason = "必须大于 " + fe.Param()
	case "gte":
		reason = "不能小于 " + fe.Param()
	case "lte":
		reason = "不能大于 " + fe.Param()
	}
	return &ValidationError{Section: section, Index: index, Field: fe.Field(), Reason: reason}
}

// ValidateClasses 课表必须非空，每条都有星期、起止时间与课程名，且开始早于结束
func ValidateClasses(classes []ClassEntry) error {
	if len(classes) == 0 {
		return &ValidationError{Section: "classes", Index: -1, Reason: "课表为空"}
	}
	for i, c := range classes {
		if err := structError("classes", i, c); err != nil {
			return err
		}
		if !c.Day.Valid() {
			return &ValidationError{Section: "classes", Index: i, Field: "day", Reason: fmt.Sprintf("未知星期 %q", c.Day)}
		}
		start, err := ToMinutes(c.StartTime)
		if err != nil {
			return &ValidationError{Section: "classes", Index: i, Field: "startTime", Reason: "时间无效", Err: err}
		}
		end, err := ToMinutes(c.EndTime)
		if err != nil {
			return &ValidationError{Section: "classes", Index: i, Field: "endTime", Reason: "时间无效", Err: err}
		}
		if start >= end {
			return &ValidationError{Section: "classes", Index: i, Field: "endTime", Reason: "结束时间必须晚于开始时间"}
		}
	}
	return nil
}

// ValidateActivities 活动名非空，时长为正
func ValidateActivities(activities []Activity) error {
	for i, a := range activities {
		if err := structError("activities", i, a); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStudyPreferences 0 表示使用默认值，负数不允许
func ValidateStudyPreferences(p StudyPreferences) error {
	return structError("studyPreferences", -1, p)
}

// ValidateLifeEssentials 作息与三餐时间必须是合法的 HH:MM，三餐时长必须为正
func ValidateLifeEssentials(le LifeEssentials) error {
	if err := structError("lifeEssentials", -1, le); err != nil {
		return err
	}
	clocks := []struct {
		field string
		value string
	}{
		{"sleep.bedtime", le.Sleep.Bedtime},
		{"sleep.wakeTime", le.Sleep.WakeTime},
		{"meals.breakfast.time", le.Meals.Breakfast.Time},
		{"meals.lunch.time", le.Meals.Lunch.Time},
		{"meals.dinner.time", le.Meals.Dinner.Time},
	}
	for _, c := range clocks {
		if _, err := ToMinutes(c.value); err != nil {
			return &ValidationError{Section: "lifeEssentials", Index: -1, Field: c.field, Reason: "时间无效", Err: err}
		}
	}
	durations := []struct {
		field string
		value int
	}{
		{"meals.breakfast.duration", le.Meals.Breakfast.DurationMinutes},
		{"meals.lunch.duration", le.Meals.Lunch.DurationMinutes},
		{"meals.dinner.duration", le.Meals.Dinner.DurationMinutes},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return &ValidationError{Section: "lifeEssentials", Index: -1, Field: d.field, Reason: "必须大于 0"}
		}
	}
	return nil
}
