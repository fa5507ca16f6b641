package planner

import "strings"

// Day 星期（JSON 中使用英文全称）
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// WeekDays 一周七天（周一起始），决定遍历顺序
var WeekDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays 工作日，学习时段只在这五天内搜索
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Index 返回 0(周一) … 6(周日)，非法值返回 -1
func (d Day) Index() int {
	for i, wd := range WeekDays {
		if wd == d {
			return i
		}
	}
	return -1
}

// Valid 是否为合法星期
func (d Day) Valid() bool { return d.Index() >= 0 }

// romanianDays 课表识别服务可能原样返回罗马尼亚语星期名
var romanianDays = map[string]Day{
	"luni":     Monday,
	"marti":    Tuesday,
	"marți":    Tuesday,
	"miercuri": Wednesday,
	"joi":      Thursday,
	"vineri":   Friday,
	"sambata":  Saturday,
	"sâmbătă":  Saturday,
	"duminica": Sunday,
	"duminică": Sunday,
}

// ParseDay 宽松解析星期：接受英文全称、三字母缩写（大小写不敏感）、罗马尼亚语星期名以及 1-7 的 ISO 序号
func ParseDay(s string) (Day, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", false
	}
	if d, ok := romanianDays[v]; ok {
		return d, true
	}
	for i, d := range WeekDays {
		name := strings.ToLower(string(d))
		if v == name || v == name[:3] || v == string(rune('1'+i)) {
			return d, true
		}
	}
	return "", false
}

// ── 课程 ──

// ClassType 课程类型
type ClassType string

const (
	ClassLecture         ClassType = "Lecture"
	ClassSeminar         ClassType = "Seminar"
	ClassLab             ClassType = "Lab"
	ClassOptionalSeminar ClassType = "OptionalSeminar"
)

// ParseClassType 兼容提取服务返回的原始标签（Curs / Laborator / Seminar Facultativ）
func ParseClassType(s string) ClassType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lecture", "curs", "course":
		return ClassLecture
	case "seminar":
		return ClassSeminar
	case "lab", "laborator", "laboratory":
		return ClassLab
	case "optionalseminar", "optional seminar", "seminar facultativ":
		return ClassOptionalSeminar
	}
	return ClassType(strings.TrimSpace(s))
}

// ClassFrequency 单双周标记，仅作元数据保留，不参与排布
type ClassFrequency string

const (
	FrequencyWeekly    ClassFrequency = "Weekly"
	FrequencyEvenWeeks ClassFrequency = "EvenWeeksOnly"
	FrequencyOddWeeks  ClassFrequency = "OddWeeksOnly"
)

// ParseClassFrequency 空串视为每周
func ParseClassFrequency(s string) ClassFrequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "weekly", "all":
		return FrequencyWeekly
	case "even", "evenweeksonly", "even weeks":
		return FrequencyEvenWeeks
	case "odd", "oddweeksonly", "odd weeks":
		return FrequencyOddWeeks
	}
	return ClassFrequency(strings.TrimSpace(s))
}

// ClassEntry 课表中的一节课（外部提供，固定不可移动）
type ClassEntry struct {
	Day       Day            `json:"day" validate:"required"`
	StartTime string         `json:"startTime" validate:"required"`
	EndTime   string         `json:"endTime" validate:"required"`
	Subject   string         `json:"subject" validate:"required"`
	Type      ClassType      `json:"type,omitempty"`
	Professor string         `json:"professor,omitempty"`
	Room      string         `json:"room,omitempty"`
	Frequency ClassFrequency `json:"frequency,omitempty"`
}

// ── 活动与偏好 ──

// ActivityFrequency 活动频率（取值与前端选项一致）
type ActivityFrequency string

const (
	FrequencyDaily        ActivityFrequency = "Daily"
	FrequencyFiveToSix    ActivityFrequency = "5-6x/week"
	FrequencyThreeToFive  ActivityFrequency = "3-5x/week"
	FrequencyOneToTwo     ActivityFrequency = "1-2x/week"
	FrequencyWeekendsOnly ActivityFrequency = "Weekends"
)

// Priority 活动优先级（透传，不参与排布决策）
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Activity 用户自定义的弹性活动
type Activity struct {
	Name               string            `json:"name" validate:"required"`
	Icon               string            `json:"icon,omitempty"`
	DurationMinutes    int               `json:"duration" validate:"gt=0,lte=1439"`
	Frequency          ActivityFrequency `json:"frequency"`
	PreferredTimeSlots []Bucket          `json:"preferredTimes"`
	Priority           Priority          `json:"priority,omitempty"`
	Flexible           bool              `json:"flexible"`
}

// StudyPreferences 学习偏好；休息相关字段仅保存，不参与排布
type StudyPreferences struct {
	SessionDurationMinutes int      `json:"sessionDuration" validate:"gte=0,lte=1439"`
	HoursPerCoursePerWeek  int      `json:"hoursPerCoursePerWeek" validate:"gte=0,lte=168"`
	PreferredTimeSlots     []Bucket `json:"preferredTimes"`
	ShortBreakMinutes      int      `json:"shortBreak,omitempty"`
	LongBreakMinutes       int      `json:"longBreak,omitempty"`
	BreakFrequencyMinutes  int      `json:"breakFrequency,omitempty"`
}

const (
	defaultSessionMinutes = 90
	defaultHoursPerCourse = 5
)

// DefaultStudyPreferences 与引导页初始值一致（未选择任何偏好时段）
func DefaultStudyPreferences() StudyPreferences {
	return StudyPreferences{
		SessionDurationMinutes: defaultSessionMinutes,
		HoursPerCoursePerWeek:  defaultHoursPerCourse,
		PreferredTimeSlots:     []Bucket{},
		ShortBreakMinutes:      10,
		LongBreakMinutes:       30,
		BreakFrequencyMinutes:  90,
	}
}

// Meal 一顿饭的开始时间与时长
type Meal struct {
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration"`
}

// Meals 三餐
type Meals struct {
	Breakfast Meal `json:"breakfast"`
	Lunch     Meal `json:"lunch"`
	Dinner    Meal `json:"dinner"`
}

// Sleep 作息；Bedtime 晚于 WakeTime 时表示跨午夜
type Sleep struct {
	Bedtime  string `json:"bedtime"`
	WakeTime string `json:"wakeTime"`
}

// LifeEssentials 生活必需项
type LifeEssentials struct {
	Sleep                Sleep `json:"sleep"`
	Meals                Meals `json:"meals"`
	CommuteMinutesOneWay int   `json:"commute" validate:"gte=0,lte=720"`
}

// DefaultLifeEssentials 默认作息
func DefaultLifeEssentials() LifeEssentials {
	return LifeEssentials{
		Sleep: Sleep{Bedtime: "23:00", WakeTime: "07:00"},
		Meals: Meals{
			Breakfast: Meal{Time: "07:30", DurationMinutes: 30},
			Lunch:     Meal{Time: "13:00", DurationMinutes: 45},
			Dinner:    Meal{Time: "19:00", DurationMinutes: 45},
		},
		CommuteMinutesOneWay: 45,
	}
}

// ── 输出 ──

// BlockKind 时间块类型
type BlockKind string

const (
	KindClass    BlockKind = "class"
	KindCommute  BlockKind = "commute"
	KindMeal     BlockKind = "meal"
	KindSleep    BlockKind = "sleep"
	KindStudy    BlockKind = "study"
	KindActivity BlockKind = "activity"
)

// TimeBlock 排布结果中的一个时间块（值对象，生成后不再修改）
type TimeBlock struct {
	Day       Day            `json:"day"`
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Kind      BlockKind      `json:"type"`
	Subtype   ClassType      `json:"subtype,omitempty"`
	Title     string         `json:"title"`
	ColorTag  string         `json:"color"`
	Location  string         `json:"location,omitempty"`
	Professor string         `json:"professor,omitempty"`
	Frequency ClassFrequency `json:"frequency,omitempty"`
	Priority  Priority       `json:"priority,omitempty"`
}

// StartMinute 开始时间（分钟）；排布产出的块时间均已校验，解析失败时返回 0
func (b TimeBlock) StartMinute() int {
	m, _ := ToMinutes(b.StartTime)
	return m
}

// EndMinute 结束时间（分钟）
func (b TimeBlock) EndMinute() int {
	m, _ := ToMinutes(b.EndTime)
	return m
}

// Stats 周统计
type Stats struct {
	TotalClasses       int `json:"totalClasses"`
	TotalStudySessions int `json:"totalStudySessions"`
	TotalActivities    int `json:"totalActivities"`
	TotalFreeTimeHours int `json:"totalFreeTime"`
}

// DroppedItem 找不到空位而被舍弃的学习时段或活动
type DroppedItem struct {
	Kind            BlockKind `json:"type"`
	Title           string    `json:"title"`
	Day             Day       `json:"day,omitempty"`
	DurationMinutes int       `json:"duration"`
	Reason          string    `json:"reason"`
}

// Conflict 固定块之间的重叠（例如早餐与早间通勤）
type Conflict struct {
	Day    Day    `json:"day"`
	First  string `json:"first"`
	Second string `json:"second"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// WeekSchedule 一次排布的完整结果
type WeekSchedule struct {
	Days      map[Day][]TimeBlock `json:"schedule"`
	Stats     Stats               `json:"stats"`
	Dropped   []DroppedItem       `json:"dropped"`
	Conflicts []Conflict          `json:"conflicts"`
}

// Blocks 返回某天的时间块（已按开始时间排序）
func (w *WeekSchedule) Blocks(d Day) []TimeBlock {
	if w == nil {
		return nil
	}
	return w.Days[d]
}
