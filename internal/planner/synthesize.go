package planner

// Input 一次排布所需的全部输入
type Input struct {
	Classes        []ClassEntry
	Activities     []Activity
	Study          StudyPreferences
	LifeEssentials LifeEssentials
}

// Validate 排布前的完整校验
func (in Input) Validate() error {
	if err := ValidateClasses(in.Classes); err != nil {
		return err
	}
	if err := ValidateActivities(in.Activities); err != nil {
		return err
	}
	if err := ValidateStudyPreferences(in.Study); err != nil {
		return err
	}
	return ValidateLifeEssentials(in.LifeEssentials)
}

// Synthesize 把课表、活动、学习偏好与生活必需项合成为一周日程。
//
// 步骤依次为：课程 → 通勤 → 三餐 → 睡眠 → 学习 → 活动 → 每天按开始时间排序 → 统计。
// 每一步都以上一步的 Week 为输入并返回新的 Week；相同输入得到完全相同的输出。
func Synthesize(classes []ClassEntry, activities []Activity, study StudyPreferences, essentials LifeEssentials) (*WeekSchedule, error) {
	return Run(Input{
		Classes:        classes,
		Activities:     activities,
		Study:          study,
		LifeEssentials: essentials,
	})
}

// Run 同 Synthesize，接收打包后的输入
func Run(in Input) (*WeekSchedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	w, err := LoadClasses(NewWeek(), in.Classes)
	if err != nil {
		return nil, err
	}
	w = AddCommute(w, in.LifeEssentials.CommuteMinutesOneWay)
	if w, err = AddMeals(w, in.LifeEssentials.Meals); err != nil {
		return nil, err
	}
	if w, err = AddSleep(w, in.LifeEssentials.Sleep); err != nil {
		return nil, err
	}
	conflicts := DetectConflicts(w)

	w, droppedStudy := PlaceStudySessions(w, Subjects(in.Classes), in.Study)
	w, droppedActivities := PlaceActivities(w, in.Activities)

	w = w.Sorted()
	dropped := make([]DroppedItem, 0, len(droppedStudy)+len(droppedActivities))
	dropped = append(dropped, droppedStudy...)
	dropped = append(dropped, droppedActivities...)

	days := make(map[Day][]TimeBlock, len(WeekDays))
	for _, d := range WeekDays {
		days[d] = w.Blocks(d)
	}
	return &WeekSchedule{
		Days:      days,
		Stats:     ComputeStats(w),
		Dropped:   dropped,
		Conflicts: conflicts,
	}, nil
}
