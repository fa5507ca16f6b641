package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/goccy/go-json"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-planner/internal/dto"
	"campus-planner/internal/planner"
)

// ── 导出模块业务错误 ──

var (
	ErrExportUnsupportedFormat = errors.New("不支持的导出格式")
	ErrExportBadWeekStart      = errors.New("week_start 格式应为 YYYY-MM-DD")
	ErrExportGenerateFail      = errors.New("生成导出文件失败")
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
	FormatPDF  = "pdf"

	exportBaseName = "my-schedule"
)

// ExportService 导出业务接口
//
//   - json：与页面导出一致的 my-schedule.json
//   - xlsx：一天一列，块按开始时间排列；第二个 Sheet 为统计与未安排项
//   - ics：每个时间块生成一个每周重复的事件，从 week_start 所在周开始
//   - pdf：按天列出全部时间块的表格
type ExportService interface {
	Export(ctx context.Context, userID string, q *dto.ExportQuery) (*dto.ExportFile, error)
}

type exportService struct {
	planner  PlannerService
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(plannerSvc PlannerService, logger *zap.Logger) ExportService {
	return &exportService{
		planner:  plannerSvc,
		location: time.Local,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, userID string, q *dto.ExportQuery) (*dto.ExportFile, error) {
	format := strings.ToLower(q.Format)
	if format == "" {
		format = FormatJSON
	}

	weekStart, err := s.resolveWeekStart(q.WeekStart)
	if err != nil {
		return nil, err
	}

	resp, err := s.planner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	schedule := resp.WeekSchedule

	var file *dto.ExportFile
	switch format {
	case FormatJSON:
		file, err = exportJSON(schedule)
	case FormatXLSX:
		file, err = exportXLSX(schedule)
	case FormatICS:
		file, err = exportICS(schedule, weekStart, s.now())
	case FormatPDF:
		file, err = exportPDF(schedule, weekStart)
	default:
		return nil, ErrExportUnsupportedFormat
	}
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.String("format", format), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return file, nil
}

// resolveWeekStart 解析 week_start 并归到所在周的周一；为空时取本周周一
func (s *exportService) resolveWeekStart(raw string) (time.Time, error) {
	if raw == "" {
		return mondayOf(s.now().In(s.location)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.location)
	if err != nil {
		return time.Time{}, ErrExportBadWeekStart
	}
	return mondayOf(t), nil
}

// ═══════════════════════════════════════════════════════════
// JSON
// ═══════════════════════════════════════════════════════════

func exportJSON(schedule *planner.WeekSchedule) (*dto.ExportFile, error) {
	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return nil, err
	}
	return &dto.ExportFile{
		FileName:    exportBaseName + ".json",
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// ═══════════════════════════════════════════════════════════
// Excel
// ═══════════════════════════════════════════════════════════

const (
	sheetSchedule = "Schedule"
	sheetSummary  = "Summary"
)

func exportXLSX(schedule *planner.WeekSchedule) (*dto.ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetSchedule)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// 一天一列
	for i, d := range planner.WeekDays {
		col := colName(i)
		f.SetColWidth(sheetSchedule, col, col, 30)
		f.SetCellValue(sheetSchedule, cell(col, 1), string(d))
		f.SetCellStyle(sheetSchedule, cell(col, 1), cell(col, 1), headerStyle)

		for j, b := range schedule.Blocks(d) {
			c := cell(col, j+2)
			f.SetCellValue(sheetSchedule, c, blockLine(b))
			f.SetCellStyle(sheetSchedule, c, c, wrapStyle)
		}
	}

	if err := writeSummarySheet(f, schedule, headerStyle); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return &dto.ExportFile{
		FileName:    exportBaseName + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func writeSummarySheet(f *excelize.File, schedule *planner.WeekSchedule, headerStyle int) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "B", "B", 36)
	f.SetColWidth(sheetSummary, "C", "E", 16)

	stats := []struct {
		label string
		value int
	}{
		{"Classes", schedule.Stats.TotalClasses},
		{"Study sessions", schedule.Stats.TotalStudySessions},
		{"Activities", schedule.Stats.TotalActivities},
		{"Free time (hours)", schedule.Stats.TotalFreeTimeHours},
	}
	f.SetCellValue(sheetSummary, "A1", "Stats")
	f.SetCellStyle(sheetSummary, "A1", "B1", headerStyle)
	f.MergeCell(sheetSummary, "A1", "B1")
	row := 2
	for _, st := range stats {
		f.SetCellValue(sheetSummary, cell("A", row), st.label)
		f.SetCellValue(sheetSummary, cell("B", row), st.value)
		row++
	}

	if len(schedule.Dropped) == 0 {
		return nil
	}
	row++
	headers := []string{"Type", "Title", "Day", "Duration", "Reason"}
	for i, h := range headers {
		f.SetCellValue(sheetSummary, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetSummary, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)
	for _, d := range schedule.Dropped {
		row++
		f.SetCellValue(sheetSummary, cell("A", row), string(d.Kind))
		f.SetCellValue(sheetSummary, cell("B", row), d.Title)
		f.SetCellValue(sheetSummary, cell("C", row), string(d.Day))
		f.SetCellValue(sheetSummary, cell("D", row), d.DurationMinutes)
		f.SetCellValue(sheetSummary, cell("E", row), d.Reason)
	}
	return nil
}

func blockLine(b planner.TimeBlock) string {
	line := fmt.Sprintf("%s-%s %s", b.StartTime, b.EndTime, b.Title)
	if b.Location != "" {
		line += " (" + b.Location + ")"
	}
	return line
}

// colName 0-based 列号 → 列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// ═══════════════════════════════════════════════════════════
// iCalendar
// ═══════════════════════════════════════════════════════════

func exportICS(schedule *planner.WeekSchedule, weekStart, now time.Time) (*dto.ExportFile, error) {
	cal := ics.NewCalendarFor("campus-planner")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName("My Schedule")
	tzid := weekStart.Location().String()
	if tzid != "Local" {
		cal.SetXWRTimezone(tzid)
	}

	for i, d := range planner.WeekDays {
		date := weekStart.AddDate(0, 0, i)
		for j, b := range schedule.Blocks(d) {
			start := atClock(date, b.StartMinute())
			end := atClock(date, b.EndMinute())

			evt := cal.AddEvent(fmt.Sprintf("%s-%s-%d@campus-planner", strings.ToLower(string(d)), strings.ReplaceAll(b.StartTime, ":", ""), j))
			evt.SetDtStampTime(now)
			evt.SetStartAt(start)
			evt.SetEndAt(end)
			evt.SetSummary(b.Title)
			if b.Location != "" {
				evt.SetLocation(b.Location)
			}
			if b.Professor != "" {
				evt.SetDescription(b.Professor)
			}
			evt.AddCategory(string(b.Kind))
			evt.AddRrule(recurrenceRule(b))
		}
	}

	return &dto.ExportFile{
		FileName:    exportBaseName + ".ics",
		ContentType: "text/calendar; charset=utf-8",
		Data:        []byte(cal.Serialize()),
	}, nil
}

// recurrenceRule 单双周的课隔周重复，其余每周重复
func recurrenceRule(b planner.TimeBlock) string {
	if b.Kind == planner.KindClass &&
		(b.Frequency == planner.FrequencyEvenWeeks || b.Frequency == planner.FrequencyOddWeeks) {
		return "FREQ=WEEKLY;INTERVAL=2"
	}
	return "FREQ=WEEKLY"
}

func atClock(date time.Time, minutes int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, date.Location())
}

// ═══════════════════════════════════════════════════════════
// PDF
// ═══════════════════════════════════════════════════════════

func exportPDF(schedule *planner.WeekSchedule, weekStart time.Time) (*dto.ExportFile, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()
	// 内置字体只支持 cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "My Schedule - week of "+weekStart.Format("02.01.2006"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	st := schedule.Stats
	pdf.CellFormat(0, 6, fmt.Sprintf("Classes: %d   Study sessions: %d   Activities: %d   Free time: %dh",
		st.TotalClasses, st.TotalStudySessions, st.TotalActivities, st.TotalFreeTimeHours), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	headers := []string{"Day", "Time", "Type", "Title", "Location"}
	widths := []float64{28, 28, 24, 140, 57}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, d := range planner.WeekDays {
		for _, b := range schedule.Blocks(d) {
			values := []string{
				string(d),
				b.StartTime + "-" + b.EndTime,
				string(b.Kind),
				tr(b.Title),
				tr(b.Location),
			}
			for i, v := range values {
				pdf.CellFormat(widths[i], 7, v, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return &dto.ExportFile{
		FileName:    exportBaseName + ".pdf",
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	}, nil
}
