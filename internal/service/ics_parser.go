package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	ics "github.com/arran4/golang-ical"

	"campus-planner/internal/planner"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为课表条目。
//
//   - DTSTART/DTEND 确定星期几与时间
//   - RRULE 展开出每次上课的日期，换算为相对首次上课所在周的周次
//   - 合并同 subject+day+time 的事件（ICS 可能以多个单次事件表示同一课程）
//   - 单双周由周次推导：全为奇数周 → OddWeeksOnly，全为偶数周 → EvenWeeksOnly
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsDialTimeout  = 10 * time.Second
	icsMaxRedirects = 5
	icsDateLayout   = "02.01.2006"

	// 无 COUNT/UNTIL 的 RRULE 最多展开的次数（约一个学期）
	icsMaxOccurrences = 20
	// 有 COUNT/UNTIL 时的硬上限
	icsOccurrenceCap  = 60
)

var (
	ErrICSParseFailed = errors.New("ICS 文件解析失败")
	ErrICSEmpty       = errors.New("ICS 文件中未发现有效课程事件")
	ErrICSFetchFailed = errors.New("获取 ICS 失败")
	ErrICSBadURL      = errors.New("ICS 地址无效")

	errICSPrivateAddress = errors.New("不允许访问本机或内网地址")
)

// icsImport 一次 ICS 解析的结果
type icsImport struct {
	Title     string
	ValidFrom string
	ValidTo   string
	Classes   []planner.ClassEntry
	Skipped   int
}

// parsedClassEvent ICS 解析中间结构
type parsedClassEvent struct {
	Subject   string
	Type      planner.ClassType
	Professor string
	Room      string
	Day       planner.Day
	StartTime string
	EndTime   string
	Dates     []time.Time
}

// icsClient 拨号时校验解析后的 IP，只允许公网地址
var icsClient = newICSClient(publicAddressOnly)

func newICSClient(control func(network, address string, c syscall.RawConn) error) *http.Client {
	dialer := &net.Dialer{Timeout: icsDialTimeout, Control: control}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 走代理时拨号目标是代理而非 ICS 主机
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Timeout:   icsFetchTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= icsMaxRedirects {
				return fmt.Errorf("重定向次数超过 %d", icsMaxRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("不支持重定向到 %s", req.URL.Scheme)
			}
			return nil
		},
	}
}

// publicAddressOnly 作为 net.Dialer.Control，拒绝回环、内网、链路本地、未指定与组播地址
func publicAddressOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", errICSPrivateAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified())
}

// FetchICSContent 从 URL 获取 ICS 内容，调用方负责关闭。
// 只访问公网地址，指向本机或内网的地址返回 ErrICSBadURL。
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return fetchICS(ctx, icsClient, rawURL)
}

func fetchICS(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := strings.TrimSpace(rawURL)
	if strings.HasPrefix(strings.ToLower(u), "webcal://") {
		u = "https://" + u[len("webcal://"):]
	}
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w，仅支持 http、https 与 webcal", ErrICSBadURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, errICSPrivateAddress) {
			return nil, fmt.Errorf("%w: %w", ErrICSBadURL, errICSPrivateAddress)
		}
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrICSFetchFailed, resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容，时间统一换算到 loc
func ParseICS(reader io.Reader, loc *time.Location) (*icsImport, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSParseFailed, err)
	}

	result := &icsImport{Title: calendarName(cal)}

	// 阶段 1: 解析所有 VEVENT
	var events []parsedClassEvent
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp, loc)
		if !ok {
			result.Skipped++
			continue
		}
		events = append(events, evt)
	}
	if len(events) == 0 {
		return nil, ErrICSEmpty
	}

	// 阶段 2: 合并同课程的上课日期
	merged := mergeEvents(events)

	// 阶段 3: 以最早一次上课所在周的周一为第 1 周
	var first, last time.Time
	for _, e := range merged {
		for _, d := range e.Dates {
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if d.After(last) {
				last = d
			}
		}
	}
	anchor := mondayOf(first)
	result.ValidFrom = first.Format(icsDateLayout)
	result.ValidTo = last.Format(icsDateLayout)

	result.Classes = make([]planner.ClassEntry, 0, len(merged))
	for _, e := range merged {
		weeks := make([]int, 0, len(e.Dates))
		for _, d := range e.Dates {
			weeks = append(weeks, dateToWeekNumber(d, anchor))
		}
		sort.Ints(weeks)
		result.Classes = append(result.Classes, planner.ClassEntry{
			Day:       e.Day,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Subject:   e.Subject,
			Type:      e.Type,
			Professor: e.Professor,
			Room:      e.Room,
			Frequency: deriveFrequency(weeks),
		})
	}
	return result, nil
}

// parseVEvent 解析单个 VEVENT；缺少标题或时间、跨越午夜的事件跳过
func parseVEvent(evt *ics.VEvent, loc *time.Location) (parsedClassEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedClassEvent{}, false
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedClassEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		durProp := evt.GetProperty(ics.ComponentPropertyDuration)
		if durProp == nil {
			return parsedClassEvent{}, false
		}
		d, ok := parseICSDuration(durProp.Value)
		if !ok {
			return parsedClassEvent{}, false
		}
		dtEnd = dtStart.Add(d)
	}
	if !sameDay(dtStart, dtEnd) || !dtEnd.After(dtStart) {
		return parsedClassEvent{}, false
	}

	day, ok := planner.ParseDay(dtStart.Weekday().String())
	if !ok {
		return parsedClassEvent{}, false
	}

	classType := planner.ClassLecture
	if cat := evt.GetProperty(ics.ComponentPropertyCategories); cat != nil && strings.TrimSpace(cat.Value) != "" {
		first, _, _ := strings.Cut(cat.Value, ",")
		classType = planner.ParseClassType(first)
	}

	return parsedClassEvent{
		Subject:   strings.TrimSpace(summary.Value),
		Type:      classType,
		Professor: organizerName(evt),
		Room:      propertyValue(evt, ics.ComponentPropertyLocation),
		Day:       day,
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
		Dates:     occurrences(evt, dtStart, loc),
	}, true
}

// occurrences 根据 RRULE / EXDATE 展开上课日期；无 RRULE 时只有 DTSTART 当天
func occurrences(evt *ics.VEvent, dtStart time.Time, loc *time.Location) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{dtStart}
	}
	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		return []time.Time{dtStart}
	}

	exDates := parseExDates(evt, loc)
	interval := rule.interval
	if interval < 1 {
		interval = 1
	}
	limit := icsMaxOccurrences
	switch {
	case rule.count > 0:
		limit = min(rule.count, icsOccurrenceCap)
	case !rule.until.IsZero():
		limit = icsOccurrenceCap
	}

	var dates []time.Time
	current := dtStart
	for n := 0; n < limit; n++ {
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		if !exDates[current.Format("20060102")] {
			dates = append(dates, current)
		}
		current = current.AddDate(0, 0, 7*interval)
	}
	if len(dates) == 0 {
		return []time.Time{dtStart}
	}
	return dates
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=14;INTERVAL=2）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(k) {
		case "FREQ":
			r.freq = strings.ToUpper(v)
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(v); err == nil {
				r.count = n
			}
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", v)
			if err != nil {
				t, _ = time.Parse("20060102", v)
				if !t.IsZero() {
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（可能一行多个，逗号分隔）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", v)
			if err != nil {
				t, err = time.ParseInLocation("20060102T150405", v, loc)
				if err != nil {
					t, err = time.ParseInLocation("20060102", v, loc)
				}
			}
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}

// mergeEvents 合并相同课程事件的上课日期，保持首次出现的顺序
func mergeEvents(events []parsedClassEvent) []parsedClassEvent {
	type key struct {
		Subject   string
		Day       planner.Day
		StartTime string
		EndTime   string
	}
	merged := make(map[key]*parsedClassEvent)
	order := []key{}

	for _, e := range events {
		k := key{Subject: e.Subject, Day: e.Day, StartTime: e.StartTime, EndTime: e.EndTime}
		existing, ok := merged[k]
		if !ok {
			cp := e
			merged[k] = &cp
			order = append(order, k)
			continue
		}
		seen := make(map[string]bool, len(existing.Dates))
		for _, d := range existing.Dates {
			seen[d.Format("20060102")] = true
		}
		for _, d := range e.Dates {
			if !seen[d.Format("20060102")] {
				existing.Dates = append(existing.Dates, d)
			}
		}
		if existing.Room == "" {
			existing.Room = e.Room
		}
		if existing.Professor == "" {
			existing.Professor = e.Professor
		}
	}

	result := make([]parsedClassEvent, 0, len(merged))
	for _, k := range order {
		result = append(result, *merged[k])
	}
	return result
}

// ── 辅助函数 ──

// dateToWeekNumber 计算日期相对 anchor（周一）的周次（1-based）
func dateToWeekNumber(date, anchor time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days/7 + 1
}

// mondayOf 所在周的周一 00:00
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// deriveFrequency 根据周次推导单双周；只出现一次的课视为每周
func deriveFrequency(weeks []int) planner.ClassFrequency {
	if len(weeks) < 2 {
		return planner.FrequencyWeekly
	}
	allOdd, allEven := true, true
	for _, w := range weeks {
		if w%2 == 0 {
			allOdd = false
		} else {
			allEven = false
		}
	}
	switch {
	case allOdd:
		return planner.FrequencyOddWeeks
	case allEven:
		return planner.FrequencyEvenWeeks
	}
	return planner.FrequencyWeekly
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 全天事件不是课程
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// parseICSDuration 解析 DURATION（只支持 PT#H#M 与 P#W/P#D 的常见形式）
func parseICSDuration(v string) (time.Duration, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if !strings.HasPrefix(s, "P") {
		return 0, false
	}
	s = s[1:]
	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			num = ""
			switch {
			case r == 'W' && !inTime:
				total += time.Duration(n) * 7 * 24 * time.Hour
			case r == 'D' && !inTime:
				total += time.Duration(n) * 24 * time.Hour
			case r == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case r == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case r == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0, false
			}
		}
	}
	if num != "" || total <= 0 {
		return 0, false
	}
	return total, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func calendarName(cal *ics.Calendar) string {
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ics.PropertyXWRCalName) || p.IANAToken == string(ics.PropertyName) {
			return strings.TrimSpace(p.Value)
		}
	}
	return ""
}

func propertyValue(evt *ics.VEvent, prop ics.ComponentProperty) string {
	if p := evt.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// organizerName ORGANIZER 的 CN 参数，没有时退回邮箱
func organizerName(evt *ics.VEvent) string {
	p := evt.GetProperty(ics.ComponentPropertyOrganizer)
	if p == nil {
		return ""
	}
	if cn := p.ICalParameters[string(ics.ParameterCn)]; len(cn) > 0 && strings.TrimSpace(cn[0]) != "" {
		return strings.TrimSpace(cn[0])
	}
	v := strings.TrimSpace(p.Value)
	if len(v) > len("mailto:") && strings.EqualFold(v[:len("mailto:")], "mailto:") {
		v = v[len("mailto:"):]
	}
	return v
}
