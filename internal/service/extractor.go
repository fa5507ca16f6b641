package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"campus-planner/config"
	"campus-planner/internal/planner"
)

// ErrExtractionFailed 识别服务不可用或返回错误
var ErrExtractionFailed = errors.New("课表识别失败")

const extractorMaxResponse = 1 << 20

// ExtractRequest 发给识别服务的请求体
type ExtractRequest struct {
	FilePath    string `json:"filePath"`
	FileURL     string `json:"fileUrl,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// RawClass 识别服务返回的一节课，字段均为原始字符串
type RawClass struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Type      string `json:"type"`
	Professor string `json:"professor"`
	Room      string `json:"room"`
	Frequency string `json:"frequency"`
}

// Extraction 识别结果
type Extraction struct {
	Title     string     `json:"title"`
	ValidFrom string     `json:"validFrom"`
	ValidTo   string     `json:"validTo"`
	Classes   []RawClass `json:"classes"`
	Error     string     `json:"error,omitempty"`
}

// Extractor 从上传的课表图片/PDF 中识别课程
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

// HTTPExtractor 调用 parse-schedule 函数
type HTTPExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPExtractor 创建识别服务客户端
func NewHTTPExtractor(cfg *config.ExtractorConfig) *HTTPExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPExtractor{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/parse-schedule",
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, in ExtractRequest) (*Extraction, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("序列化识别请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, extractorMaxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", ErrExtractionFailed, err)
	}

	var out Extraction
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: HTTP %d: 响应不是合法 JSON", ErrExtractionFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrExtractionFailed, resp.StatusCode, msg)
	}
	return &out, nil
}

// normalizeClasses 把识别结果规范为课表条目。任一条目缺少或无法解析必填字段时整体失败，
// 返回的 ValidationError 指明条目下标与字段
func normalizeClasses(raw []RawClass) ([]planner.ClassEntry, error) {
	classes := make([]planner.ClassEntry, 0, len(raw))
	for i, r := range raw {
		day, ok := planner.ParseDay(r.Day)
		if !ok {
			return nil, rawClassError(i, "day", r.Day, nil)
		}
		start, err := planner.NormalizeClock(r.StartTime)
		if err != nil {
			return nil, rawClassError(i, "startTime", r.StartTime, err)
		}
		end, err := planner.NormalizeClock(r.EndTime)
		if err != nil {
			return nil, rawClassError(i, "endTime", r.EndTime, err)
		}
		c := planner.ClassEntry{
			Day:       day,
			StartTime: start,
			EndTime:   end,
			Subject:   strings.TrimSpace(r.Subject),
			Type:      planner.ParseClassType(r.Type),
			Professor: strings.TrimSpace(r.Professor),
			Room:      strings.TrimSpace(r.Room),
			Frequency: planner.ParseClassFrequency(r.Frequency),
		}
		if c.Type == "" {
			c.Type = planner.ClassLecture
		}
		classes = append(classes, c)
	}
	if err := planner.ValidateClasses(classes); err != nil {
		return nil, err
	}
	return classes, nil
}

func rawClassError(index int, field, value string, cause error) error {
	reason := fmt.Sprintf("无法识别 %q", value)
	if strings.TrimSpace(value) == "" {
		reason = "缺少必填字段"
	}
	return &planner.ValidationError{Section: "classes", Index: index, Field: field, Reason: reason, Err: cause}
}
