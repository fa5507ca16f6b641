package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"campus-planner/internal/dto"
	"campus-planner/internal/model"
	"campus-planner/internal/planner"
	pkgerrors "campus-planner/pkg/errors"
)

// pngBytes 以 PNG 文件头开头的内容，足以通过类型嗅探
func pngBytes() []byte {
	head := []byte("\x89PNG\r\n\x1a\n")
	return append(head, bytes.Repeat([]byte{0}, 600)...)
}

func setupTestTimetableService() (TimetableService, *testRepos, *mockObjectStore, *mockExtractor) {
	tr := newTestRepos()
	store := newMockObjectStore()
	extractor := &mockExtractor{
		result: &Extraction{
			Title:     "Orar INFO Anul 1, INFO1 Grupa 3",
			ValidFrom: "29.09.2025",
			ValidTo:   "15.02.2026",
			Classes: []RawClass{
				{Day: "Monday", StartTime: "8:00", EndTime: "10", Subject: " Matematica ", Type: "Curs", Room: "C2"},
				{Day: "tue", StartTime: "12:00", EndTime: "14:00", Subject: "Programare", Type: "Laborator", Frequency: "even"},
				{Day: "Luni", StartTime: "14:00", EndTime: "16:00", Subject: "Fizica", Type: "Seminar"},
			},
		},
	}
	svc := NewTimetableService(tr.repo, store, extractor, nil, tr.logger)
	return svc, tr, store, extractor
}

// ── Upload ──

func TestUpload_Success(t *testing.T) {
	svc, tr, store, extractor := setupTestTimetableService()
	data := pngBytes()

	resp, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name:   "orar.png",
		Size:   int64(len(data)),
		Reader: bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("Upload 应成功: %v", err)
	}

	if resp.ImportedCount != 3 || resp.Skipped != 0 {
		t.Errorf("期望导入 3 条、跳过 0 条，实际 %d / %d", resp.ImportedCount, resp.Skipped)
	}
	first := resp.Classes[0]
	if first.StartTime != "08:00" || first.EndTime != "10:00" || first.Subject != "Matematica" || first.Type != planner.ClassLecture {
		t.Errorf("第一条未规范化: %+v", first)
	}
	if resp.Classes[1].Day != planner.Tuesday || resp.Classes[1].Frequency != planner.FrequencyEvenWeeks {
		t.Errorf("第二条未规范化: %+v", resp.Classes[1])
	}
	if resp.Classes[2].Day != planner.Monday || resp.Classes[2].Type != planner.ClassSeminar {
		t.Errorf("罗马尼亚语星期名未规范化: %+v", resp.Classes[2])
	}

	// 文件按内容类型保存
	if len(store.objects) != 1 {
		t.Fatalf("期望存储 1 个对象，实际 %d", len(store.objects))
	}
	for key, body := range store.objects {
		if !strings.HasPrefix(key, "schedules/") || !strings.HasSuffix(key, ".png") {
			t.Errorf("对象 key 不符合 schedules/<uuid>.png: %s", key)
		}
		if !bytes.Equal(body, data) {
			t.Error("存储内容与上传内容不一致")
		}
		if extractor.got[0].FilePath != key {
			t.Errorf("识别请求应携带对象 key，实际 %s", extractor.got[0].FilePath)
		}
	}

	// 课表已保存
	tt, err := svc.Get(context.Background(), tr.testUser)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if tt.Title != "Orar INFO Anul 1, INFO1 Grupa 3" || len(tt.Classes) != 3 || tt.Version != 1 {
		t.Errorf("保存的课表不正确: %+v", tt)
	}

	if tr.uploads.uploads[0].Status != model.UploadExtracted || tr.uploads.uploads[0].ClassCount != 3 {
		t.Errorf("上传记录状态不正确: %+v", tr.uploads.uploads[0])
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	data := []byte("hello, this is plain text")

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("期望 ErrUnsupportedFileType，实际: %v", err)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.pdf", Size: 11 * 1024 * 1024, Reader: bytes.NewReader(nil),
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("期望 ErrFileTooLarge，实际: %v", err)
	}
}

func TestUpload_ExtractionFailureRemovesObject(t *testing.T) {
	svc, tr, store, extractor := setupTestTimetableService()
	extractor.err = fmt.Errorf("%w: HTTP 500", ErrExtractionFailed)
	data := pngBytes()

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("期望 ErrExtractionFailed，实际: %v", err)
	}
	if len(store.objects) != 0 || len(store.removed) != 1 {
		t.Errorf("识别失败后应删除已上传文件，剩余 %d，删除 %d", len(store.objects), len(store.removed))
	}
	if tr.uploads.uploads[0].Status != model.UploadFailed {
		t.Errorf("上传记录应标记为 failed，实际 %s", tr.uploads.uploads[0].Status)
	}
	if _, err := svc.Get(context.Background(), tr.testUser); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("识别失败时不应保存课表，实际: %v", err)
	}
}

func TestUpload_NothingRecognizedRemovesObject(t *testing.T) {
	svc, tr, store, extractor := setupTestTimetableService()
	extractor.result = &Extraction{Title: "Orar gol"}
	data := pngBytes()

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if !errors.Is(err, ErrTimetableEmpty) {
		t.Fatalf("期望 ErrTimetableEmpty，实际: %v", err)
	}
	if len(store.objects) != 0 || len(store.removed) != 1 {
		t.Errorf("未识别到课程时应删除已上传文件，剩余 %d，删除 %d", len(store.objects), len(store.removed))
	}
	if tr.uploads.uploads[0].Status != model.UploadFailed {
		t.Errorf("上传记录应标记为 failed，实际 %s", tr.uploads.uploads[0].Status)
	}
}

func TestUpload_InvalidEntryRejectsWholeTimetable(t *testing.T) {
	svc, tr, store, extractor := setupTestTimetableService()
	extractor.result = &Extraction{Classes: []RawClass{
		{Day: "Monday", StartTime: "08:00", EndTime: "10:00", Subject: "Math"},
		{Day: "Tuesday", StartTime: "08:00", EndTime: "10:00", Subject: ""},
	}}
	data := pngBytes()

	resp, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if resp != nil {
		t.Errorf("存在不合法条目时不应返回导入结果: %+v", resp)
	}
	if !errors.Is(err, planner.ErrValidation) {
		t.Fatalf("期望 ErrValidation，实际: %v", err)
	}
	var verr *planner.ValidationError
	if !errors.As(err, &verr) || verr.Index != 1 || verr.Field != "subject" {
		t.Errorf("错误应指出第 1 条的 subject，实际: %v", err)
	}

	if len(store.objects) != 0 {
		t.Errorf("校验失败后应删除已上传文件，剩余 %d", len(store.objects))
	}
	if tr.uploads.uploads[0].Status != model.UploadFailed {
		t.Errorf("上传记录应标记为 failed，实际 %s", tr.uploads.uploads[0].Status)
	}
	if _, err := svc.Get(context.Background(), tr.testUser); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("校验失败时不应保存课表，实际: %v", err)
	}
}

func TestUpload_SaveFailureRemovesObject(t *testing.T) {
	svc, tr, store, _ := setupTestTimetableService()
	tr.docs.saveErr = errors.New("connection reset")
	data := pngBytes()

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if err == nil {
		t.Fatal("保存失败时 Upload 应返回错误")
	}
	if len(store.objects) != 0 || len(store.removed) != 1 {
		t.Errorf("保存失败后应删除已上传文件，剩余 %d，删除 %d", len(store.objects), len(store.removed))
	}
	if tr.uploads.uploads[0].Status != model.UploadFailed {
		t.Errorf("上传记录应标记为 failed，实际 %s", tr.uploads.uploads[0].Status)
	}
}

func TestUpload_WithoutStorage(t *testing.T) {
	tr := newTestRepos()
	svc := NewTimetableService(tr.repo, nil, &mockExtractor{}, nil, tr.logger)
	data := pngBytes()

	_, err := svc.Upload(context.Background(), tr.testUser, UploadFile{
		Name: "orar.png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("期望 ErrStorageUnavailable，实际: %v", err)
	}
}

// ── ImportICS ──

func TestImportICS_ReplacesTimetable(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()

	// 先有一份旧课表
	if _, err := svc.Update(context.Background(), tr.testUser, &dto.UpdateTimetableRequest{
		Classes: []planner.ClassEntry{{Day: planner.Friday, StartTime: "10:00", EndTime: "12:00", Subject: "Old"}},
	}); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}

	resp, err := svc.ImportICS(context.Background(), tr.testUser, strings.NewReader(sampleICS()))
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.ImportedCount != 2 || resp.Skipped != 1 {
		t.Errorf("期望导入 2 条、跳过 1 条，实际 %d / %d", resp.ImportedCount, resp.Skipped)
	}

	tt, _ := svc.Get(context.Background(), tr.testUser)
	if tt.Version != 2 {
		t.Errorf("导入应覆盖旧版本，期望 version=2，实际 %d", tt.Version)
	}
	if tt.Classes[0].Subject != "Matematica" {
		t.Errorf("课表未被替换: %+v", tt.Classes)
	}
}

func TestImportICSFromURL_BadScheme(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	_, err := svc.ImportICSFromURL(context.Background(), tr.testUser, "file:///etc/passwd")
	if !errors.Is(err, ErrICSBadURL) {
		t.Errorf("期望 ErrICSBadURL，实际: %v", err)
	}
}

func TestImportICSFromURL_PrivateAddress(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	for _, u := range []string{"http://127.0.0.1:1/cal.ics", "http://169.254.169.254/latest/meta-data", "http://[::1]:1/cal.ics"} {
		_, err := svc.ImportICSFromURL(context.Background(), tr.testUser, u)
		if !errors.Is(err, ErrICSBadURL) {
			t.Errorf("%s: 期望 ErrICSBadURL，实际: %v", u, err)
		}
	}
	if _, err := svc.Get(context.Background(), tr.testUser); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("拒绝访问时不应保存课表，实际: %v", err)
	}
}

// ── 读写 ──

func TestGetTimetable_NotFound(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	_, err := svc.Get(context.Background(), tr.testUser)
	if !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound，实际: %v", err)
	}
}

func TestUpdateTimetable_VersionConflict(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	req := &dto.UpdateTimetableRequest{
		Classes: []planner.ClassEntry{{Day: planner.Monday, StartTime: "08:00", EndTime: "10:00", Subject: "Math"}},
	}
	first, err := svc.Update(context.Background(), tr.testUser, req)
	if err != nil {
		t.Fatalf("首次保存应成功: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("期望 version=1，实际 %d", first.Version)
	}

	// 仍以 version 0 提交 → 冲突
	_, err = svc.Update(context.Background(), tr.testUser, req)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	req.Version = 1
	second, err := svc.Update(context.Background(), tr.testUser, req)
	if err != nil || second.Version != 2 {
		t.Errorf("携带正确版本号应成功，实际 %v / %+v", err, second)
	}
}

func TestUpdateTimetable_Invalid(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	_, err := svc.Update(context.Background(), tr.testUser, &dto.UpdateTimetableRequest{
		Classes: []planner.ClassEntry{{Day: planner.Monday, StartTime: "10:00", EndTime: "08:00", Subject: "Math"}},
	})
	if !errors.Is(err, planner.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

func TestSummary(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	_, _ = svc.Update(context.Background(), tr.testUser, &dto.UpdateTimetableRequest{
		Classes: []planner.ClassEntry{
			{Day: planner.Wednesday, StartTime: "08:00", EndTime: "10:00", Subject: "Math", Type: planner.ClassLecture},
			{Day: planner.Monday, StartTime: "12:00", EndTime: "13:30", Subject: "Prog", Type: planner.ClassLab},
			{Day: planner.Monday, StartTime: "14:00", EndTime: "16:00", Subject: "Math", Type: planner.ClassSeminar},
		},
	})

	s, err := svc.Summary(context.Background(), tr.testUser)
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if s.TotalClasses != 3 || s.ByType[planner.ClassLab] != 1 {
		t.Errorf("统计不正确: %+v", s)
	}
	if len(s.Days) != 2 || s.Days[0] != planner.Monday || s.Days[1] != planner.Wednesday {
		t.Errorf("有课的日子应按周一起排序: %v", s.Days)
	}
	if s.HoursPerDay[planner.Monday] != 3.5 {
		t.Errorf("期望周一 3.5 小时，实际 %v", s.HoursPerDay[planner.Monday])
	}
}

func TestListUploads(t *testing.T) {
	svc, tr, _, _ := setupTestTimetableService()
	data := pngBytes()
	for i := 0; i < 3; i++ {
		_, _ = svc.Upload(context.Background(), tr.testUser, UploadFile{
			Name: fmt.Sprintf("orar-%d.png", i), Size: int64(len(data)), Reader: bytes.NewReader(data),
		})
	}

	list, total, err := svc.ListUploads(context.Background(), tr.testUser, &dto.PaginationRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListUploads 应成功: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Errorf("期望共 3 条、本页 2 条，实际 %d / %d", total, len(list))
	}
	if list[0].Status != model.UploadExtracted || list[0].ContentType != "image/png" {
		t.Errorf("上传记录不正确: %+v", list[0])
	}
}
