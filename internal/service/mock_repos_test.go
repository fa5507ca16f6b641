package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planner/internal/model"
	"campus-planner/internal/repository"
	pkgerrors "campus-planner/pkg/errors"
	"campus-planner/pkg/redis"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 或 "email:<lower>"
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	key := "email:" + strings.ToLower(user.Email)
	if _, ok := m.users[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Date(2025, 9, 29, 8, 0, 0, 0, time.UTC)
	m.users[user.UserID] = user
	m.users[key] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	m.users["email:"+strings.ToLower(user.Email)] = user
	return nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	docs    map[string]*model.PlannerDocument // key: user_id + "/" + doc_key
	saveErr error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[string]*model.PlannerDocument)}
}

func docKey(userID, key string) string { return userID + "/" + key }

func (m *mockDocumentRepo) Get(_ context.Context, userID, key string) (*model.PlannerDocument, error) {
	if d, ok := m.docs[docKey(userID, key)]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) ListByUser(_ context.Context, userID string) ([]model.PlannerDocument, error) {
	var result []model.PlannerDocument
	for k, d := range m.docs {
		if strings.HasPrefix(k, userID+"/") {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Save 与 GORM 实现一致：version 0 新建，否则比较版本号
func (m *mockDocumentRepo) Save(_ context.Context, doc *model.PlannerDocument) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	k := docKey(doc.UserID, doc.Key)
	existing, ok := m.docs[k]
	if doc.Version == 0 {
		if ok {
			return pkgerrors.ErrOptimisticLock
		}
		doc.Version = 1
	} else {
		if !ok || existing.Version != doc.Version {
			return pkgerrors.ErrOptimisticLock
		}
		doc.Version++
	}
	cp := *doc
	cp.Payload = append(model.JSONB(nil), doc.Payload...)
	m.docs[k] = &cp
	return nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, userID, key string) error {
	delete(m.docs, docKey(userID, key))
	return nil
}

// ── Mock UploadRepository ──

type mockUploadRepo struct {
	uploads []*model.TimetableUpload
}

func newMockUploadRepo() *mockUploadRepo {
	return &mockUploadRepo{}
}

func (m *mockUploadRepo) Create(_ context.Context, upload *model.TimetableUpload) error {
	if upload.UploadID == "" {
		upload.UploadID = fmt.Sprintf("upload-%d", len(m.uploads)+1)
	}
	upload.CreatedAt = time.Date(2025, 9, 29, 8, 0, 0, 0, time.UTC)
	m.uploads = append(m.uploads, upload)
	return nil
}

func (m *mockUploadRepo) Update(_ context.Context, upload *model.TimetableUpload) error {
	for i, u := range m.uploads {
		if u.UploadID == upload.UploadID {
			m.uploads[i] = upload
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUploadRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.TimetableUpload, int64, error) {
	var all []model.TimetableUpload
	for _, u := range m.uploads {
		if u.UserID == userID {
			all = append(all, *u)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// ── Mock TokenStore / ScheduleCache ──

type mockRedis struct {
	mu        sync.Mutex
	blacklist map[string]time.Duration
	schedules map[string][]byte
	getErr    error
}

func newMockRedis() *mockRedis {
	return &mockRedis{
		blacklist: make(map[string]time.Duration),
		schedules: make(map[string][]byte),
	}
}

func (m *mockRedis) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		m.blacklist[jti] = ttl
	}
	return nil
}

func (m *mockRedis) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blacklist[jti]
	return ok, nil
}

func (m *mockRedis) SetSchedule(_ context.Context, userID string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[userID] = append([]byte(nil), payload...)
	return nil
}

func (m *mockRedis) GetSchedule(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.schedules[userID]
	if !ok {
		return nil, redis.ErrCacheMiss
	}
	return b, nil
}

func (m *mockRedis) InvalidateSchedule(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, userID)
	return nil
}

// ── Mock ObjectStore ──

type mockObjectStore struct {
	objects map[string][]byte
	removed []string
	putErr  error
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *mockObjectStore) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *mockObjectStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://storage.test/" + key, nil
}

// ── Mock Extractor ──

type mockExtractor struct {
	result *Extraction
	err    error
	got    []ExtractRequest
}

func (m *mockExtractor) Extract(_ context.Context, req ExtractRequest) (*Extraction, error) {
	m.got = append(m.got, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// ── 测试辅助 ──

type testRepos struct {
	repo     *repository.Repository
	users    *mockUserRepo
	docs     *mockDocumentRepo
	uploads  *mockUploadRepo
	rdb      *mockRedis
	logger   *zap.Logger
	testUser string
}

func newTestRepos() *testRepos {
	users := newMockUserRepo()
	docs := newMockDocumentRepo()
	uploads := newMockUploadRepo()
	return &testRepos{
		repo: &repository.Repository{
			User:     users,
			Document: docs,
			Upload:   uploads,
		},
		users:    users,
		docs:     docs,
		uploads:  uploads,
		rdb:      newMockRedis(),
		logger:   zap.NewNop(),
		testUser: "user-test",
	}
}
