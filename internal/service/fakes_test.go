package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/identity"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage"
)

// --- Репозиторий файлов в памяти ---

type memFiles struct {
	mu    sync.Mutex
	files map[string]*model.FileRecord
	clock func() time.Time

	// createErr — ошибка Create (nil — успех)
	createErr error
}

func newMemFiles(clock func() time.Time) *memFiles {
	return &memFiles{files: make(map[string]*model.FileRecord), clock: clock}
}

// clone возвращает независимую копию записи (как при чтении из БД).
func clone(f *model.FileRecord) *model.FileRecord {
	c := *f
	c.AccessControl = slices.Clone(f.AccessControl)
	if f.ShareToken != nil {
		t := *f.ShareToken
		c.ShareToken = &t
	}
	if f.ShareExpiresAt != nil {
		e := *f.ShareExpiresAt
		c.ShareExpiresAt = &e
	}
	return &c
}

func (m *memFiles) Create(_ context.Context, f *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	now := m.clock()
	f.CreatedAt, f.UpdatedAt = now, now
	m.files[f.ID] = clone(f)
	return nil
}

func (m *memFiles) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(f), nil
}

func (m *memFiles) ListAccessible(_ context.Context, userID string) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.FileRecord
	for _, f := range m.files {
		if f.Owner == userID || f.AccessControl.Contains(userID) {
			out = append(out, clone(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memFiles) SetAccessControl(_ context.Context, id string, acl model.AccessSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.AccessControl = slices.Clone(acl)
	f.UpdatedAt = m.clock()
	return nil
}

func (m *memFiles) SetShareLink(_ context.Context, id, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.ShareToken = &token
	f.ShareExpiresAt = &expiresAt
	return nil
}

func (m *memFiles) FindByShareToken(_ context.Context, token string, now time.Time) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ShareToken != nil && *f.ShareToken == token && f.ShareExpiresAt.After(now) {
			return clone(f), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *memFiles) ExistsByHandle(_ context.Context, h model.StorageHandle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.Handle == h {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFiles) get(id string) *model.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		return clone(f)
	}
	return nil
}

// --- Справочник пользователей ---

type fakeUsers struct {
	byEmail map[string]model.Identity
}

func newFakeUsers(people ...model.Identity) *fakeUsers {
	u := &fakeUsers{byEmail: make(map[string]model.Identity)}
	for _, p := range people {
		u.byEmail[strings.ToLower(p.Email)] = p
	}
	return u
}

func (u *fakeUsers) ResolveEmail(_ context.Context, email string) (model.Identity, error) {
	p, ok := u.byEmail[strings.ToLower(email)]
	if !ok {
		return model.Identity{}, identity.ErrUserNotFound
	}
	return p, nil
}

func (u *fakeUsers) Lookup(_ context.Context, ids []string) ([]model.Identity, error) {
	out := make([]model.Identity, 0, len(ids))
	for _, id := range ids {
		found := model.Identity{ID: id}
		for _, p := range u.byEmail {
			if p.ID == id {
				found = p
				break
			}
		}
		out = append(out, found)
	}
	return out, nil
}

// --- Журнал аудита в памяти ---

type memAudit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (a *memAudit) Record(_ context.Context, action model.AuditAction, fileID, performedBy, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, &model.AuditEntry{
		ID:          uuid.NewString(),
		Action:      action,
		FileID:      fileID,
		PerformedBy: performedBy,
		Details:     details,
	})
}

func (a *memAudit) History(_ context.Context, fileID string) ([]*model.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*model.AuditEntry
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].FileID == fileID {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}

// count возвращает число записей с указанным действием по файлу.
func (a *memAudit) count(fileID string, action model.AuditAction) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.FileID == fileID && e.Action == action {
			n++
		}
	}
	return n
}

// --- Хранилище содержимого ---

// memBlobs — хранилище в памяти. kind задаёт вид создаваемых handle.
type memBlobs struct {
	mu    sync.Mutex
	kind  model.StorageKind
	blobs map[string][]byte

	// reportSize — Put возвращает размер (false — 0, как S3 без Content-Length)
	reportSize bool
	// statFn — переопределение Stat
	statFn func(h model.StorageHandle) (int64, error)
	// lastRange — последний Range, переданный в Open
	lastRange string
	deleted   []model.StorageHandle
	deleteErr error
	// putErrFn — ошибка записи для файла с указанным именем (nil — успех)
	putErrFn func(name string) error
	// puts — число вызовов Put
	puts int
}

func newMemBlobs(kind model.StorageKind) *memBlobs {
	return &memBlobs{kind: kind, blobs: make(map[string][]byte), reportSize: true}
}

func (b *memBlobs) handle(key string) model.StorageHandle {
	if b.kind == model.StorageRemote {
		return model.RemoteHandle("bucket", key)
	}
	return model.LocalHandle(key)
}

func (b *memBlobs) key(h model.StorageHandle) string {
	if h.IsRemote() {
		return h.Key
	}
	return h.Path
}

func (b *memBlobs) Put(_ context.Context, body io.Reader, _ int64, name, _ string) (*storage.PutResult, error) {
	b.mu.Lock()
	b.puts++
	errFn := b.putErrFn
	b.mu.Unlock()
	if errFn != nil {
		if err := errFn(name); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := uuid.NewString() + "/" + name
	b.blobs[key] = data

	res := &storage.PutResult{Handle: b.handle(key)}
	if b.reportSize {
		res.Size = int64(len(data))
	}
	return res, nil
}

func (b *memBlobs) Open(_ context.Context, h model.StorageHandle, rangeHeader string) (*storage.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRange = rangeHeader
	data, ok := b.blobs[b.key(h)]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	obj := &storage.Object{
		Body:    io.NopCloser(bytes.NewReader(data)),
		Size:    int64(len(data)),
		ModTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if !h.IsRemote() {
		obj.Content = bytes.NewReader(data)
		return obj, nil
	}

	var start, end int64
	if rangeHeader != "" {
		if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil || start > end || end >= int64(len(data)) {
			return nil, storage.ErrInvalidRange
		}
		obj.Body = io.NopCloser(bytes.NewReader(data[start : end+1]))
		obj.Size = end - start + 1
		obj.Partial = true
		obj.ContentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, len(data))
	}
	return obj, nil
}

func (b *memBlobs) Delete(_ context.Context, h model.StorageHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, h)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.blobs, b.key(h))
	return nil
}

func (b *memBlobs) Stat(_ context.Context, h model.StorageHandle) (int64, error) {
	if b.statFn != nil {
		return b.statFn(h)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[b.key(h)]
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return int64(len(data)), nil
}

func (b *memBlobs) PresignGet(_ context.Context, h model.StorageHandle, filename string, _ time.Duration) (string, error) {
	if !h.IsRemote() {
		return "", storage.ErrPresignUnsupported
	}
	return "https://s3.example.com/" + h.Bucket + "/" + h.Key + "?X-Amz-Signature=test&name=" + filename, nil
}

func (b *memBlobs) remove(h model.StorageHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, b.key(h))
}

// --- Стенд ---

var (
	alice = model.Identity{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = model.Identity{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}
	carol = model.Identity{ID: "u-carol", Name: "Carol", Email: "carol@example.com"}
)

// testClock — управляемые часы.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock    *testClock
	files    *memFiles
	blobs    *memBlobs
	audit    *memAudit
	access   *AccessService
	transfer *TransferService
}

func newTestEnv(kind model.StorageKind) *testEnv {
	clock := newTestClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		clock: clock,
		files: newMemFiles(clock.Now),
		blobs: newMemBlobs(kind),
		audit: &memAudit{},
	}

	env.access = NewAccessService(env.files, newFakeUsers(alice, bob, carol), env.audit, env.audit,
		AccessConfig{PublicBaseURL: "https://app.example.com", ShareLinkTTL: 24 * time.Hour}, logger)
	env.access.now = clock.Now

	env.transfer = NewTransferService(env.files, env.blobs, env.audit, TransferConfig{
		Policy: UploadPolicy{
			MaxFiles:          10,
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{"txt", "pdf", "png"},
		},
		APIBaseURL:    "https://api.example.com",
		PreviewURLTTL: 15 * time.Minute,
	}, logger)
	env.transfer.now = clock.Now

	return env
}

// upload загружает один текстовый файл от имени owner.
func (e *testEnv) upload(owner, name, content string) *model.FileRecord {
	created, err := e.transfer.Upload(context.Background(), owner, []UploadItem{{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}})
	if err != nil {
		panic(err)
	}
	return created[0]
}
