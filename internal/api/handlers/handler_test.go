package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/service"
)

const testFileID = "0b3c1a52-8f1e-4d77-9d1c-2a8c6d4e9f10"

// --- Моки сервисов ---

type mockAccess struct {
	getFn         func(ctx context.Context, caller, fileID string) (*model.FileRecord, error)
	listMineFn    func(ctx context.Context, caller string) ([]service.FileSummary, error)
	grantFn       func(ctx context.Context, caller, fileID, email string) (*service.GrantResult, error)
	issueLinkFn   func(ctx context.Context, caller, fileID string) (*service.ShareLink, error)
	consumeLinkFn func(ctx context.Context, caller, token string) (*model.FileRecord, error)
	revokeFn      func(ctx context.Context, caller, fileID, target string) (*service.RevokeResult, error)
	permissionsFn func(ctx context.Context, caller, fileID string) (*service.Permissions, error)
	historyFn     func(ctx context.Context, caller, fileID string) ([]*model.AuditEntry, error)
}

func (m *mockAccess) Get(ctx context.Context, caller, fileID string) (*model.FileRecord, error) {
	return m.getFn(ctx, caller, fileID)
}

func (m *mockAccess) ListMine(ctx context.Context, caller string) ([]service.FileSummary, error) {
	return m.listMineFn(ctx, caller)
}

func (m *mockAccess) GrantByEmail(ctx context.Context, caller, fileID, email string) (*service.GrantResult, error) {
	return m.grantFn(ctx, caller, fileID, email)
}

func (m *mockAccess) IssueShareLink(ctx context.Context, caller, fileID string) (*service.ShareLink, error) {
	return m.issueLinkFn(ctx, caller, fileID)
}

func (m *mockAccess) ConsumeShareLink(ctx context.Context, caller, token string) (*model.FileRecord, error) {
	return m.consumeLinkFn(ctx, caller, token)
}

func (m *mockAccess) RevokeAccess(ctx context.Context, caller, fileID, target string) (*service.RevokeResult, error) {
	return m.revokeFn(ctx, caller, fileID, target)
}

func (m *mockAccess) ListPermissions(ctx context.Context, caller, fileID string) (*service.Permissions, error) {
	return m.permissionsFn(ctx, caller, fileID)
}

func (m *mockAccess) History(ctx context.Context, caller, fileID string) ([]*model.AuditEntry, error) {
	return m.historyFn(ctx, caller, fileID)
}

type mockTransfer struct {
	uploadFn   func(ctx context.Context, caller string, items []service.UploadItem) ([]*model.FileRecord, error)
	downloadFn func(w http.ResponseWriter, r *http.Request, caller, fileID string) error
	previewFn  func(ctx context.Context, caller, fileID string) (*service.Preview, error)
	deleteFn   func(ctx context.Context, caller, fileID string) (string, error)
}

func (m *mockTransfer) Upload(ctx context.Context, caller string, items []service.UploadItem) ([]*model.FileRecord, error) {
	return m.uploadFn(ctx, caller, items)
}

func (m *mockTransfer) Download(w http.ResponseWriter, r *http.Request, caller, fileID string) error {
	return m.downloadFn(w, r, caller, fileID)
}

func (m *mockTransfer) PreviewURL(ctx context.Context, caller, fileID string) (*service.Preview, error) {
	return m.previewFn(ctx, caller, fileID)
}

func (m *mockTransfer) Delete(ctx context.Context, caller, fileID string) (string, error) {
	return m.deleteFn(ctx, caller, fileID)
}

// --- Стенд ---

// newTestRouter собирает chi router с обработчиками; caller — sub в
// контексте запроса (пустой — без аутентификации).
func newTestRouter(access *mockAccess, transfer *mockTransfer, caller string) http.Handler {
	h := NewAPIHandler(NewHealthHandler(nil, nil), access, transfer,
		UploadLimits{MaxFiles: 3, MaxFileSize: 1 << 20},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if caller != "" {
				req = req.WithContext(middleware.WithClaims(req.Context(), &middleware.AuthClaims{Subject: caller}))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.Mount(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func testRecord(owner string) *model.FileRecord {
	return &model.FileRecord{
		ID:            testFileID,
		OriginalName:  "report.pdf",
		MimeType:      "application/pdf",
		Size:          2048,
		Handle:        model.LocalHandle("report_1700000000_abcd1234.pdf"),
		Owner:         owner,
		AccessControl: model.NewAccessSet(owner, "u-bob"),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// --- Тесты ---

func TestGetFile(t *testing.T) {
	access := &mockAccess{getFn: func(_ context.Context, caller, fileID string) (*model.FileRecord, error) {
		assert.Equal(t, "u-alice", caller)
		assert.Equal(t, testFileID, fileID)
		return testRecord("u-alice"), nil
	}}
	router := newTestRouter(access, &mockTransfer{}, "u-alice")

	rec := do(t, router, http.MethodGet, "/api/v1/files/"+testFileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp fileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "report.pdf", resp.OriginalName)
	assert.True(t, resp.IsOwner)
	assert.Equal(t, 1, resp.SharedWithCount)
	assert.Equal(t, "local", resp.Storage)
}

func TestGetFile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		caller string
		err    error
		status int
		code   string
	}{
		{"нет доступа", "/api/v1/files/" + testFileID, "u-carol", service.ErrAccessDenied, http.StatusForbidden, "ACCESS_DENIED"},
		{"не найден", "/api/v1/files/" + testFileID, "u-carol", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"некорректный UUID", "/api/v1/files/not-a-uuid", "u-carol", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"без аутентификации", "/api/v1/files/" + testFileID, "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := &mockAccess{getFn: func(context.Context, string, string) (*model.FileRecord, error) {
				return nil, tt.err
			}}
			rec := do(t, newTestRouter(access, &mockTransfer{}, tt.caller), http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestListFiles(t *testing.T) {
	access := &mockAccess{listMineFn: func(_ context.Context, caller string) ([]service.FileSummary, error) {
		own := testRecord(caller)
		shared := testRecord("u-bob")
		shared.ID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
		return []service.FileSummary{
			{FileRecord: shared},
			{FileRecord: own, IsOwner: true, SharedWithCount: 1},
		}, nil
	}}
	rec := do(t, newTestRouter(access, &mockTransfer{}, "u-alice"), http.MethodGet, "/api/v1/files", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp fileListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Total)
	assert.False(t, resp.Items[0].IsOwner)
	assert.True(t, resp.Items[1].IsOwner)
}

// multipartBody строит multipart-тело с файлами в поле files.
func multipartBody(t *testing.T, files map[string]string, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFiles(t *testing.T) {
	t.Run("успешная загрузка с определением типа", func(t *testing.T) {
		var got []service.UploadItem
		transfer := &mockTransfer{uploadFn: func(_ context.Context, caller string, items []service.UploadItem) ([]*model.FileRecord, error) {
			assert.Equal(t, "u-alice", caller)
			got = items
			out := make([]*model.FileRecord, 0, len(items))
			for _, it := range items {
				data, err := io.ReadAll(it.Body)
				require.NoError(t, err)
				rec := testRecord(caller)
				rec.OriginalName = it.Name
				rec.Size = int64(len(data))
				out = append(out, rec)
			}
			return out, nil
		}}

		body, ct := multipartBody(t, map[string]string{"doc.pdf": "%PDF-1.4\n%âãÏÓ\n1 0 obj\n"}, "application/octet-stream")
		rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Len(t, got, 1)
		assert.Equal(t, "doc.pdf", got[0].Name)
		assert.Equal(t, "application/pdf", got[0].ContentType)

		var resp uploadResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Files, 1)
		assert.Equal(t, int64(len("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")), resp.Files[0].Size)
	})

	t.Run("тип от клиента сохраняется", func(t *testing.T) {
		transfer := &mockTransfer{uploadFn: func(_ context.Context, caller string, items []service.UploadItem) ([]*model.FileRecord, error) {
			assert.Equal(t, "text/csv", items[0].ContentType)
			return []*model.FileRecord{testRecord(caller)}, nil
		}}
		body, ct := multipartBody(t, map[string]string{"a.csv": "a,b\n1,2\n"}, "text/csv")
		rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("нет файлов", func(t *testing.T) {
		body, ct := multipartBody(t, nil, "")
		rec := do(t, newTestRouter(&mockAccess{}, &mockTransfer{}, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NO_FILES_PROVIDED", errorCode(t, rec))
	})

	t.Run("слишком много файлов", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"1.txt": "1", "2.txt": "2", "3.txt": "3", "4.txt": "4"}, "text/plain")
		rec := do(t, newTestRouter(&mockAccess{}, &mockTransfer{}, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	})

	t.Run("не multipart", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockAccess{}, &mockTransfer{}, "u-alice"), http.MethodPost, "/api/v1/files",
			strings.NewReader(`{}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ошибка валидации сервиса", func(t *testing.T) {
		transfer := &mockTransfer{uploadFn: func(context.Context, string, []service.UploadItem) ([]*model.FileRecord, error) {
			return nil, service.ErrValidation
		}}
		body, ct := multipartBody(t, map[string]string{"run.exe": "MZ"}, "")
		rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	})

	t.Run("частичный успех пакета", func(t *testing.T) {
		storageErr := fmt.Errorf("запись %q в хранилище: %w", "b.txt",
			fmt.Errorf("%w: PutObject uploads/key: SlowDown", service.ErrBackendUnavailable))
		transfer := &mockTransfer{uploadFn: func(_ context.Context, caller string, _ []service.UploadItem) ([]*model.FileRecord, error) {
			return []*model.FileRecord{testRecord(caller)}, &service.BatchError{
				Failures: []service.UploadFailure{{Name: "b.txt", Err: storageErr}},
				Total:    2,
			}
		}}
		body, ct := multipartBody(t, map[string]string{"a.txt": "a", "b.txt": "b"}, "text/plain")
		rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		require.Equal(t, http.StatusMultiStatus, rec.Code)

		var resp uploadResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Files, 1)
		require.Len(t, resp.Failed, 1)
		assert.Equal(t, "b.txt", resp.Failed[0].Name)
		assert.Equal(t, "BACKEND_UNAVAILABLE", resp.Failed[0].Code)
		assert.NotContains(t, resp.Failed[0].Message, "PutObject")
	})

	t.Run("все файлы пакета не сохранены", func(t *testing.T) {
		transfer := &mockTransfer{uploadFn: func(context.Context, string, []service.UploadItem) ([]*model.FileRecord, error) {
			return []*model.FileRecord{}, &service.BatchError{
				Failures: []service.UploadFailure{{Name: "a.txt", Err: fmt.Errorf("%w: timeout", service.ErrBackendUnavailable)}},
				Total:    1,
			}
		}}
		body, ct := multipartBody(t, map[string]string{"a.txt": "a"}, "text/plain")
		rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodPost, "/api/v1/files", body, ct)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(t, rec))
	})
}

func TestShareFile(t *testing.T) {
	t.Run("выдача доступа", func(t *testing.T) {
		access := &mockAccess{grantFn: func(_ context.Context, caller, fileID, email string) (*service.GrantResult, error) {
			assert.Equal(t, "bob@example.com", email)
			return &service.GrantResult{
				File:    testRecord(caller),
				Grantee: model.Identity{ID: "u-bob", Name: "Bob", Email: email},
			}, nil
		}}
		rec := do(t, newTestRouter(access, &mockTransfer{}, "u-alice"), http.MethodPost,
			"/api/v1/files/"+testFileID+"/share", strings.NewReader(`{"email":"bob@example.com"}`), "application/json")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp shareResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Доступ выдан", resp.Message)
		assert.Equal(t, "u-bob", resp.Grantee.ID)
	})

	tests := []struct {
		name string
		body string
	}{
		{"некорректный email", `{"email":"not-an-email"}`},
		{"пустое тело", `{}`},
		{"лишнее поле", `{"email":"bob@example.com","role":"admin"}`},
		{"не JSON", `email=bob`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&mockAccess{}, &mockTransfer{}, "u-alice"), http.MethodPost,
				"/api/v1/files/"+testFileID+"/share", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
		})
	}

	t.Run("пользователь не найден", func(t *testing.T) {
		access := &mockAccess{grantFn: func(context.Context, string, string, string) (*service.GrantResult, error) {
			return nil, service.ErrUserNotFound
		}}
		rec := do(t, newTestRouter(access, &mockTransfer{}, "u-alice"), http.MethodPost,
			"/api/v1/files/"+testFileID+"/share", strings.NewReader(`{"email":"x@example.com"}`), "application/json")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "USER_NOT_FOUND", errorCode(t, rec))
	})
}

func TestShareLinks(t *testing.T) {
	expires := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	access := &mockAccess{
		issueLinkFn: func(context.Context, string, string) (*service.ShareLink, error) {
			return &service.ShareLink{Token: "abc", URL: "https://app.example.com/share/abc", ExpiresAt: expires}, nil
		},
		consumeLinkFn: func(_ context.Context, caller, token string) (*model.FileRecord, error) {
			if token != "abc" {
				return nil, service.ErrLinkInvalidOrExpired
			}
			return testRecord("u-alice"), nil
		},
	}
	router := newTestRouter(access, &mockTransfer{}, "u-carol")

	rec := do(t, router, http.MethodPost, "/api/v1/files/"+testFileID+"/link", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var link linkResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&link))
	assert.Equal(t, "https://app.example.com/share/abc", link.Link)
	assert.True(t, expires.Equal(link.ExpiresAt))

	rec = do(t, router, http.MethodGet, "/api/v1/share/abc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/share/other", nil, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "LINK_INVALID_OR_EXPIRED", errorCode(t, rec))
}

func TestDownloadFile(t *testing.T) {
	transfer := &mockTransfer{downloadFn: func(w http.ResponseWriter, _ *http.Request, caller, fileID string) error {
		switch caller {
		case "u-alice":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hello"))
			return nil
		case "u-gone":
			return service.ErrFileMissingOnDisk
		default:
			return service.ErrAccessDenied
		}
	}}

	rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodGet, "/api/v1/files/"+testFileID+"/download", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	rec = do(t, newTestRouter(&mockAccess{}, transfer, "u-carol"), http.MethodGet, "/api/v1/files/"+testFileID+"/download", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCESS_DENIED", errorCode(t, rec))

	rec = do(t, newTestRouter(&mockAccess{}, transfer, "u-gone"), http.MethodGet, "/api/v1/files/"+testFileID+"/download", nil, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "FILE_MISSING_ON_DISK", errorCode(t, rec))
}

func TestPreviewAndDelete(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	transfer := &mockTransfer{
		previewFn: func(context.Context, string, string) (*service.Preview, error) {
			return &service.Preview{URL: "https://s3.example.com/x?sig", ExpiresAt: &expires, Direct: true}, nil
		},
		deleteFn: func(_ context.Context, caller, fileID string) (string, error) {
			if caller != "u-alice" {
				return "", service.ErrNotAuthorized
			}
			return fileID, nil
		},
	}

	rec := do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodGet, "/api/v1/files/"+testFileID+"/preview", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var preview previewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&preview))
	assert.True(t, preview.Direct)

	rec = do(t, newTestRouter(&mockAccess{}, transfer, "u-bob"), http.MethodDelete, "/api/v1/files/"+testFileID, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_AUTHORIZED", errorCode(t, rec))

	rec = do(t, newTestRouter(&mockAccess{}, transfer, "u-alice"), http.MethodDelete, "/api/v1/files/"+testFileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var del deleteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&del))
	assert.Equal(t, testFileID, del.ID)
}

func TestPermissionsRevokeHistory(t *testing.T) {
	access := &mockAccess{
		permissionsFn: func(context.Context, string, string) (*service.Permissions, error) {
			return &service.Permissions{
				Owner:         model.Identity{ID: "u-alice", Name: "Alice", Email: "alice@example.com"},
				AccessControl: []model.Identity{{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}},
			}, nil
		},
		revokeFn: func(_ context.Context, caller, _, target string) (*service.RevokeResult, error) {
			return &service.RevokeResult{SelfRemoval: caller == target, Removed: true}, nil
		},
		historyFn: func(context.Context, string, string) ([]*model.AuditEntry, error) {
			return []*model.AuditEntry{
				{ID: "2", Action: model.ActionShare, FileID: testFileID, PerformedBy: "u-alice"},
				{ID: "1", Action: model.ActionUpload, FileID: testFileID, PerformedBy: "u-alice"},
			}, nil
		},
	}
	router := newTestRouter(access, &mockTransfer{}, "u-bob")

	rec := do(t, router, http.MethodGet, "/api/v1/files/"+testFileID+"/permissions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var perms permissionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&perms))
	assert.Equal(t, "u-alice", perms.Owner.ID)
	require.Len(t, perms.AccessControl, 1)
	assert.Equal(t, "bob@example.com", perms.AccessControl[0].Email)

	rec = do(t, router, http.MethodDelete, "/api/v1/files/"+testFileID+"/permissions/u-bob", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var revoke revokeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&revoke))
	assert.True(t, revoke.SelfRemoval)
	assert.Equal(t, "Файл убран из вашего списка", revoke.Message)

	rec = do(t, router, http.MethodGet, "/api/v1/files/"+testFileID+"/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history historyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history.Items, 2)
	assert.Equal(t, "SHARE", history.Items[0].Action)
}
