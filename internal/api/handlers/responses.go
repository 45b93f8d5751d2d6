package handlers

import (
	"time"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/service"
)

// fileResponse — метаданные файла в ответах API.
// Токен публичной ссылки не отдаётся: он возвращается только при выпуске.
type fileResponse struct {
	ID               string     `json:"id"`
	OriginalName     string     `json:"originalName"`
	MimeType         string     `json:"mimeType"`
	Size             int64      `json:"size"`
	Owner            string     `json:"owner"`
	Storage          string     `json:"storage"`
	IsOwner          bool       `json:"isOwner"`
	SharedWithCount  int        `json:"sharedWithCount"`
	ShareLinkActive  bool       `json:"shareLinkActive"`
	ShareLinkExpires *time.Time `json:"shareLinkExpiresAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func toFileResponse(f *model.FileRecord, caller string) fileResponse {
	resp := fileResponse{
		ID:              f.ID,
		OriginalName:    f.OriginalName,
		MimeType:        f.MimeType,
		Size:            f.Size,
		Owner:           f.Owner,
		Storage:         string(f.Handle.Kind),
		IsOwner:         f.IsOwner(caller),
		SharedWithCount: len(f.SharedWith()),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
	// Срок ссылки видит только владелец
	if resp.IsOwner && f.ShareLinkActive(time.Now()) {
		resp.ShareLinkActive = true
		resp.ShareLinkExpires = f.ShareExpiresAt
	}
	return resp
}

func toFileList(files []*model.FileRecord, caller string) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f, caller))
	}
	return out
}

// fileListResponse — список файлов.
type fileListResponse struct {
	Items []fileResponse `json:"items"`
	Total int            `json:"total"`
}

// uploadResponse — результат загрузки.
type uploadResponse struct {
	Message string                  `json:"message"`
	Files   []fileResponse          `json:"files"`
	Failed  []uploadFailureResponse `json:"failed,omitempty"`
}

// uploadFailureResponse — файл пакета, который не удалось сохранить.
type uploadFailureResponse struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toUploadFailures(failures []service.UploadFailure) []uploadFailureResponse {
	out := make([]uploadFailureResponse, 0, len(failures))
	for _, f := range failures {
		_, code, msg, _ := apierrors.Describe(f.Err)
		out = append(out, uploadFailureResponse{Name: f.Name, Code: code, Message: msg})
	}
	return out
}

// shareRequest — тело POST /files/{file_id}/share.
type shareRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// identityResponse — пользователь с отображаемыми атрибутами.
type identityResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func toIdentity(i model.Identity) identityResponse {
	return identityResponse{ID: i.ID, Name: i.Name, Email: i.Email}
}

// shareResponse — результат выдачи доступа.
type shareResponse struct {
	Message string           `json:"message"`
	Grantee identityResponse `json:"grantee"`
	File    fileResponse     `json:"file"`
}

// linkResponse — выпущенная публичная ссылка.
type linkResponse struct {
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// previewResponse — ссылка для просмотра.
type previewResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Direct    bool       `json:"direct"`
}

// deleteResponse — результат удаления.
type deleteResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// permissionsResponse — владелец и получатели доступа.
type permissionsResponse struct {
	Owner         identityResponse   `json:"owner"`
	AccessControl []identityResponse `json:"accessControl"`
}

func toPermissions(p *service.Permissions) permissionsResponse {
	resp := permissionsResponse{
		Owner:         toIdentity(p.Owner),
		AccessControl: make([]identityResponse, 0, len(p.AccessControl)),
	}
	for _, i := range p.AccessControl {
		resp.AccessControl = append(resp.AccessControl, toIdentity(i))
	}
	return resp
}

// revokeResponse — результат отзыва доступа.
type revokeResponse struct {
	Message     string `json:"message"`
	SelfRemoval bool   `json:"selfRemoval"`
	Removed     bool   `json:"removed"`
}

// auditEntryResponse — запись журнала.
type auditEntryResponse struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	FileID      string    `json:"fileId"`
	PerformedBy string    `json:"performedBy"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// historyResponse — журнал действий над файлом.
type historyResponse struct {
	Items []auditEntryResponse `json:"items"`
}

func toHistory(entries []*model.AuditEntry) historyResponse {
	resp := historyResponse{Items: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, auditEntryResponse{
			ID:          e.ID,
			Action:      string(e.Action),
			FileID:      e.FileID,
			PerformedBy: e.PerformedBy,
			Details:     e.Details,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp
}
