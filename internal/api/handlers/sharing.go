// sharing.go — обработчики выдачи доступа, публичных ссылок, списка
// прав, отзыва доступа и журнала действий.
package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ShareFile — POST /api/v1/files/{file_id}/share {"email": "..."}.
func (h *APIHandler) ShareFile(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req shareRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.access.GrantByEmail(r.Context(), caller, fileID.String(), req.Email)
	if err != nil {
		h.fail(w, err)
		return
	}

	msg := "Доступ выдан"
	if res.AlreadyGranted {
		msg = "Доступ уже был выдан"
	}
	writeJSON(w, http.StatusOK, shareResponse{
		Message: msg,
		Grantee: toIdentity(res.Grantee),
		File:    toFileResponse(res.File, caller),
	})
}

// CreateShareLink — POST /api/v1/files/{file_id}/link.
func (h *APIHandler) CreateShareLink(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	link, err := h.access.IssueShareLink(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, linkResponse{Token: link.Token, Link: link.URL, ExpiresAt: link.ExpiresAt})
}

// ConsumeShareLink — GET /api/v1/share/{token}: доступ к файлу по ссылке.
func (h *APIHandler) ConsumeShareLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	token, ok := bindStringParam(w, r, "token")
	if !ok {
		return
	}

	f, err := h.access.ConsumeShareLink(r.Context(), caller, token)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f, caller))
}

// ListPermissions — GET /api/v1/files/{file_id}/permissions.
func (h *APIHandler) ListPermissions(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	perms, err := h.access.ListPermissions(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPermissions(perms))
}

// RevokeAccess — DELETE /api/v1/files/{file_id}/permissions/{user_id}.
// Владелец отзывает доступ у любого, остальные могут убрать только себя.
func (h *APIHandler) RevokeAccess(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	target, ok := bindStringParam(w, r, "user_id")
	if !ok {
		return
	}

	res, err := h.access.RevokeAccess(r.Context(), caller, fileID.String(), target)
	if err != nil {
		h.fail(w, err)
		return
	}

	msg := "Доступ отозван"
	if res.SelfRemoval {
		msg = "Файл убран из вашего списка"
	}
	writeJSON(w, http.StatusOK, revokeResponse{Message: msg, SelfRemoval: res.SelfRemoval, Removed: res.Removed})
}

// FileHistory — GET /api/v1/files/{file_id}/history, новые первыми.
func (h *APIHandler) FileHistory(w http.ResponseWriter, r *http.Request, fileID openapi_types.UUID) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	entries, err := h.access.History(r.Context(), caller, fileID.String())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistory(entries))
}
