package model

import "time"

// AuditAction — действие, фиксируемое в журнале аудита.
type AuditAction string

// Закрытый набор действий.
const (
	ActionUpload   AuditAction = "UPLOAD"
	ActionDownload AuditAction = "DOWNLOAD"
	ActionShare    AuditAction = "SHARE"
	ActionDelete   AuditAction = "DELETE"
	ActionRevoke   AuditAction = "REVOKE"
)

// Valid проверяет принадлежность действия закрытому набору.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionUpload, ActionDownload, ActionShare, ActionDelete, ActionRevoke:
		return true
	}
	return false
}

// AuditEntry — запись журнала аудита. Не изменяется и не удаляется.
// FileID может ссылаться на уже удалённый файл.
type AuditEntry struct {
	ID          string
	Action      AuditAction
	FileID      string
	PerformedBy string
	Details     string
	CreatedAt   time.Time
}
