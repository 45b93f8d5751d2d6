package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// AuditRepository — журнал аудита (только добавление и чтение).
type AuditRepository interface {
	// Insert добавляет запись. ID и CreatedAt должны быть заполнены.
	Insert(ctx context.Context, e *model.AuditEntry) error
	// ListByFile возвращает записи по файлу, новые первыми.
	ListByFile(ctx context.Context, fileID string) ([]*model.AuditEntry, error)
}

// auditRepo — реализация AuditRepository через pgx.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (id, action, file_id, performed_by, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, string(e.Action), e.FileID, e.PerformedBy, e.Details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал аудита: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByFile(ctx context.Context, fileID string) ([]*model.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, action, file_id, performed_by, details, created_at
		FROM audit_log
		WHERE file_id = $1
		ORDER BY created_at DESC, id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала аудита: %w", err)
	}
	defer rows.Close()

	result := make([]*model.AuditEntry, 0)
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.FileID, &e.PerformedBy, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		e.Action = model.AuditAction(action)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации журнала аудита: %w", err)
	}
	return result, nil
}
