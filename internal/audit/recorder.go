// Пакет audit — журнал действий над файлами.
//
// Запись выполняется по принципу best-effort: ошибка сохранения
// логируется и учитывается в метрике, но вызывающему не возвращается
// и основную операцию не прерывает.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
)

// writeTimeout — предельное время записи одной записи журнала.
const writeTimeout = 5 * time.Second

var writeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fs_audit_write_failures_total",
	Help: "Количество записей аудита, которые не удалось сохранить.",
}, []string{"action"})

// Recorder — журнал аудита. Сигнатура без ошибки: сбой записи не
// может прервать операцию, вызвавшую Record.
type Recorder interface {
	Record(ctx context.Context, action model.AuditAction, fileID, performedBy, details string)
}

// Journal — реализация Recorder поверх AuditRepository.
type Journal struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewJournal создаёт журнал аудита.
func NewJournal(repo repository.AuditRepository, logger *slog.Logger) *Journal {
	return &Journal{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit")),
		now:    time.Now,
	}
}

// Record сохраняет запись. Отмена контекста запроса (клиент отключился)
// запись не прерывает.
func (j *Journal) Record(ctx context.Context, action model.AuditAction, fileID, performedBy, details string) {
	defer func() {
		if p := recover(); p != nil {
			j.fail(action, fileID, fmt.Errorf("panic: %v", p))
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	entry := &model.AuditEntry{
		ID:          uuid.NewString(),
		Action:      action,
		FileID:      fileID,
		PerformedBy: performedBy,
		Details:     details,
		CreatedAt:   j.now().UTC(),
	}

	if err := j.repo.Insert(ctx, entry); err != nil {
		j.fail(action, fileID, err)
		return
	}

	j.logger.Debug("Запись аудита сохранена",
		slog.String("action", string(action)),
		slog.String("file_id", fileID),
		slog.String("performed_by", performedBy),
	)
}

// History возвращает записи журнала по файлу, новые первыми.
func (j *Journal) History(ctx context.Context, fileID string) ([]*model.AuditEntry, error) {
	return j.repo.ListByFile(ctx, fileID)
}

func (j *Journal) fail(action model.AuditAction, fileID string, err error) {
	writeFailuresTotal.WithLabelValues(string(action)).Inc()
	j.logger.Error("Не удалось сохранить запись аудита",
		slog.String("action", string(action)),
		slog.String("file_id", fileID),
		slog.String("error", err.Error()),
	)
}
