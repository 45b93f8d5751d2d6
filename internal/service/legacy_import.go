// legacy_import.go — перенос записей из выгрузки старого реестра файлов
// (JSON Lines: по одному документу на строку) в таблицу files.
package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage"
)

// maxLegacyLine — предельная длина строки выгрузки.
const maxLegacyLine = 1 << 20

// legacyFile — документ старого реестра.
type legacyFile struct {
	OriginalName   string     `json:"originalName"`
	MimeType       string     `json:"mimeType"`
	Size           int64      `json:"size"`
	Path           string     `json:"path"`
	Owner          string     `json:"owner"`
	AccessControl  []string   `json:"accessControl"`
	ShareToken     *string    `json:"shareToken"`
	ShareExpiresAt *time.Time `json:"shareExpiresAt"`
}

// ImportStats — итог импорта.
type ImportStats struct {
	Imported int
	Skipped  int
	// Existing — документы, чьё содержимое уже зарегистрировано (повторный импорт)
	Existing int
}

// LegacyImporter — импорт выгрузки старого реестра.
type LegacyImporter struct {
	files     repository.FileRepository
	localRoot string
	logger    *slog.Logger
	now       func() time.Time
}

// NewLegacyImporter создаёт импортёр. localRoot — директория, относительно
// которой разбираются локальные пути старого реестра.
func NewLegacyImporter(files repository.FileRepository, localRoot string, logger *slog.Logger) *LegacyImporter {
	return &LegacyImporter{
		files:     files,
		localRoot: localRoot,
		logger:    logger.With(slog.String("component", "legacy_import")),
		now:       time.Now,
	}
}

// Import читает выгрузку из r. Некорректные строки пропускаются с
// записью в лог; ошибка БД прерывает импорт. Документы, содержимое
// которых уже зарегистрировано, не создаются повторно, поэтому импорт
// можно перезапускать после сбоя.
func (im *LegacyImporter) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLegacyLine)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		f, err := im.convert(raw)
		if err != nil {
			stats.Skipped++
			im.logger.Warn("Строка выгрузки пропущена",
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}

		exists, err := im.files.ExistsByHandle(ctx, f.Handle)
		if err != nil {
			return stats, fmt.Errorf("строка %d: %w", line, err)
		}
		if exists {
			stats.Existing++
			continue
		}

		if err := im.files.Create(ctx, f); err != nil {
			return stats, fmt.Errorf("строка %d: %w", line, err)
		}
		if f.ShareLinkActive(im.now()) {
			if err := im.files.SetShareLink(ctx, f.ID, *f.ShareToken, *f.ShareExpiresAt); err != nil {
				return stats, fmt.Errorf("строка %d: перенос ссылки: %w", line, err)
			}
		}
		stats.Imported++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("чтение выгрузки: %w", err)
	}

	im.logger.Info("Импорт завершён",
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("existing", stats.Existing),
	)
	return stats, nil
}

// convert превращает документ старого реестра в FileRecord.
func (im *LegacyImporter) convert(raw []byte) (*model.FileRecord, error) {
	var doc legacyFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("разбор JSON: %w", err)
	}
	if doc.Owner == "" || doc.OriginalName == "" {
		return nil, fmt.Errorf("нет владельца или имени файла")
	}
	if doc.Size < 0 {
		return nil, fmt.Errorf("отрицательный размер %d", doc.Size)
	}

	handle, err := storage.ParseLegacyHandle(doc.Path, im.localRoot)
	if err != nil {
		return nil, err
	}

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = defaultContentType
	}

	f := &model.FileRecord{
		ID:            uuid.NewString(),
		OriginalName:  doc.OriginalName,
		MimeType:      mimeType,
		Size:          doc.Size,
		Handle:        handle,
		Owner:         doc.Owner,
		AccessControl: model.NewAccessSet(doc.AccessControl...),
	}
	if doc.ShareToken != nil && *doc.ShareToken != "" && doc.ShareExpiresAt != nil {
		f.ShareToken = doc.ShareToken
		f.ShareExpiresAt = doc.ShareExpiresAt
	}
	return f, nil
}
