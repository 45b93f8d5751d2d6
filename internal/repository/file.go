package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
const fileColumns = `id, original_name, mime_type, size,
	storage_kind, storage_path, storage_bucket, storage_key,
	owner_id, access_control, share_token, share_expires_at,
	created_at, updated_at`

// FileRepository — интерфейс доступа к реестру файлов.
//
// Изменения списка доступа и ссылки записываются целиком, без версии
// записи: при конкурентных изменениях побеждает последняя запись.
type FileRepository interface {
	// Create сохраняет новую запись.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по UUID или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// ListAccessible возвращает файлы, где userID — владелец или получатель
	// доступа. Сортировка: новые первыми.
	ListAccessible(ctx context.Context, userID string) ([]*model.FileRecord, error)
	// SetAccessControl перезаписывает список доступа.
	SetAccessControl(ctx context.Context, id string, acl model.AccessSet) error
	// SetShareLink перезаписывает токен и срок публичной ссылки.
	SetShareLink(ctx context.Context, id, token string, expiresAt time.Time) error
	// FindByShareToken ищет файл с токеном, срок которого строго позже now.
	FindByShareToken(ctx context.Context, token string, now time.Time) (*model.FileRecord, error)
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
	// ExistsByHandle сообщает, зарегистрирован ли файл с таким расположением содержимого.
	ExistsByHandle(ctx context.Context, h model.StorageHandle) (bool, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create сохраняет новую запись. CreatedAt/UpdatedAt заполняются из БД.
func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (id, original_name, mime_type, size,
			storage_kind, storage_path, storage_bucket, storage_key,
			owner_id, access_control)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	acl := []string(f.AccessControl)
	if acl == nil {
		acl = []string{}
	}

	err := r.db.QueryRow(ctx, query,
		f.ID, f.OriginalName, f.MimeType, f.Size,
		string(f.Handle.Kind), f.Handle.Path, f.Handle.Bucket, f.Handle.Key,
		f.Owner, acl,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по UUID или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// ListAccessible возвращает файлы владельца и файлы, к которым выдан доступ.
func (r *fileRepo) ListAccessible(ctx context.Context, userID string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE owner_id = $1 OR $1 = ANY(access_control)
		ORDER BY created_at DESC, id`, fileColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// ExistsByHandle сообщает, есть ли запись с таким расположением содержимого.
func (r *fileRepo) ExistsByHandle(ctx context.Context, h model.StorageHandle) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM files
			WHERE storage_kind = $1 AND storage_path = $2
				AND storage_bucket = $3 AND storage_key = $4)`,
		string(h.Kind), h.Path, h.Bucket, h.Key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка поиска файла по расположению: %w", err)
	}
	return exists, nil
}

// SetAccessControl перезаписывает список доступа целиком.
func (r *fileRepo) SetAccessControl(ctx context.Context, id string, acl model.AccessSet) error {
	list := []string(acl)
	if list == nil {
		list = []string{}
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE files SET access_control = $2, updated_at = NOW() WHERE id = $1`,
		id, list,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления списка доступа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetShareLink перезаписывает токен и срок публичной ссылки.
// Предыдущий токен перестаёт совпадать сразу после записи.
func (r *fileRepo) SetShareLink(ctx context.Context, id, token string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE files SET share_token = $2, share_expires_at = $3, updated_at = NOW() WHERE id = $1`,
		id, token, expiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка сохранения публичной ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByShareToken ищет файл по действующему токену.
func (r *fileRepo) FindByShareToken(ctx context.Context, token string, now time.Time) (*model.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE share_token = $1 AND share_expires_at > $2`,
		fileColumns,
	)

	f, err := scanFile(r.db.QueryRow(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска по токену ссылки: %w", err)
	}
	return f, nil
}

// Delete удаляет запись файла.
func (r *fileRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFile читает одну строку files в модель.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	var (
		f    model.FileRecord
		kind string
		acl  []string
	)
	err := row.Scan(
		&f.ID, &f.OriginalName, &f.MimeType, &f.Size,
		&kind, &f.Handle.Path, &f.Handle.Bucket, &f.Handle.Key,
		&f.Owner, &acl, &f.ShareToken, &f.ShareExpiresAt,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Handle.Kind = model.StorageKind(kind)
	f.AccessControl = model.NewAccessSet(acl...)
	return &f, nil
}
