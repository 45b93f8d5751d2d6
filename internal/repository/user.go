package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// UserRepository — справочник пользователей.
type UserRepository interface {
	// Upsert создаёт или обновляет пользователя по ID.
	// ErrConflict — email уже занят другим пользователем.
	Upsert(ctx context.Context, u model.Identity) error
	// GetByEmail ищет пользователя по email без учёта регистра.
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// ListByIDs возвращает найденных пользователей; отсутствующие пропускаются.
	ListByIDs(ctx context.Context, ids []string) ([]model.Identity, error)
}

// userRepo — реализация UserRepository через pgx.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Upsert(ctx context.Context, u model.Identity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = NOW()
		WHERE users.name IS DISTINCT FROM EXCLUDED.name
		   OR users.email IS DISTINCT FROM EXCLUDED.email`,
		u.ID, u.Name, u.Email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка сохранения пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var u model.Identity
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email FROM users WHERE LOWER(email) = LOWER($1) AND email <> ''`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска пользователя по email: %w", err)
	}
	return &u, nil
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Identity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	defer rows.Close()

	result := make([]model.Identity, 0, len(ids))
	for rows.Next() {
		var u model.Identity
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации пользователей: %w", err)
	}
	return result, nil
}
