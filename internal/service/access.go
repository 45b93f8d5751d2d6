// access.go — управление доступом к файлам: выдача доступа по email,
// публичные ссылки, отзыв доступа, список прав и история.
//
// Права проверяются при каждом вызове по текущему состоянию записи в БД.
// Изменение списка доступа — read-modify-write без версии записи:
// при конкурентных изменениях побеждает последняя запись.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/audit"
	"github.com/bigkaa/fileshare/internal/domain/access"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/identity"
	"github.com/bigkaa/fileshare/internal/repository"
)

// shareTokenBytes — длина токена публичной ссылки (256 бит).
const shareTokenBytes = 32

// Prometheus-метрики публичных ссылок.
var (
	shareLinksIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_share_links_issued_total",
		Help: "Количество выпущенных публичных ссылок.",
	})
	shareLinksConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_share_links_consumed_total",
		Help: "Количество обращений по публичным ссылкам (по результату).",
	}, []string{"result"})
)

// FileSummary — файл в списке «мои файлы».
type FileSummary struct {
	*model.FileRecord
	// IsOwner — вызывающий является владельцем
	IsOwner bool
	// SharedWithCount — число получателей доступа без владельца
	SharedWithCount int
}

// GrantResult — результат выдачи доступа по email.
type GrantResult struct {
	File    *model.FileRecord
	Grantee model.Identity
	// AlreadyGranted — доступ уже был, запись не менялась
	AlreadyGranted bool
}

// ShareLink — выпущенная публичная ссылка.
type ShareLink struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

// RevokeResult — результат отзыва доступа.
type RevokeResult struct {
	File *model.FileRecord
	// SelfRemoval — пользователь убрал файл из своего списка сам
	SelfRemoval bool
	// Removed — пользователь присутствовал в списке доступа
	Removed bool
}

// Permissions — владелец и получатели доступа с отображаемыми атрибутами.
type Permissions struct {
	Owner         model.Identity
	AccessControl []model.Identity
}

// AccessConfig — параметры AccessService.
type AccessConfig struct {
	// PublicBaseURL — база публичных ссылок: {base}/share/{token}
	PublicBaseURL string
	// ShareLinkTTL — время жизни ссылки
	ShareLinkTTL time.Duration
}

// AccessService — движок управления доступом.
type AccessService struct {
	files    repository.FileRepository
	users    IdentityResolver
	recorder audit.Recorder
	history  AuditHistory
	cfg      AccessConfig
	logger   *slog.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewAccessService создаёт движок управления доступом.
func NewAccessService(
	files repository.FileRepository,
	users IdentityResolver,
	recorder audit.Recorder,
	history AuditHistory,
	cfg AccessConfig,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		files:    files,
		users:    users,
		recorder: recorder,
		history:  history,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "access_service")),
		now:      time.Now,
		newToken: randomToken,
	}
}

// Get возвращает метаданные файла, если вызывающий может его читать.
func (s *AccessService) Get(ctx context.Context, caller, fileID string) (*model.FileRecord, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(caller, f) {
		return nil, ErrAccessDenied
	}
	return f, nil
}

// ListMine возвращает файлы, которыми caller владеет или к которым
// имеет доступ. Новые первыми.
func (s *AccessService) ListMine(ctx context.Context, caller string) ([]FileSummary, error) {
	files, err := s.files.ListAccessible(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("получение списка файлов: %w", err)
	}

	result := make([]FileSummary, 0, len(files))
	for _, f := range files {
		result = append(result, FileSummary{
			FileRecord:      f,
			IsOwner:         f.IsOwner(caller),
			SharedWithCount: len(f.SharedWith()),
		})
	}
	return result, nil
}

// GrantByEmail выдаёт доступ пользователю с указанным email.
// Повторная выдача — успешный no-op без записи в журнал.
func (s *AccessService) GrantByEmail(ctx context.Context, caller, fileID, email string) (*GrantResult, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanManage(caller, f) {
		return nil, ErrNotAuthorized
	}

	grantee, err := s.users.ResolveEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("поиск получателя доступа: %w", err)
	}

	if f.IsOwner(grantee.ID) {
		return &GrantResult{File: f, Grantee: grantee, AlreadyGranted: true}, nil
	}

	acl, added := f.AccessControl.Add(grantee.ID)
	if !added {
		return &GrantResult{File: f, Grantee: grantee, AlreadyGranted: true}, nil
	}

	if err := s.saveAccessControl(ctx, f, acl); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, model.ActionShare, f.ID, caller, "shared with "+grantee.Email)
	s.logger.Info("Доступ выдан",
		slog.String("file_id", f.ID),
		slog.String("grantee", grantee.ID),
	)

	return &GrantResult{File: f, Grantee: grantee}, nil
}

// IssueShareLink выпускает публичную ссылку, заменяя предыдущую.
func (s *AccessService) IssueShareLink(ctx context.Context, caller, fileID string) (*ShareLink, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanManage(caller, f) {
		return nil, ErrNotAuthorized
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("генерация токена ссылки: %w", err)
	}
	expiresAt := s.now().Add(s.cfg.ShareLinkTTL).UTC()

	if err := s.files.SetShareLink(ctx, f.ID, token, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("сохранение ссылки: %w", err)
	}

	shareLinksIssuedTotal.Inc()
	s.recorder.Record(ctx, model.ActionShare, f.ID, caller, "public link issued, expires "+expiresAt.Format(time.RFC3339))

	return &ShareLink{
		Token:     token,
		URL:       s.cfg.PublicBaseURL + "/share/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ConsumeShareLink открывает файл по публичной ссылке и добавляет
// вызывающего в список доступа. Токен остаётся действительным до
// истечения срока или перевыпуска.
func (s *AccessService) ConsumeShareLink(ctx context.Context, caller, token string) (*model.FileRecord, error) {
	if token == "" {
		shareLinksConsumedTotal.WithLabelValues("invalid").Inc()
		return nil, ErrLinkInvalidOrExpired
	}

	f, err := s.files.FindByShareToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			shareLinksConsumedTotal.WithLabelValues("invalid").Inc()
			return nil, ErrLinkInvalidOrExpired
		}
		return nil, fmt.Errorf("поиск файла по ссылке: %w", err)
	}

	if access.CanRead(caller, f) {
		shareLinksConsumedTotal.WithLabelValues("already_granted").Inc()
		return f, nil
	}

	acl, _ := f.AccessControl.Add(caller)
	if err := s.saveAccessControl(ctx, f, acl); err != nil {
		return nil, err
	}

	shareLinksConsumedTotal.WithLabelValues("granted").Inc()
	s.recorder.Record(ctx, model.ActionShare, f.ID, caller, "access gained via public link")

	return f, nil
}

// RevokeAccess убирает target из списка доступа. Владелец может убрать
// любого, остальные — только себя.
func (s *AccessService) RevokeAccess(ctx context.Context, caller, fileID, target string) (*RevokeResult, error) {
	f, err := loadFile(ctx, s.files, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanRevoke(caller, f, target) {
		return nil, ErrNotAuthorized
	}

	result := &RevokeResult{File: f, SelfRemoval: caller == target}

	acl, removed := f.AccessControl.Remove(target)
	if !removed {
		return result, nil
	}

	if err := s.saveAccessControl(ctx, f, acl); err != nil {
		return nil, err
	}
	result.Removed = true

	details := "access revoked from " + target
	if result.SelfRemoval {
		details = "removed from own list"
	}
	s.recorder.Record(ctx, model.ActionRevoke, f.ID, caller, details)

	return result, nil
}

// ListPermissions возвращает владельца и получателей доступа.
func (s *AccessService) ListPermissions(ctx context.Context, caller, fileID string) (*Permissions, error) {
	f, err := s.Get(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}

	ids := append([]string{f.Owner}, f.SharedWith()...)
	people, err := s.users.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("получение атрибутов пользователей: %w", err)
	}

	return &Permissions{
		Owner:         people[0],
		AccessControl: people[1:],
	}, nil
}

// History возвращает журнал действий над файлом, новые первыми.
func (s *AccessService) History(ctx context.Context, caller, fileID string) ([]*model.AuditEntry, error) {
	if _, err := s.Get(ctx, caller, fileID); err != nil {
		return nil, err
	}

	entries, err := s.history.History(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("чтение журнала аудита: %w", err)
	}
	return entries, nil
}

// saveAccessControl записывает список доступа и обновляет запись в памяти.
func (s *AccessService) saveAccessControl(ctx context.Context, f *model.FileRecord, acl model.AccessSet) error {
	if err := s.files.SetAccessControl(ctx, f.ID, acl); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("сохранение списка доступа: %w", err)
	}
	f.AccessControl = acl
	f.UpdatedAt = s.now().UTC()
	return nil
}

// randomToken генерирует криптографически случайный токен (hex).
func randomToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
