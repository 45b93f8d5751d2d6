// Пакет model — доменные модели сервиса fileshare.
package model

import "time"

// FileRecord — метаданные одного загруженного файла.
// Owner и Handle задаются при создании и больше не меняются.
type FileRecord struct {
	// ID — UUID файла
	ID string
	// OriginalName — имя файла, переданное клиентом
	OriginalName string
	// MimeType — тип содержимого
	MimeType string
	// Size — размер в байтах
	Size int64
	// Handle — расположение содержимого (локальный диск или bucket/key)
	Handle StorageHandle
	// Owner — идентификатор владельца
	Owner string
	// AccessControl — пользователи с правом чтения
	AccessControl AccessSet
	// ShareToken — токен публичной ссылки (nil — ссылка не выпускалась)
	ShareToken *string
	// ShareExpiresAt — момент истечения публичной ссылки
	ShareExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOwner сообщает, является ли userID владельцем файла.
func (f *FileRecord) IsOwner(userID string) bool {
	return userID != "" && f.Owner == userID
}

// SharedWith возвращает получателей доступа без владельца.
// Владелец может присутствовать в AccessControl после загрузки, но
// в подсчётах и списках не учитывается.
func (f *FileRecord) SharedWith() []string {
	return f.AccessControl.Without(f.Owner)
}

// ShareLinkActive сообщает, действует ли публичная ссылка на момент now.
func (f *FileRecord) ShareLinkActive(now time.Time) bool {
	return f.ShareToken != nil && f.ShareExpiresAt != nil && f.ShareExpiresAt.After(now)
}
