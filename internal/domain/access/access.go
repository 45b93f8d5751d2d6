// Пакет access — правила авторизации операций над файлом.
// Решение принимается по текущему состоянию записи, переданной вызывающим:
// никаких кэшей прав и снимков сессии.
package access

import "github.com/bigkaa/fileshare/internal/domain/model"

// CanRead — чтение, скачивание, preview, история, список прав.
// Разрешено владельцу и пользователям из AccessControl.
func CanRead(caller string, f *model.FileRecord) bool {
	if caller == "" || f == nil {
		return false
	}
	return f.IsOwner(caller) || f.AccessControl.Contains(caller)
}

// CanManage — удаление, выдача доступа, выпуск ссылки.
// Разрешено только владельцу.
func CanManage(caller string, f *model.FileRecord) bool {
	if f == nil {
		return false
	}
	return f.IsOwner(caller)
}

// CanRevoke — отзыв доступа у target. Владелец может отозвать доступ
// у любого, остальные — только у себя.
func CanRevoke(caller string, f *model.FileRecord, target string) bool {
	if caller == "" || f == nil {
		return false
	}
	return f.IsOwner(caller) || caller == target
}
