package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// ParseLegacyHandle преобразует расположение файла из старого формата
// (одна строка) в model.StorageHandle.
//
// Поддерживаемые формы:
//   - https://host/bucket/key%20name (path-style)
//   - https://bucket.s3.region.amazonaws.com/key%20name (virtual-hosted)
//   - путь на диске, абсолютный или относительный; если он лежит внутри
//     localRoot, результат берётся относительно localRoot
//
// Ключ объекта декодируется из URL один раз.
func ParseLegacyHandle(raw, localRoot string) (model.StorageHandle, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.StorageHandle{}, fmt.Errorf("пустое расположение файла")
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return parseLegacyURL(raw)
	}
	return parseLegacyPath(raw, localRoot)
}

func parseLegacyURL(raw string) (model.StorageHandle, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return model.StorageHandle{}, fmt.Errorf("некорректный URL %q: %w", raw, err)
	}

	escaped := strings.TrimPrefix(u.EscapedPath(), "/")
	host := u.Hostname()

	var bucket, escapedKey string
	if i := strings.Index(host, ".s3"); i > 0 {
		bucket = host[:i]
		escapedKey = escaped
	} else {
		var ok bool
		bucket, escapedKey, ok = strings.Cut(escaped, "/")
		if !ok {
			return model.StorageHandle{}, fmt.Errorf("в URL %q нет ключа объекта", raw)
		}
	}

	key, err := url.PathUnescape(escapedKey)
	if err != nil {
		return model.StorageHandle{}, fmt.Errorf("декодирование ключа %q: %w", escapedKey, err)
	}
	if bucket == "" || key == "" {
		return model.StorageHandle{}, fmt.Errorf("в URL %q нет bucket или ключа", raw)
	}
	return model.RemoteHandle(bucket, key), nil
}

func parseLegacyPath(raw, localRoot string) (model.StorageHandle, error) {
	p := filepath.Clean(filepath.FromSlash(raw))

	if localRoot != "" {
		root := filepath.Clean(localRoot)
		if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
			p = rel
		} else if rootBase := filepath.Base(root); strings.HasPrefix(p, rootBase+string(filepath.Separator)) {
			// Относительный путь вида uploads/name при корне ./uploads
			p = strings.TrimPrefix(p, rootBase+string(filepath.Separator))
		}
	}

	if !filepath.IsLocal(p) {
		return model.StorageHandle{}, fmt.Errorf("путь %q вне директории данных", raw)
	}
	return model.LocalHandle(path.Clean(filepath.ToSlash(p))), nil
}
