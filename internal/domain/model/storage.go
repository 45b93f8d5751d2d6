package model

// StorageKind — вид хранилища, в котором лежит содержимое файла.
type StorageKind string

const (
	// StorageLocal — локальная файловая система сервиса.
	StorageLocal StorageKind = "local"
	// StorageRemote — S3-совместимое объектное хранилище.
	StorageRemote StorageKind = "remote"
)

// StorageHandle — расположение содержимого файла.
// Вид определяется при записи и хранится явно, при чтении не выводится
// из формы строки.
type StorageHandle struct {
	Kind StorageKind
	// Path — относительный путь в директории данных (для StorageLocal)
	Path string
	// Bucket и Key — расположение объекта (для StorageRemote)
	Bucket string
	Key    string
}

// LocalHandle создаёт handle локального файла.
func LocalHandle(path string) StorageHandle {
	return StorageHandle{Kind: StorageLocal, Path: path}
}

// RemoteHandle создаёт handle объекта в bucket.
func RemoteHandle(bucket, key string) StorageHandle {
	return StorageHandle{Kind: StorageRemote, Bucket: bucket, Key: key}
}

// IsRemote сообщает, расположен ли файл в объектном хранилище.
func (h StorageHandle) IsRemote() bool {
	return h.Kind == StorageRemote
}

// String возвращает читаемое представление для логов.
func (h StorageHandle) String() string {
	if h.IsRemote() {
		return "s3://" + h.Bucket + "/" + h.Key
	}
	return "local:" + h.Path
}
