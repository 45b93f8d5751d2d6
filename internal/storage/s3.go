package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// S3Config — параметры подключения к S3-совместимому хранилищу.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
	// MaxRetries — число попыток на запрос (0 — 5)
	MaxRetries int
}

// S3API — используемое подмножество *s3.Client.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3PresignAPI — используемое подмножество *s3.PresignClient.
type S3PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store — хранение файлов в bucket S3-совместимого хранилища.
type S3Store struct {
	client    S3API
	presigner S3PresignAPI
	bucket    string
	keyPrefix string
}

// NewS3Client создаёт клиента S3 по конфигурации.
// Если задан Endpoint (MinIO, Localstack, R2), включается path-style адресация.
// Если ключи не заданы, используется стандартная цепочка учётных данных AWS.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}

	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
		awsConfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxRetries
			})
		}),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// NewS3Store создаёт S3Store поверх готового клиента.
func NewS3Store(client *s3.Client, bucket, keyPrefix string) *S3Store {
	return NewS3StoreWithAPI(client, s3.NewPresignClient(client), bucket, keyPrefix)
}

// NewS3StoreWithAPI создаёт S3Store с произвольными реализациями API.
// Используется в тестах.
func NewS3StoreWithAPI(client S3API, presigner S3PresignAPI, bucket, keyPrefix string) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

// Kind возвращает model.StorageRemote.
func (s *S3Store) Kind() model.StorageKind {
	return model.StorageRemote
}

// Put загружает объект с ключом {prefix}/{uuid}/{name}.
// Если size неизвестен, возвращаемый Size равен 0.
func (s *S3Store) Put(ctx context.Context, r io.Reader, size int64, name, contentType string) (*PutResult, error) {
	key := s.objectKey(name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, classifyS3Error("PutObject", key, err)
	}

	result := &PutResult{Handle: model.RemoteHandle(s.bucket, key)}
	if size > 0 {
		result.Size = size
	}
	return result, nil
}

// Open запрашивает объект, пробрасывая Range в хранилище.
func (s *S3Store) Open(ctx context.Context, h model.StorageHandle, rangeHeader string) (*Object, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(h.Bucket),
		Key:    aws.String(h.Key),
	}
	if rangeHeader != "" {
		input.Range = aws.String(rangeHeader)
	}

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, classifyS3Error("GetObject", h.Key, err)
	}

	obj := &Object{
		Body:         out.Body,
		Size:         aws.ToInt64(out.ContentLength),
		ContentRange: aws.ToString(out.ContentRange),
		ETag:         aws.ToString(out.ETag),
		ModTime:      aws.ToTime(out.LastModified),
	}
	obj.Partial = obj.ContentRange != ""
	return obj, nil
}

// Delete удаляет объект. S3 не сообщает об отсутствии ключа при удалении.
func (s *S3Store) Delete(ctx context.Context, h model.StorageHandle) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.Bucket),
		Key:    aws.String(h.Key),
	})
	if err != nil {
		err = classifyS3Error("DeleteObject", h.Key, err)
		if errors.Is(err, ErrObjectNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Stat возвращает размер объекта через HeadObject.
func (s *S3Store) Stat(ctx context.Context, h model.StorageHandle) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.Bucket),
		Key:    aws.String(h.Key),
	})
	if err != nil {
		return 0, classifyS3Error("HeadObject", h.Key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Ping проверяет доступность bucket через HeadBucket.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return classifyS3Error("HeadBucket", s.bucket, err)
	}
	return nil
}

// PresignGet выдаёт временный URL на чтение объекта.
// filename попадает в Content-Disposition ответа хранилища.
func (s *S3Store) PresignGet(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(h.Bucket),
		Key:    aws.String(h.Key),
	}
	if filename != "" {
		input.ResponseContentDisposition = aws.String(
			mime.FormatMediaType("inline", map[string]string{"filename": filename}),
		)
	}

	req, err := s.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("подпись URL для %s: %w", h.Key, err)
	}
	return req.URL, nil
}

// objectKey строит ключ объекта. Имя файла сохраняется как есть
// (включая пробелы): ключ хранится в handle и не разбирается из URL.
func (s *S3Store) objectKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return path.Join(s.keyPrefix, uuid.NewString(), base)
}

// classifyS3Error приводит ошибки SDK к ошибкам пакета.
func classifyS3Error(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrObjectNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrObjectNotFound
		case "InvalidRange":
			return ErrInvalidRange
		case "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s %s: %w", op, key, err)
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusRequestedRangeNotSatisfiable {
		return ErrInvalidRange
	}

	return fmt.Errorf("%s %s: %w: %w", op, key, ErrUnavailable, err)
}
