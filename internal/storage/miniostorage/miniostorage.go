// Package miniostorage keeps uploaded photos and signed results in a MinIO bucket
package miniostorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
)

var (
	ErrNilReader      = errors.New("nil reader passed to storage.Put")
	ErrObjectNotFound = errors.New("object not found in storage")
)

const defaultPort = "9000"

type MinioPhotoStorage struct {
	bucket string
	client *minio.Client
}

// Settings are read from BUCKET_NAME, MINIO_USER, MINIO_PASS, MINIO_CONTAINER_NAME and
// MINIO_PORT.
type Settings struct {
	Bucket   string
	User     string
	Password string
	Host     string
	Port     string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{
		Bucket:   cfg.GetString("BUCKET_NAME"),
		User:     cfg.GetString("MINIO_USER"),
		Password: cfg.GetString("MINIO_PASS"),
		Host:     cfg.GetString("MINIO_CONTAINER_NAME"),
		Port:     cfg.GetString("MINIO_PORT"),
	}
	if s.Bucket == "" {
		s.Bucket = "photos"
		log.Printf("Bucket name is empty. Using default value %q...", s.Bucket)
	}
	if s.Port == "" {
		s.Port = defaultPort
	}
	return s
}

func NewMinioClient(ctx context.Context, s Settings) (*MinioPhotoStorage, error) {
	// подключаемся к минио - создаем клиента
	strg, err := minio.New(net.JoinHostPort(s.Host, s.Port), &minio.Options{
		Creds:  credentials.NewStaticV4(s.User, s.Password, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, s.Bucket); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %q: %w", s.Bucket, err)
	}

	return &MinioPhotoStorage{bucket: s.Bucket, client: strg}, nil
}

func (s *MinioPhotoStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return ErrNilReader
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

// Delete removes the object; a missing key is not an error.
func (s *MinioPhotoStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *MinioPhotoStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// GetObject ленивый, реальный запрос уходит на Stat
	resStat, err := res.Stat()
	if err != nil {
		_ = res.Close()
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
