// Package imagestore сохраняет картинки проектов в S3.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI покрывает часть клиента S3, нужную хранилищу.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store загружает картинки в бакет и строит их публичные адреса.
type S3Store struct {
	client  PutObjectAPI
	bucket  string
	region  string
	baseURL string
}

// NewS3Store создаёт хранилище поверх готового клиента. Если baseURL пуст,
// адреса строятся по виртуальному хосту бакета.
func NewS3Store(client PutObjectAPI, bucket, region, baseURL string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// New загружает конфигурацию AWS из окружения и создаёт хранилище.
func New(ctx context.Context, bucket, region, baseURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3Store(s3.NewFromConfig(cfg), bucket, region, baseURL), nil
}

// Upload сохраняет объект под ключом key и возвращает его публичный адрес.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.URL(key), nil
}

// URL возвращает публичный адрес объекта.
func (s *S3Store) URL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
