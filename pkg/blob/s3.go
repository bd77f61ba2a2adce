package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DefaultExpiration = 15 * time.Minute

type S3Config struct {
	Endpoint   string
	Region     string
	Key        string
	Secret     string
	Bucket     string
	Expiration time.Duration
}

type S3Storage struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	expiration time.Duration
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("key and secret are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultExpiration
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(strings.TrimSuffix(cfg.Endpoint, "/"+cfg.Bucket))
	}

	client := s3.New(opts)
	return &S3Storage{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		expiration: cfg.Expiration,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, prefix, contentType string, r io.Reader) (Object, error) {
	if r == nil {
		return Object{}, ErrEmptyUpload
	}
	obj := newObject(prefix)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(obj.Path),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", obj.Path, err)
	}
	return obj, nil
}

func (s *S3Storage) URL(ctx context.Context, objectPath string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(s.expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectPath, err)
	}
	return req.URL, nil
}
