package storage

import (
	"bytes"
	"context"
	"extension-portal/config"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// 预签名下载链接有效期
const linkExpires = time.Hour

// S3 S3 兼容对象存储（MinIO、OSS 等）
type S3 struct {
	client       *s3.Client
	uploader     *manager.Uploader
	Bucket       string
	Prefix       string
	Endpoint     string
	BaseURL      string
	UsePathStyle bool
}

func NewS3(ctx context.Context, cfg config.S3) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket 未配置")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("加载 S3 配置失败: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{
		client:       client,
		uploader:     manager.NewUploader(client),
		Bucket:       cfg.Bucket,
		Prefix:       cfg.Prefix,
		Endpoint:     cfg.Endpoint,
		BaseURL:      cfg.BaseURL,
		UsePathStyle: cfg.UsePathStyle,
	}, nil
}

func (s *S3) objectKey(key string) string {
	return strings.TrimLeft(path.Join(strings.Trim(s.Prefix, "/"), key), "/")
}

func (s *S3) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objKey := s.objectKey(key)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(objKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传到 S3 失败: %w", err)
	}
	return s.publicURL(objKey), nil
}

// publicURL 桶公开读时的访问地址
func (s *S3) publicURL(objKey string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.Endpoint, "/")
	}
	if s.UsePathStyle {
		return base + "/" + s.Bucket + "/" + objKey
	}
	return base + "/" + objKey
}

// Link 生成预签名下载地址，私有桶也能访问
func (s *S3) Link(ctx context.Context, key string) (string, error) {
	req, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = linkExpires
	})
	if err != nil {
		return "", fmt.Errorf("生成预签名 URL 失败: %w", err)
	}
	return req.URL, nil
}
