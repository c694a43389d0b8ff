package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pages-cd/internal/pkg/config"
)

// ObjectPutter s3.Client 的上传子集
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LogStore 构建日志归档存储
type LogStore struct {
	client        ObjectPutter
	defaultBucket string
}

// NewLogStore 按配置创建 S3 客户端, 凭证走 AWS 默认链
func NewLogStore(ctx context.Context, cfg *config.StorageConfig) (*LogStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewLogStoreWithClient(client, cfg.Bucket), nil
}

// NewLogStoreWithClient 使用已有客户端
func NewLogStoreWithClient(client ObjectPutter, defaultBucket string) *LogStore {
	return &LogStore{client: client, defaultBucket: defaultBucket}
}

// PutLog 上传日志文本, bucket 为空时使用默认 bucket, 返回实际写入的 bucket
func (s *LogStore) PutLog(ctx context.Context, bucket, key string, body []byte) (string, error) {
	if bucket == "" {
		bucket = s.defaultBucket
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("text/plain; charset=utf-8"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("上传日志失败 s3://%s/%s: %w", bucket, key, err)
	}
	return bucket, nil
}
