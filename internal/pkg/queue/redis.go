package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pages-cd/internal/pkg/config"
)

// BuildQueue 基于 Redis 列表的构建队列, 构建执行器从队首消费构建ID
type BuildQueue struct {
	client *redis.Client
	key    string
}

// NewBuildQueue 连接 Redis 并创建构建队列
func NewBuildQueue(cfg *config.RedisConfig) (*BuildQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return &BuildQueue{client: client, key: cfg.BuildQueue}, nil
}

// Enqueue 构建入队
func (q *BuildQueue) Enqueue(ctx context.Context, buildID int64) error {
	if err := q.client.RPush(ctx, q.key, strconv.FormatInt(buildID, 10)).Err(); err != nil {
		return fmt.Errorf("构建入队失败 build@id=%d: %w", buildID, err)
	}
	return nil
}

// Remove 从队列中移除构建, 返回是否存在
func (q *BuildQueue) Remove(ctx context.Context, buildID int64) (bool, error) {
	n, err := q.client.LRem(ctx, q.key, 0, strconv.FormatInt(buildID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("构建出队失败 build@id=%d: %w", buildID, err)
	}
	return n > 0, nil
}

// Len 队列长度
func (q *BuildQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Ping 健康检查
func (q *BuildQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close 关闭连接
func (q *BuildQueue) Close() error {
	return q.client.Close()
}
