package outcome

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Settle 并发执行 fn, 等待全部完成后按 keys 顺序返回结果.
// 单个失败或 panic 不会中断其他子任务, limit <= 0 表示不限制并发.
func Settle[K any, T any](ctx context.Context, keys []K, limit int, fn func(ctx context.Context, key K) (T, error)) []Keyed[K, T] {
	results := make([]Keyed[K, T], len(keys))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range keys {
		g.Go(func() error {
			results[i] = Keyed[K, T]{Key: key, Outcome: settleOne(ctx, key, fn)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func settleOne[K any, T any](ctx context.Context, key K, fn func(ctx context.Context, key K) (T, error)) (result Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = Rejected[T](fmt.Errorf("panic: %v", r))
		}
	}()
	return From(fn(ctx, key))
}

// Values 提取成功结果
func Values[K any, T any](items []Keyed[K, T]) []T {
	values := make([]T, 0, len(items))
	for _, item := range items {
		if item.Outcome.IsFulfilled() {
			values = append(values, item.Outcome.Value())
		}
	}
	return values
}
