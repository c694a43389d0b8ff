package outcome

import "errors"

var errNoReason = errors.New("rejected without reason")

// Outcome 一个独立子任务的结果: 成功时携带值, 失败时携带原因
type Outcome[T any] struct {
	value  T
	reason error
}

// Fulfilled 成功结果
func Fulfilled[T any](value T) Outcome[T] {
	return Outcome[T]{value: value}
}

// Rejected 失败结果
func Rejected[T any](reason error) Outcome[T] {
	if reason == nil {
		reason = errNoReason
	}
	return Outcome[T]{reason: reason}
}

// From 由 (值, 错误) 构造结果
func From[T any](value T, err error) Outcome[T] {
	if err != nil {
		return Rejected[T](err)
	}
	return Fulfilled(value)
}

func (o Outcome[T]) IsFulfilled() bool {
	return o.reason == nil
}

func (o Outcome[T]) Value() T {
	return o.value
}

// Reason 失败原因, 成功时为 nil
func (o Outcome[T]) Reason() error {
	return o.reason
}

// Keyed 带关联标识的结果, 用于在错误信息中回溯到原始对象
type Keyed[K any, T any] struct {
	Key     K
	Outcome Outcome[T]
}

// Unzip 拆分为平行的标识和结果序列
func Unzip[K any, T any](items []Keyed[K, T]) ([]K, []Outcome[T]) {
	keys := make([]K, len(items))
	results := make([]Outcome[T], len(items))
	for i, item := range items {
		keys[i] = item.Key
		results[i] = item.Outcome
	}
	return keys, results
}
