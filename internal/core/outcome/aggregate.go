package outcome

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Failure 单个失败子任务
type Failure struct {
	Key    string
	Reason error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Key, f.Reason)
}

// Template 批量任务失败时的消息模板
type Template interface {
	Message(fulfilled, rejected int, failures []Failure) string
}

// Summary 只输出计数: "<Verb> with <F> successes and <R> failures."
type Summary struct {
	Verb string
}

func (t Summary) Message(fulfilled, rejected int, _ []Failure) string {
	return fmt.Sprintf("%s with %d successes and %d failures.", t.Verb, fulfilled, rejected)
}

// Detailed 输出每个失败项: "<R> <Noun> could not be <Verb>:\n<key>: <reason>"
type Detailed struct {
	Noun string
	Verb string
}

func (t Detailed) Message(_, rejected int, failures []Failure) string {
	return fmt.Sprintf("%d %s could not be %s:\n%s", rejected, t.Noun, t.Verb, joinFailures(failures))
}

// DailyArchive 每日日志归档
type DailyArchive struct {
	Date time.Time
}

func (t DailyArchive) Message(_, _ int, failures []Failure) string {
	return fmt.Sprintf("Archive build logs for %s completed with the following errors:\n%s",
		t.Date.Format(time.DateOnly), joinFailures(failures))
}

func joinFailures(failures []Failure) string {
	return strings.Join(lo.Map(failures, func(f Failure, _ int) string { return f.String() }), "\n")
}

// AggregateError 批量任务中至少一个子任务失败
type AggregateError struct {
	Message   string
	Fulfilled int
	Rejected  int
	Failures  []Failure
}

func (e *AggregateError) Error() string {
	return e.Message
}

func (e *AggregateError) Unwrap() []error {
	return lo.Map(e.Failures, func(f Failure, _ int) error { return f.Reason })
}

// IsAggregate 判断是否为批量任务失败
func IsAggregate(err error) bool {
	var aggErr *AggregateError
	return errors.As(err, &aggErr)
}

// Aggregate 汇总子任务结果, 全部成功时返回 nil.
// keys 与 results 按下标对应, 缺少标识时使用下标.
func Aggregate[K any, T any](results []Outcome[T], keys []K, tpl Template) error {
	var failures []Failure
	for i, result := range results {
		if result.IsFulfilled() {
			continue
		}
		key := fmt.Sprintf("#%d", i)
		if i < len(keys) {
			key = fmt.Sprint(keys[i])
		}
		failures = append(failures, Failure{Key: key, Reason: result.Reason()})
	}

	if len(failures) == 0 {
		return nil
	}

	fulfilled := len(results) - len(failures)
	return &AggregateError{
		Message:   tpl.Message(fulfilled, len(failures), failures),
		Fulfilled: fulfilled,
		Rejected:  len(failures),
		Failures:  failures,
	}
}

// AggregateKeyed 汇总带标识的结果
func AggregateKeyed[K any, T any](items []Keyed[K, T], tpl Template) error {
	keys, results := Unzip(items)
	return Aggregate(results, keys, tpl)
}
