package status

import (
	"errors"
	"fmt"

	"pages-cd/internal/model"
	"pages-cd/internal/pkg/config"
	"pages-cd/pkg/constants"
)

// State 提交状态
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
	StateFailure State = "failure"
)

const (
	DescriptionPending = "The build is running."
	DescriptionSuccess = "The build is complete!"
	DescriptionError   = "The build has encountered an error."
)

// ErrValidation 构建数据无法映射为提交状态
var ErrValidation = errors.New("invalid build for status")

// ValidationError 构建状态未知或缺少提交
type ValidationError struct {
	BuildID int64
	Field   string
	Value   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("build@id=%d: invalid %s %q", e.BuildID, e.Field, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Payload 一次状态上报的内容
type Payload struct {
	SHA         string
	State       State
	Context     string
	Description string
	TargetURL   string
}

// LinkBuilder 提供日志和预览地址
type LinkBuilder interface {
	LogsURL(build *model.Build) string
	PreviewURL(build *model.Build, site *model.Site) (string, bool)
}

// Mapper 将构建映射为提交状态, 无副作用
type Mapper struct {
	links   LinkBuilder
	context string
}

// NewMapper 创建 Mapper, context 随运行环境区分
func NewMapper(links LinkBuilder, env, baseContext string) *Mapper {
	return &Mapper{
		links:   links,
		context: ContextName(env, baseContext),
	}
}

// ContextName 生产环境使用 <base>/build, 其他环境使用 <base>-<env>/build
func ContextName(env, base string) string {
	if env == config.EnvProduction {
		return base + "/build"
	}
	return fmt.Sprintf("%s-%s/build", base, env)
}

// Context 当前环境的 status context
func (m *Mapper) Context() string {
	return m.context
}

// Map 计算构建的提交状态
func (m *Mapper) Map(build *model.Build, site *model.Site) (*Payload, error) {
	if build == nil {
		return nil, &ValidationError{Field: "build", Value: "<nil>"}
	}

	sha := build.CommitSHA()
	if sha == "" {
		return nil, &ValidationError{BuildID: build.ID, Field: "commit_sha", Value: sha}
	}

	payload := &Payload{
		SHA:       sha,
		Context:   m.context,
		TargetURL: m.links.LogsURL(build),
	}

	switch build.State {
	case constants.BuildStateCreated, constants.BuildStateQueued, constants.BuildStateProcessing:
		payload.State = StatePending
		payload.Description = DescriptionPending
	case constants.BuildStateSuccess:
		payload.State = StateSuccess
		payload.Description = DescriptionSuccess
		if previewURL, ok := m.links.PreviewURL(build, site); ok {
			payload.TargetURL = previewURL
		}
	case constants.BuildStateError:
		payload.State = StateError
		payload.Description = DescriptionError
	default:
		return nil, &ValidationError{BuildID: build.ID, Field: "state", Value: build.State}
	}

	return payload, nil
}
