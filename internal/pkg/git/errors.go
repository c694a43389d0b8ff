package git

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError 平台接口调用失败, 包括网络错误和非 2xx 响应
type APIError struct {
	Platform   PlatformType
	Method     string
	Path       string
	StatusCode int // 网络错误时为 0
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Platform, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: HTTP %d: %s", e.Platform, e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound 是否 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized 令牌无效或已撤销
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
