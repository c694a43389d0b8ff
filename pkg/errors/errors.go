package errors

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeNotFound        = 404
	CodeInternalError   = 500
	CodeDatabaseError   = 501
	CodeExternalError   = 502
	CodeValidationError = 503
	CodeJobFailed       = 520
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较, 使 Wrap 出来的错误可以匹配预定义错误
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 预定义错误
var (
	ErrBadRequest     = New(CodeBadRequest, "请求参数错误")
	ErrNotFound       = New(CodeNotFound, "资源不存在")
	ErrInternalError  = New(CodeInternalError, "内部服务器错误")
	ErrRecordNotFound = New(CodeNotFound, "记录不存在")
	ErrUnknownJob     = New(CodeNotFound, "定时任务不存在")
)
