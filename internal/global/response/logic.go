package response

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// ErrorContextKey 是用于在 gin.Context 中存储错误对象的键
const ErrorContextKey = "error"

// Error 自定义错误类型，支持错误码、消息、原始错误链和堆栈跟踪
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"msg"`
	Origin  string `json:"origin,omitempty"`
	// status 对应的 HTTP 状态码
	status int
	// cause 保存原始错误，用于 Unwrap() 方法和 Sentry 堆栈提取
	cause error
	stack pkgerrors.StackTrace
}

func newError(code int32, status int, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		status:  status,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("code:%d, msg:%s", e.Code, e.Message)
}

// GetCode 返回错误码，实现 sentry.CodedError 接口
func (e *Error) GetCode() int32 {
	return e.Code
}

// HTTPStatus 返回该错误对应的 HTTP 状态码
func (e *Error) HTTPStatus() int {
	if e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

// Unwrap 返回原始错误，支持 errors.Unwrap() 和 Sentry 错误链提取
func (e *Error) Unwrap() error {
	return e.cause
}

// StackTrace 返回堆栈跟踪，实现 pkg/errors 的 stackTracer 接口
func (e *Error) StackTrace() pkgerrors.StackTrace {
	if e.stack != nil {
		return e.stack
	}
	if e.cause != nil {
		type stackTracer interface {
			StackTrace() pkgerrors.StackTrace
		}
		if st, ok := e.cause.(stackTracer); ok {
			return st.StackTrace()
		}
	}
	return nil
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithOrigin 附带原始错误（仅 debug 模式返回给前端），保留错误链
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}

	wrappedErr := ensureStack(err)

	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", wrappedErr),
		status:  e.status,
		cause:   wrappedErr,
	}

	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := wrappedErr.(stackTracer); ok {
		newErr.stack = st.StackTrace()
	}

	return newErr
}

// WithTips 向调用方返回额外的提示信息（release 模式也可见）
func (e *Error) WithTips(details ...string) *Error {
	msg := e.Message
	for _, d := range details {
		if d != "" {
			msg += ": " + d
		}
	}
	return &Error{
		Code:    e.Code,
		Message: msg,
		Origin:  e.Origin,
		status:  e.status,
		cause:   e.cause,
		stack:   e.stack,
	}
}

// ensureStack 确保错误带有堆栈信息
func ensureStack(err error) error {
	if err == nil {
		return nil
	}
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return pkgerrors.WithStack(err)
}

// FromResponse 把后端返回的状态码和错误体映射回错误类型，供客户端使用。
// 401 一律视为登录过期，5xx 一律视为后端不可用
func FromResponse(status int, code int32, detail string) *Error {
	base, ok := lookup(code)
	switch {
	case status == http.StatusUnauthorized:
		base, ok = ErrAuthExpired, true
	case status >= http.StatusInternalServerError:
		base, ok = ErrTransport, true
	}
	if !ok {
		switch status {
		case http.StatusForbidden:
			base = ErrForbidden
		case http.StatusNotFound:
			base = ErrNotFound
		case http.StatusConflict:
			base = ErrInvalidStateTransition
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			base = ErrValidation
		default:
			base = ErrTransport
		}
	}
	if detail == "" || detail == base.Message {
		return base
	}
	return &Error{Code: base.Code, Message: detail, status: base.status}
}
