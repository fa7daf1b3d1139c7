package response

import (
	"errors"
	"fmt"
)

// AppError 网关统一错误：Code 写入 status_code，Message 原样返回给客户端
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 网关自身或上游故障（5xx），需要按错误级别记录
func (e *AppError) ServerSide() bool {
	return e != nil && e.Code >= CodeInternal
}

// WrapError 包装错误；消息为空时使用状态码的默认文案
func WrapError(code int, message string, err error) *AppError {
	if message == "" {
		message = DefaultMessage(code)
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// DefaultMessage 状态码默认文案
func DefaultMessage(code int) string {
	switch code {
	case CodeBadRequest:
		return "bad request"
	case CodeUnauthorized:
		return "please sign in again"
	case CodeForbidden:
		return "forbidden"
	case CodeNotFound:
		return "not found"
	case CodeConflict:
		return "conflict"
	case CodeGone:
		return "no longer available"
	case CodeUnprocessable:
		return "unprocessable request"
	case CodeTooManyRequests:
		return "too many requests"
	case CodeBadGateway:
		return "storefront unreachable, please try again"
	case CodeServiceUnavailable:
		return "service unavailable, please retry shortly"
	default:
		return "internal error"
	}
}
