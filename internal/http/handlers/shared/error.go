package shared

import (
	"errors"

	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/service"
	"github.com/skinshop-next/internal/upstream"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id / device_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 4)
	if id := c.GetString(constants.ContextKeyRequestID); id != "" {
		kv = append(kv, "request_id", id)
	}
	if id := c.GetString(constants.ContextKeyDeviceID); id != "" {
		kv = append(kv, "device_id", id)
	}
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	RespondAppError(c, response.WrapError(code, msg, err))
}

// RespondAppError 输出 AppError；5xx 记为 error，其余记为 warn。
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		log := RequestLog(c).Warnw
		if appErr.ServerSide() {
			log = RequestLog(c).Errorw
		}
		log("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

type errorMapping struct {
	target error
	code   int
}

var serviceErrorMappings = []errorMapping{
	{service.ErrSessionUnknown, response.CodeServiceUnavailable},
	{service.ErrNotAuthenticated, response.CodeUnauthorized},
	{service.ErrInvalidToken, response.CodeUnauthorized},
	{service.ErrForbidden, response.CodeForbidden},
	{service.ErrInvalidDeviceID, response.CodeBadRequest},
	{service.ErrInvalidCredentials, response.CodeBadRequest},
	{service.ErrInvalidQuantity, response.CodeBadRequest},
	{service.ErrQuantityBelowMinimum, response.CodeConflict},
	{service.ErrStockExceeded, response.CodeUnprocessable},
	{service.ErrCartItemNotFound, response.CodeNotFound},
	{service.ErrEmptySelection, response.CodeBadRequest},
	{service.ErrDraftMissing, response.CodeGone},
	{service.ErrCheckoutInProgress, response.CodeConflict},
	{service.ErrAddressIncomplete, response.CodeUnprocessable},
	{service.ErrPageLoading, response.CodeTooManyRequests},
	{service.ErrOrderNotFound, response.CodeNotFound},
	{service.ErrInvalidOrderStatus, response.CodeBadRequest},
	{service.ErrStatusTransitionInvalid, response.CodeConflict},
}

// RespondServiceError 将服务层/上游错误映射为统一响应。
func RespondServiceError(c *gin.Context, err error) {
	RespondAppError(c, ClassifyError(err))
}

// ClassifyError 将服务层/上游错误转换为 AppError。
// 上游拒绝时透传服务端 message，网络失败统一为 502。
func ClassifyError(err error) *response.AppError {
	if appErr, ok := response.AsAppError(err); ok {
		return appErr
	}
	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			msg := mapping.target.Error()
			if rejected, ok := upstream.AsRejected(err); ok && rejected.Message != "" {
				msg = rejected.Message
			}
			return response.WrapError(mapping.code, msg, err)
		}
	}
	if rejected, ok := upstream.AsRejected(err); ok {
		code := response.CodeBadGateway
		switch {
		case rejected.Unauthorized():
			code = response.CodeUnauthorized
		case rejected.Status >= 400 && rejected.Status < 500:
			code = rejected.Status
		}
		msg := rejected.Message
		if msg == "" {
			msg = "request rejected by storefront"
		}
		return response.WrapError(code, msg, err)
	}
	if errors.Is(err, upstream.ErrNetwork) {
		return response.WrapError(response.CodeBadGateway, "", err)
	}
	if errors.Is(err, upstream.ErrResponseInvalid) {
		return response.WrapError(response.CodeBadGateway, "unexpected storefront response", err)
	}
	return response.WrapError(response.CodeInternal, "", err)
}
