package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/skinshop-next/internal/authz"
	"github.com/skinshop-next/internal/config"
	"github.com/skinshop-next/internal/constants"
	handlershared "github.com/skinshop-next/internal/http/handlers/shared"
	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = constants.ContextKeyRequestID
const requestIDHeader = constants.RequestIDHeader

// SessionResolver 按设备解析当前会话
type SessionResolver interface {
	Current(ctx context.Context, deviceID string) (*models.Session, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Cache-Control",
			"X-Requested-With",
			constants.DeviceIDHeader,
			constants.RequestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", getRequestID(c),
			"device_id", c.GetString(constants.ContextKeyDeviceID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// DeviceIDMiddleware 读取设备标识头，所有持久状态按设备划分
func DeviceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(constants.DeviceIDHeader))
		if deviceID == "" {
			response.BadRequest(c, "missing "+constants.DeviceIDHeader+" header")
			c.Abort()
			return
		}
		if len(deviceID) > constants.MaxDeviceIDLength {
			response.BadRequest(c, "device id too long")
			c.Abort()
			return
		}
		c.Set(constants.ContextKeyDeviceID, deviceID)
		c.Next()
	}
}

// SessionMiddleware 解析设备会话；会话恢复中返回 503，未登录返回 401
func SessionMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			logger.Errorw("session_resolver_unavailable")
			response.Unauthorized(c, "login required")
			c.Abort()
			return
		}
		deviceID := c.GetString(constants.ContextKeyDeviceID)
		sess, err := sessions.Current(c.Request.Context(), deviceID)
		if err != nil {
			handlershared.RespondServiceError(c, err)
			c.Abort()
			return
		}
		c.Set(constants.ContextKeySession, sess)
		c.Next()
	}
}

// RoleAreaMiddleware 按会话角色校验路由区域权限
func RoleAreaMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("role_area_service_unavailable")
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}
		value, exists := c.Get(constants.ContextKeySession)
		sess, ok := value.(*models.Session)
		if !exists || !ok || !sess.Authenticated() {
			response.Unauthorized(c, "login required")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(sess.Role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("role_area_enforce_failed",
				"user_id", sess.ID,
				"role", sess.Role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("role_area_permission_denied",
				"user_id", sess.ID,
				"role", sess.Role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}
