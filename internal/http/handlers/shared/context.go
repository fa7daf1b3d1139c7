package shared

import (
	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/models"

	"github.com/gin-gonic/gin"
)

// DeviceID 读取设备中间件写入的设备 ID
func DeviceID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeyDeviceID)
	if !exists {
		RespondErrorWithMsg(c, response.CodeBadRequest, "missing device id", nil)
		return "", false
	}
	deviceID, ok := value.(string)
	if !ok || deviceID == "" {
		RespondErrorWithMsg(c, response.CodeInternal, "invalid device id in context", nil)
		return "", false
	}
	return deviceID, true
}

// Session 读取会话中间件写入的会话
func Session(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(constants.ContextKeySession)
	if !exists {
		RespondErrorWithMsg(c, response.CodeUnauthorized, "login required", nil)
		return nil, false
	}
	sess, ok := value.(*models.Session)
	if !ok || !sess.Authenticated() {
		RespondErrorWithMsg(c, response.CodeUnauthorized, "login required", nil)
		return nil, false
	}
	return sess, true
}
