package public

import (
	handlershared "github.com/skinshop-next/internal/http/handlers/shared"
	"github.com/skinshop-next/internal/models"

	"github.com/gin-gonic/gin"
)

func getDeviceID(c *gin.Context) (string, bool) {
	return handlershared.DeviceID(c)
}

func getSession(c *gin.Context) (*models.Session, bool) {
	return handlershared.Session(c)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}
