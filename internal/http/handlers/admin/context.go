package admin

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
