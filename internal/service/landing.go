package service

import (
	"strings"

	"github.com/skinshop-next/internal/constants"
)

// LandingFor 根据角色决定登录后的落地页
func LandingFor(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case constants.RoleStaff:
		return constants.LandingStaff
	case constants.RoleManager:
		return constants.LandingAdmin
	default:
		return constants.LandingHome
	}
}
