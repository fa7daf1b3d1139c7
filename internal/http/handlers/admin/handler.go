package admin

import "github.com/skinshop-next/internal/provider"

// Handler 后台接口处理器入口
// 说明：员工区（/staff）与管理区（/admin）共用，区域权限由路由中间件校验。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
