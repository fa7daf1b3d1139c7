package public

import "github.com/skinshop-next/internal/provider"

// Handler 顾客侧接口处理器入口
// 说明：会话、购物车、结算与订单历史，全部以设备 ID 区分调用方。
type Handler struct {
	*provider.Container
}

// New 创建顾客侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
