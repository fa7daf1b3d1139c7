package constants

// 用户角色常量（与商城 API 签发的 token 中 role 字段一致）
const (
	RoleUser    = "USER"
	RoleStaff   = "STAFF"
	RoleManager = "MANAGER"
)

// 订单状态常量
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipping   = "SHIPPING"
	OrderStatusShipped    = "SHIPPED" // SHIPPING 的别名
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusReturned   = "RETURNED"
	OrderStatusRefunded   = "REFUNDED"
	OrderStatusFailed     = "FAILED"
)

// 设备存储固定键
const (
	StorageKeyToken = "token"
	StorageKeyUser  = "user"
)

// 落地页（原客户端登录后的路由目标）
const (
	LandingHome         = "/home"
	LandingStaff        = "/staff"
	LandingAdmin        = "/admin"
	LandingOrderSuccess = "/order/success"
)

// 结算常量
const (
	PaymentMethodCOD   = "COD"
	DefaultShippingFee = 50000
)

// 队列常量
const (
	QueueDefault         = "default"
	TaskCartCleanupRetry = "cart:cleanup_retry"
)

// 网关请求上下文常量
const (
	DeviceIDHeader      = "X-Device-ID"
	RequestIDHeader     = "X-Request-ID"
	ContextKeyDeviceID  = "device_id"
	ContextKeySession   = "session"
	ContextKeyRequestID = "request_id"
	MaxDeviceIDLength   = 128
)

// DefaultOrdersPageSize 订单历史默认分页大小
const DefaultOrdersPageSize = 10
