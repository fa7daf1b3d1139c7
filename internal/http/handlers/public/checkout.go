package public

import (
	"strings"

	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/models"

	"github.com/gin-gonic/gin"
)

// DraftResponse 待结算草稿及当前收货信息
type DraftResponse struct {
	Draft           *models.OrderDraft `json:"draft"`
	AddressComplete bool               `json:"address_complete"`
	User            *models.Session    `json:"user"`
}

// CreateDraft 以当前勾选生成待结算草稿
func (h *Handler) CreateDraft(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	draft, err := h.CheckoutService.BuildDraft(c.Request.Context(), deviceID, sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, DraftResponse{Draft: draft, AddressComplete: sess.HasShippingAddress(), User: sess})
}

// GetDraft 获取待结算草稿
func (h *Handler) GetDraft(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	sess, ok := getSession(c)
	if !ok {
		return
	}
	draft, err := h.CheckoutService.PendingDraft(c.Request.Context(), deviceID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, DraftResponse{Draft: draft, AddressComplete: sess.HasShippingAddress(), User: sess})
}

// UpdateAddress 结算页补全收货地址
func (h *Handler) UpdateAddress(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	if _, ok := getSession(c); !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid address payload", err)
		return
	}
	sess, err := h.CheckoutService.UpdateAddress(c.Request.Context(), deviceID, req.ToUpdate())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"user": sess, "address_complete": sess.HasShippingAddress()})
}

// CommitDraft 提交草稿下单
func (h *Handler) CommitDraft(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	result, err := h.CheckoutService.Commit(c.Request.Context(), deviceID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !result.Cleanup.OK() {
		response.SuccessWithMsg(c, result.Cleanup.Warning, result)
		return
	}
	response.Success(c, result)
}
