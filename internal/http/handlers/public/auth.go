package public

import (
	"strings"

	"github.com/skinshop-next/internal/http/response"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/service"
	"github.com/skinshop-next/internal/upstream"

	"github.com/gin-gonic/gin"
)

// LoginRequest 邮箱密码登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenLoginRequest 直接以 token 建立会话
type TokenLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// ProfileRequest 资料更新请求
type ProfileRequest struct {
	FullName string `json:"fullName"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// SessionResponse 会话响应（落地页由角色决定，与登录本身分离）
type SessionResponse struct {
	User    *models.Session `json:"user"`
	Landing string          `json:"landing"`
}

// ToUpdate 转换为上游资料更新
func (r ProfileRequest) ToUpdate() upstream.ProfileUpdate {
	return upstream.ProfileUpdate{
		FullName: strings.TrimSpace(r.FullName),
		City:     strings.TrimSpace(r.City),
		Address:  strings.TrimSpace(r.Address),
		Phone:    strings.TrimSpace(r.Phone),
	}
}

// Login 邮箱密码登录
func (h *Handler) Login(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "email and password are required", err)
		return
	}
	sess, err := h.SessionService.SignIn(c.Request.Context(), deviceID, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, SessionResponse{User: sess, Landing: service.LandingFor(sess.Role)})
}

// LoginWithToken 以已有 token 建立会话
func (h *Handler) LoginWithToken(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	var req TokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondServiceError(c, service.ErrInvalidToken)
		return
	}
	sess, err := h.SessionService.Login(c.Request.Context(), deviceID, req.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, SessionResponse{User: sess, Landing: service.LandingFor(sess.Role)})
}

// Logout 本地登出（不调用上游）
func (h *Handler) Logout(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	if err := h.SessionService.Logout(c.Request.Context(), deviceID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"logged_out": true})
}

// Me 当前会话
func (h *Handler) Me(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	response.Success(c, SessionResponse{User: sess, Landing: service.LandingFor(sess.Role)})
}

// UpdateProfile 更新资料并合并服务端回传字段
func (h *Handler) UpdateProfile(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "invalid profile payload", err)
		return
	}
	sess, err := h.SessionService.UpdateProfile(c.Request.Context(), deviceID, req.ToUpdate())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"user": sess})
}

// ChangePassword 修改密码，成功后会话失效
func (h *Handler) ChangePassword(c *gin.Context) {
	deviceID, ok := getDeviceID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "old and new password are required", err)
		return
	}
	if err := h.SessionService.ChangePassword(c.Request.Context(), deviceID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"logged_out": true})
}
