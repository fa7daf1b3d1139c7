package admin

import (
	"strings"

	"github.com/skinshop-next/internal/authz"
	"github.com/skinshop-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListRolePolicies 查看角色（含继承）的区域策略
func (h *Handler) ListRolePolicies(c *gin.Context) {
	role, err := authz.NormalizeRole(strings.TrimSpace(c.Query("role")))
	if err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "unknown role", err)
		return
	}
	policies, err := h.AuthzService.RolePolicies(role)
	if err != nil {
		respondErrorWithMsg(c, response.CodeInternal, "failed to load policies", err)
		return
	}
	response.Success(c, gin.H{"role": role, "policies": policies})
}

// GrantRolePolicy 为角色授予策略
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "role, object and action are required", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "grant policy failed", err)
		return
	}
	requestLog(c).Infow("authz_policy_granted", "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, gin.H{"granted": true})
}

// RevokeRolePolicy 撤销角色策略
func (h *Handler) RevokeRolePolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "role, object and action are required", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, "revoke policy failed", err)
		return
	}
	requestLog(c).Infow("authz_policy_revoked", "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, gin.H{"revoked": true})
}
