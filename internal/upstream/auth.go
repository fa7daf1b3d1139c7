package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/skinshop-next/internal/models"

	"github.com/tidwall/gjson"
)

// ProfileUpdate 资料更新请求体
type ProfileUpdate struct {
	FullName string `json:"fullName"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// Login 邮箱密码登录，返回 JWT
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := c.doJSON(ctx, "auth_login", http.MethodPost, "/auth/login", "", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		return "", err
	}
	for _, path := range []string{"data.token", "token"} {
		if token := strings.TrimSpace(gjson.GetBytes(body, path).String()); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w: token is empty", ErrResponseInvalid)
}

// UpdateProfile 更新资料，返回服务端回传的字段（用于合并到会话）
func (c *Client) UpdateProfile(ctx context.Context, userID, token string, update ProfileUpdate) (models.SessionPatch, error) {
	endpoint := "/auth/" + pathEscape(userID) + "/update"
	body, err := c.doJSON(ctx, "auth_update_profile", http.MethodPut, endpoint, token, update)
	if err != nil {
		return models.SessionPatch{}, err
	}
	patch := models.SessionPatch{
		FullName: &update.FullName,
		City:     &update.City,
		Address:  &update.Address,
		Phone:    &update.Phone,
	}
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		var returned models.SessionPatch
		if err := decodeData(body, "data", &returned); err == nil {
			mergePatch(&patch, returned)
		}
	}
	return patch, nil
}

// ChangePassword 修改密码
func (c *Client) ChangePassword(ctx context.Context, userID, token, oldPassword, newPassword string) error {
	endpoint := "/auth/" + pathEscape(userID) + "/change-password"
	_, err := c.doJSON(ctx, "auth_change_password", http.MethodPut, endpoint, token, map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
	return err
}

func mergePatch(dst *models.SessionPatch, src models.SessionPatch) {
	if src.FullName != nil {
		dst.FullName = src.FullName
	}
	if src.City != nil {
		dst.City = src.City
	}
	if src.Address != nil {
		dst.Address = src.Address
	}
	if src.Phone != nil {
		dst.Phone = src.Phone
	}
	if src.Email != nil {
		dst.Email = src.Email
	}
}
