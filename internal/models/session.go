package models

import "strings"

// Session 已登录用户的身份与凭证
type Session struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Role     string `json:"role"`
	Token    string `json:"-"` // 单独存放在 token 键下
}

// Authenticated token 存在即视为已登录
func (s *Session) Authenticated() bool {
	return s != nil && strings.TrimSpace(s.Token) != ""
}

// HasShippingAddress 地址、城市、电话均非空
func (s *Session) HasShippingAddress() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.Address) != "" &&
		strings.TrimSpace(s.City) != "" &&
		strings.TrimSpace(s.Phone) != ""
}

// Clone 复制会话
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// SessionPatch 资料更新补丁（nil 字段不修改）
type SessionPatch struct {
	FullName *string `json:"fullName,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	City     *string `json:"city,omitempty"`
	Address  *string `json:"address,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Apply 将补丁合并到会话
func (p SessionPatch) Apply(s *Session) {
	if s == nil {
		return
	}
	if p.FullName != nil {
		s.FullName = *p.FullName
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.City != nil {
		s.City = *p.City
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
}
