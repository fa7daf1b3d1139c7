package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skinshop-next/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenDecoder 解码上游签发的 JWT，secret 为空时只解码不验签
type TokenDecoder struct {
	secret []byte
}

// NewTokenDecoder 创建解码器
func NewTokenDecoder(secret string) *TokenDecoder {
	return &TokenDecoder{secret: []byte(strings.TrimSpace(secret))}
}

// Decode 将 token 载荷映射为会话
func (d *TokenDecoder) Decode(tokenString string) (*models.Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	if len(d.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return d.secret, nil
		})
		if err != nil || !token.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	session := &models.Session{
		ID:       claimString(claims, "id", "_id", "userId", "sub"),
		FullName: claimString(claims, "fullName", "name"),
		Email:    claimString(claims, "email"),
		Phone:    claimString(claims, "phone"),
		City:     claimString(claims, "city"),
		Address:  claimString(claims, "address"),
		Role:     strings.ToUpper(claimString(claims, "role")),
		Token:    tokenString,
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return session, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		value, ok := claims[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
