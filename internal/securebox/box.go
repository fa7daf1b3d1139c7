package securebox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix = "v1:"
	hkdfInfo     = "skinshop-device-storage"
)

var (
	// ErrNotSealed 值不是由 Box 加密的
	ErrNotSealed = errors.New("securebox: value is not sealed")
	// ErrOpenFailed 解密或认证失败
	ErrOpenFailed = errors.New("securebox: open failed")
)

// Box 设备存储加解密器，secret 为空时为明文直通
type Box struct {
	key []byte
}

// New 从配置的 secret 派生 32 字节密钥
func New(secret string) (*Box, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Box{}, nil
	}
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive storage key: %w", err)
	}
	return &Box{key: key}, nil
}

// Enabled 是否启用加密
func (b *Box) Enabled() bool {
	return b != nil && len(b.key) > 0
}

// Seal 加密明文；aad 绑定设备与键名，防止密文在条目间挪用
func (b *Box) Seal(plaintext, aad []byte) (string, error) {
	if !b.Enabled() {
		return string(plaintext), nil
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, aad)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open 解密 Seal 的输出
func (b *Box) Open(value string, aad []byte) ([]byte, error) {
	if !b.Enabled() {
		return []byte(value), nil
	}
	if !strings.HasPrefix(value, sealedPrefix) {
		return nil, ErrNotSealed
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, ErrOpenFailed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// AAD 组装设备存储条目的附加认证数据
func AAD(deviceID, key string) []byte {
	return []byte(deviceID + "\x00" + key)
}
