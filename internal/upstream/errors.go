package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNetwork 请求未能得到响应（连接失败、超时等）
	ErrNetwork = errors.New("upstream network failure")
	// ErrRejected 上游返回非 2xx
	ErrRejected = errors.New("upstream rejected request")
	// ErrResponseInvalid 响应体无法解析
	ErrResponseInvalid = errors.New("upstream response invalid")
)

// RejectedError 上游拒绝请求，携带状态码与服务端 message
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("upstream rejected request: status %d: %s", e.Status, e.Message)
}

// Is 使 errors.Is(err, ErrRejected) 成立
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Unauthorized 凭证失效
func (e *RejectedError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AsRejected 取出 RejectedError
func AsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}

// MessageOf 返回上游给出的提示文案
func MessageOf(err error) string {
	if rejected, ok := AsRejected(err); ok {
		return rejected.Message
	}
	return ""
}

func newRejectedError(status int, body []byte) *RejectedError {
	message := ""
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "error", "data.message"} {
			result := gjson.GetBytes(body, path)
			if result.Type == gjson.String && strings.TrimSpace(result.String()) != "" {
				message = strings.TrimSpace(result.String())
				break
			}
		}
	}
	return &RejectedError{Status: status, Message: message}
}
