package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultTimeout      = 15 * time.Second
	maxResponseBodySize = 4 << 20
)

// Observer 记录一次上游调用（操作名、结果、耗时）
type Observer func(operation, outcome string, elapsed time.Duration)

// Config 上游客户端配置
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client 商城 REST API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	observe    Observer
}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithObserver 挂载调用观察者（指标）
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observe = observer
	}
}

// New 创建上游客户端
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 返回上游地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, operation, method, endpoint, token string, payload interface{}) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	body, err := c.send(ctx, method, endpoint, token, payload)
	if c.observe != nil {
		c.observe(operation, outcomeOf(err), time.Since(started))
	}
	return body, err
}

func (c *Client) send(ctx context.Context, method, endpoint, token string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrNetwork, method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newRejectedError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// decodeData 按 gjson 路径取出子文档并解码
func decodeData(body []byte, path string, target interface{}) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: body is not json", ErrResponseInvalid)
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() || result.Type == gjson.Null {
		return fmt.Errorf("%w: missing %s", ErrResponseInvalid, path)
	}
	if err := json.Unmarshal([]byte(result.Raw), target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrResponseInvalid, path, err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		if _, ok := AsRejected(err); ok {
			return "rejected"
		}
		return "error"
	}
}

func pathEscape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}
