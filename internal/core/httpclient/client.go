// Package httpclient 实现访问远程目录 API 的 HTTP 客户端：
// 重试、相同请求合并以及可选的响应缓存。
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Xushengqwer/game_offers/config"
)

// StatusError 上游返回了非 2xx 状态。
type StatusError struct {
	StatusCode int
	Body       string // 截断后的响应体，便于排查
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("上游返回状态码 %d", e.StatusCode)
	}
	return fmt.Sprintf("上游返回状态码 %d: %s", e.StatusCode, e.Body)
}

// Temporary 5xx 与 429 视为可重试。
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

const errorBodyLimit = 512

// Verifier 由响应类型实现。Verify 失败的响应体既不写入缓存，也不会从缓存返回。
type Verifier interface {
	Verify() error
}

// Client 访问远程目录 API，实现 executor.Getter。
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cache   ResponseCache
	cfg     config.UpstreamConfig
	logger  *zap.Logger
	group   singleflight.Group
}

// New 创建客户端。transport 为 nil 时使用 http.DefaultTransport；cache 可以为 nil。
func New(cfg config.UpstreamConfig, transport http.RoundTripper, cache ResponseCache, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		panic("httpclient.New: logger 不能为 nil")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("解析上游地址 %q 失败: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("上游地址 %q 缺少协议或主机", cfg.BaseURL)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Get 请求 path?params 并把 JSON 响应解码到 out。
// 先查缓存；未命中时相同的并发请求只会发出一次。缓存故障只记录日志，不影响请求。
// out 实现 Verifier 时，只有校验通过的响应体才会被缓存。
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	key := cacheKey(path, params)

	if body, ok := c.cacheGet(ctx, key); ok {
		if err := decodeVerified(body, out); err == nil {
			return nil
		}
		c.logger.Warn("缓存内容无法解析或校验失败，回源请求", zap.String("key", key))
		resetValue(out)
	}

	// 共享的请求不随任一调用方取消，每个调用方只等待自己的 ctx。
	ch := c.group.DoChan(key, func() (interface{}, error) {
		body, err := c.fetch(context.WithoutCancel(ctx), path, params)
		if err != nil {
			return nil, err
		}
		if err := decodeVerified(body, newValueLike(out)); err == nil {
			c.cacheSetAsync(key, body)
		} else {
			c.logger.Warn("上游响应未通过校验，不写入缓存", zap.String("key", key), zap.Error(err))
		}
		return body, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}

	body := res.Val.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析上游响应 %s 失败: %w", path, err)
	}
	return nil
}

// decodeVerified 解码 body 到 out，out 实现 Verifier 时再做一次校验。
func decodeVerified(body []byte, out any) error {
	if out == nil {
		return errors.New("解码目标为空")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	if v, ok := out.(Verifier); ok {
		return v.Verify()
	}
	return nil
}

// newValueLike 创建与 out 同类型的新零值指针，out 不是指针时返回 nil。
func newValueLike(out any) any {
	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Pointer {
		return nil
	}
	return reflect.New(t.Elem()).Interface()
}

// resetValue 把 out 指向的值清零，避免缓存内容残留到回源结果中。
func resetValue(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}

// InvalidatePrefix 删除以 path 前缀开头的缓存响应，未配置缓存时什么都不做。
func (c *Client) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.InvalidatePrefix(ctx, prefix)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL.JoinPath(path)
	target.RawQuery = params.Encode()

	var body []byte
	operation := func() error {
		var err error
		body, err = c.do(ctx, target.String())
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	if c.cfg.RetryInitialInterval > 0 {
		expBackoff.InitialInterval = c.cfg.RetryInitialInterval
	}
	expBackoff.MaxElapsedTime = 0
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, c.cfg.MaxRetries), ctx)

	notify := func(err error, d time.Duration) {
		c.logger.Warn("上游请求失败，稍后重试",
			zap.String("url", target.String()),
			zap.Duration("retry_after", d),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, retryPolicy, notify); err != nil {
		c.logger.Error("上游请求最终失败",
			zap.String("url", target.String()),
			zap.Uint64("max_retries", c.cfg.MaxRetries),
			zap.Error(err),
		)
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建上游请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求上游失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取上游响应失败: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, backoff.Permanent(fmt.Errorf("上游响应超过 %d 字节", c.cfg.MaxBodyBytes))
	}
	return body, nil
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return nil, false
	}
	body, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("读取响应缓存失败", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return body, true
}

func (c *Client) cacheSetAsync(key string, body []byte) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.cache.Set(ctx, key, body, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("写入响应缓存失败", zap.String("key", key), zap.Error(err))
		}
	}()
}

// cacheKey 由路径与规范编码的参数组成，可以按路径前缀批量失效。
func cacheKey(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
