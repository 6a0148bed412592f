// Package api 封装 AKTools 网关（/api/public/<函数名>）的请求，含节流、重试与 trace 日志。
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"stockDash/internal/trace"
)

// 默认网关地址（aktools 默认端口 8080）
const DefaultBaseURL = "http://127.0.0.1:8080"

const publicPath = "/api/public/"

// 请求超时与重试
const (
	defaultHTTPTimeout  = 15 * time.Second
	defaultMaxRetries   = 3
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
)

// 节流：每秒请求数与突发
const (
	defaultRequestsPerSec = 5
	defaultBurst          = 2
)

const maxRespLogLen = 1200

// Options 客户端参数，零值字段取默认。
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	MaxRetries     uint64
	RetryInitial   time.Duration
	RetryMax       time.Duration
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	maxRetries   uint64
	retryInitial time.Duration
	retryMax     time.Duration
	now          func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = defaultRequestsPerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = defaultRetryInitial
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = defaultRetryMax
	}
	return &Client{
		BaseURL:      strings.TrimRight(opts.BaseURL, "/"),
		HTTPClient:   &http.Client{Timeout: opts.Timeout},
		Limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.Burst),
		maxRetries:   opts.MaxRetries,
		retryInitial: opts.RetryInitial,
		retryMax:     opts.RetryMax,
		now:          time.Now,
	}
}

// StatusError 网关返回非 200。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("aktools: http %d: %s", e.StatusCode, e.Body)
}

// retryable 429 与 5xx 可重试，其余 4xx 直接失败。
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrNotArray 网关响应不是 JSON 数组。
var ErrNotArray = errors.New("aktools: response is not a JSON array")

func (c *Client) endpoint(fn string, params url.Values) string {
	u := c.BaseURL + publicPath + fn
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = c.retryMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// doWithRetry GET 并读出完整响应体；每次尝试前经限流器等待。
func (c *Client) doWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		trace.Debug(ctx, "api: req GET %s attempt=%d", rawURL, attempt)
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			trace.Warn(ctx, "api: GET %s attempt=%d err=%v", rawURL, attempt, err)
			return err
		}
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		trace.Debug(ctx, "api: resp status=%d len=%d body=%s", resp.StatusCode, len(b), truncateForLog(b))
		if resp.StatusCode != http.StatusOK {
			se := &StatusError{StatusCode: resp.StatusCode, Body: truncateForLog(b)}
			if !se.retryable() {
				return backoff.Permanent(se)
			}
			trace.Warn(ctx, "api: GET %s status=%d，稍后重试", rawURL, resp.StatusCode)
			return se
		}
		body = b
		return nil
	}
	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		trace.Error(ctx, err, "api: doWithRetry fail url=%s attempts=%d", rawURL, attempt)
		return nil, err
	}
	return body, nil
}

// getRecords 请求一个网关函数并返回记录数组。
func (c *Client) getRecords(ctx context.Context, fn string, params url.Values) ([]gjson.Result, error) {
	body, err := c.doWithRetry(ctx, c.endpoint(fn, params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return parseRecords(body, fn)
}

func parseRecords(body []byte, fn string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: invalid json", fn)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("%s: %w", fn, ErrNotArray)
	}
	return res.Array(), nil
}

// Text 取记录字段原文：字符串取内容，数字保留字面量，缺失或 null 为空串。
func Text(r gjson.Result, field string) string {
	v := r.Get(field)
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}

func truncateForLog(b []byte) string {
	s := string(b)
	if len(b) > maxRespLogLen {
		s = s[:maxRespLogLen] + "..."
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
