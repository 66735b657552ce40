// Package client performs outbound calls against the gBizINFO REST API with
// timeouts, retry on transient upstream failures, optional throttling and a
// uniform translation of failures into *errors.APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/config"
	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"go.uber.org/zap"
)

const previewLimit = 500

var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodTrace:   true,
}

var errRetryableStatus = errors.New("retryable upstream status")

// RequestOptions customizes a single request. The zero value is a GET.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    any
}

// Client is safe for concurrent use. The throttle is shared by every call made
// through the same Client.
type Client struct {
	cfg        *config.Config
	http       *http.Client
	logger     *zap.Logger
	throttle   *Throttle
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackOff replaces the retry schedule. The retry count from the
// configuration still caps the number of attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// New constructs a Client from the shared configuration.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout(), KeepAlive: 30 * time.Second}
	// No overall Client.Timeout: the read timeout bounds the wait for the
	// response, not the body download.
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout(),
				ResponseHeaderTimeout: cfg.ReadTimeout(),
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       30 * time.Second,
			},
		},
		logger:     logger.Named("http_client"),
		throttle:   NewThrottle(cfg.MinRequestInterval()),
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// Get performs a GET request against rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (any, error) {
	return c.Request(ctx, rawURL, nil)
}

// Request performs one logical request, retrying idempotent methods on
// 500/502/503/504 and transport errors up to the configured retry count.
//
// A 2xx JSON answer is returned decoded (nil for an empty body, numbers as
// json.Number); any other 2xx answer is returned as its raw text. Non-2xx
// answers become *errors.APIError.
func (c *Client) Request(ctx context.Context, rawURL string, opts *RequestOptions) (any, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = data
	}

	headers := c.headers(opts.Headers)

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	if c.cfg.DebugHTTP {
		c.logger.Debug("http_request",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Any("headers", RedactHeaders(headers)),
			zap.Int("body_bytes", len(body)),
		)
	}

	retry := idempotentMethods[method]
	var res *response
	op := func() error {
		res = nil
		r, err := c.send(ctx, method, rawURL, headers, body)
		if err != nil {
			if !retry {
				return backoff.Permanent(err)
			}
			return err
		}
		res = r
		if retry && retryableStatus[r.status] {
			c.logger.Debug("retryable upstream status", zap.Int("status", r.status), zap.String("url", rawURL))
			return errRetryableStatus
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.Retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil && res == nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}

	return c.translate(rawURL, res)
}

func (c *Client) send(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func (c *Client) translate(rawURL string, res *response) (any, error) {
	isJSON := strings.HasPrefix(strings.ToLower(res.contentType), "application/json")

	if res.status < 200 || res.status >= 300 {
		apiErr := newAPIError(res, isJSON)
		if c.cfg.DebugHTTP {
			c.logger.Debug("http_response_error",
				zap.String("message", apiErr.Message),
				zap.String("url", rawURL),
				zap.Int("status", res.status),
				zap.String("id", apiErr.ID),
				zap.String("preview", preview(res.body)),
			)
		}
		return nil, apiErr
	}

	if !isJSON {
		return string(res.body), nil
	}

	if c.cfg.DebugHTTP {
		c.logger.Debug("http_response_ok",
			zap.Int("status", res.status),
			zap.String("url", rawURL),
			zap.String("content_type", res.contentType),
			zap.String("preview", preview(res.body)),
		)
	}

	if len(bytes.TrimSpace(res.body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(res.body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return out, nil
}

func newAPIError(res *response, isJSON bool) *e.APIError {
	apiErr := &e.APIError{
		StatusCode: res.status,
		Message:    fmt.Sprintf("HTTP %d", res.status),
	}

	if !isJSON {
		if len(res.body) > 0 {
			apiErr.Message = fmt.Sprintf("%s: %s", apiErr.Message, preview(res.body))
		}
		return apiErr
	}

	var payload map[string]any
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return apiErr
	}
	if msg, ok := payload["message"]; ok && truthy(msg) {
		apiErr.Message = fmt.Sprint(msg)
	}
	if id, ok := payload["id"]; ok && truthy(id) {
		apiErr.ID = fmt.Sprint(id)
	}
	if details, ok := payload["errors"]; ok && truthy(details) {
		apiErr.Details = details
	}
	return apiErr
}

func (c *Client) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		"Content-Type":        "application/json",
		"Accept":              "application/json",
		"User-Agent":          c.cfg.UserAgent,
		config.AuthHeaderName: c.cfg.APIToken,
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

// RedactHeaders returns a copy of headers with the API token replaced by the
// redaction marker.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, config.AuthHeaderName) {
			v = config.Redacted
		}
		out[k] = v
	}
	return out
}

// preview returns at most previewLimit characters of body.
func preview(body []byte) string {
	if utf8.RuneCount(body) <= previewLimit {
		return string(body)
	}
	runes := []rune(string(body))
	return string(runes[:previewLimit])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
