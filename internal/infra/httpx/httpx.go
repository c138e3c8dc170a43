package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// StatusError 表示服务端返回了非 2xx 的 HTTP 状态码。
// 对单次调用是致命的：不重试，由上层映射为 error_code=remote_service_error。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// Options 是构造 Client 的全部可调项；零值可用。
type Options struct {
	// UserAgent 为空时使用内置缺省值。
	UserAgent string
	// Timeout 是单次请求的总超时（连接 + 响应 + 读体）。0 表示缺省 60s。
	Timeout time.Duration
	// ProxyURL 非空时强制走该代理；为空时遵循环境变量（HTTP_PROXY 等）。
	ProxyURL string
}

// Client 包装 net/http：固定 UA、总超时、可选代理、单次尝试。
//
// 约束：
// - 绝不重试、绝不退避；一次调用恰好一次请求
// - 响应体整体缓冲在内存里再落盘（上游文件在百 MB 量级以内）
type Client struct {
	hc *http.Client
	ua string
}

// New 构造 Client。proxy URL 非法时立即失败，而不是留到第一次请求。
func New(opts Options) (*Client, error) {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		// 不设 ResponseHeaderTimeout：切图服务是现做现切的 CGI，
		// 首字节可能很慢，只受总超时约束。
	}
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("代理地址无效 %q: %w", p, err)
		}
		base.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "RSQ/1.0"
	}

	return &Client{
		hc: &http.Client{Transport: base, Timeout: timeout},
		ua: ua,
	}, nil
}

// Get 发起一次 GET；2xx 时返回完整响应体，非 2xx 返回 *StatusError。
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 读完并丢弃响应体，保证连接可复用。
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败：%w", err)
	}
	return b, nil
}
