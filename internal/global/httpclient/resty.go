package httpclient

import (
	"extension-portal/internal/global/sentry/tracing"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// New 创建出站 HTTP 客户端，不自动重试。
// 配置了 Sentry 时挂载追踪中间件
func New(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if tracing.IsEnabled() {
		tracing.SetupResty(client)
	}
	return client
}
