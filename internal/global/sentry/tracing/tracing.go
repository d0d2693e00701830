// Package tracing 为 GORM、Redis 和出站 HTTP 调用挂载 Sentry span。
// 只有调用方的 context 中已有 span（由 sentrygin 中间件创建）时才会记录
package tracing

import (
	"extension-portal/config"
	"time"

	"github.com/getsentry/sentry-go"
)

// IsEnabled 是否配置了 Sentry DSN
func IsEnabled() bool {
	return config.Get().Sentry.Dsn != ""
}

func slowThreshold() time.Duration {
	return time.Duration(config.Get().Sentry.SlowThresholdMs) * time.Millisecond
}

// finish 结束 span，耗时低于阈值的不上报
func finish(span *sentry.Span, elapsed, threshold time.Duration, err error) {
	if threshold > 0 && elapsed < threshold {
		span.Sampled = sentry.SampledFalse
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
