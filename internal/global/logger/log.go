package logger

import (
	"context"
	"errors"
	"extension-portal/config"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "extension-portal"

var (
	instance *slog.Logger
	once     sync.Once
)

// Get 获取全局 Logger，首次调用时按配置构建
func Get() *slog.Logger {
	once.Do(func() {
		cfg := config.Get()
		instance = slog.New(newHandler(cfg, os.Stdout)).With(
			"app_name", appName,
			"env", string(cfg.Mode),
		)
	})
	return instance
}

// New 返回带 module 字段的 Logger，每个业务模块在 Init 中调用一次
func New(module string) *slog.Logger {
	return Get().With("module", module)
}

// WithRequest 附加请求来源，经代理转发时一并记录原始地址
func WithRequest(base *slog.Logger, c interface {
	ClientIP() string
	GetHeader(string) string
}) *slog.Logger {
	attrs := []any{"client_ip", c.ClientIP()}
	if v := c.GetHeader("X-Forwarded-For"); v != "" {
		attrs = append(attrs, "x_forwarded_for", v)
	}
	return base.With(attrs...)
}

// Discard 供 portalctl 和库代码在没有注入 Logger 时使用
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newHandler release 模式且配置了文件时写入轮转文件，否则写 stdout；配置了 DSN 再扇出到 Sentry
func newHandler(cfg *config.Config, stdout io.Writer) slog.Handler {
	release := cfg.Mode == config.ModeRelease
	opts := &slog.HandlerOptions{AddSource: release, Level: parseLevel(cfg.Log.Level)}

	var local slog.Handler
	if release && cfg.Log.FilePath != "" {
		local = slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}, opts)
	} else {
		local = slog.NewTextHandler(stdout, opts)
	}
	if cfg.Sentry.Dsn == "" {
		return local
	}
	// Error 作为 Event 上报，Warn 以上作为 Sentry Log
	remote := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
		AddSource:  release,
	}.NewSentryHandler(context.Background())
	return fanout{local, remote}
}

// parseLevel 无法识别的级别按 info 处理
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// fanout 把同一条记录交给所有启用了该级别的 handler，某一路失败不影响其他路
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
