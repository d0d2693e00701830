package tracing

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisHook 为 Redis 命令创建子 span，只记录命令名
type RedisHook struct {
	threshold time.Duration
}

func NewRedisHook() *RedisHook {
	return &RedisHook{threshold: slowThreshold()}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmd)
		}
		start := time.Now()
		span := parent.StartChild("db.redis")
		span.Description = strings.ToUpper(cmd.Name())
		span.SetData("db.system", "redis")

		err := next(span.Context(), cmd)
		spanErr := err
		if errors.Is(err, redis.Nil) {
			spanErr = nil
		}
		finish(span, time.Since(start), h.threshold, spanErr)
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmds)
		}
		start := time.Now()
		span := parent.StartChild("db.redis.pipeline")
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, strings.ToUpper(cmd.Name()))
		}
		span.Description = strings.Join(names, " ")
		span.SetData("db.system", "redis")
		span.SetData("redis.pipeline_length", len(cmds))

		err := next(span.Context(), cmds)
		finish(span, time.Since(start), h.threshold, err)
		return err
	}
}
