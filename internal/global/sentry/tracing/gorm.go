package tracing

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

const (
	gormSpanKey  = "sentry:span"
	gormStartKey = "sentry:start"
	gormPrefix   = "sentry_tracing"
)

// GormPlugin 为每条 SQL 创建子 span，描述只记录表名
type GormPlugin struct {
	threshold time.Duration
	system    string
}

// NewGormPlugin system 为 "mysql" 或 "sqlite"
func NewGormPlugin(system string) *GormPlugin {
	return &GormPlugin{threshold: slowThreshold(), system: system}
}

func (p *GormPlugin) Name() string {
	return "SentryTracingPlugin"
}

func (p *GormPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(gormPrefix+":before_create", p.before("db.sql.create")),
		cb.Query().Before("gorm:query").Register(gormPrefix+":before_query", p.before("db.sql.query")),
		cb.Update().Before("gorm:update").Register(gormPrefix+":before_update", p.before("db.sql.update")),
		cb.Delete().Before("gorm:delete").Register(gormPrefix+":before_delete", p.before("db.sql.delete")),
		cb.Create().After("gorm:create").Register(gormPrefix+":after_create", p.after),
		cb.Query().After("gorm:query").Register(gormPrefix+":after_query", p.after),
		cb.Update().After("gorm:update").Register(gormPrefix+":after_update", p.after),
		cb.Delete().After("gorm:delete").Register(gormPrefix+":after_delete", p.after),
	)
}

func (p *GormPlugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil || db.Statement.Context == nil {
			return
		}
		db.InstanceSet(gormStartKey, time.Now())

		parent := sentry.SpanFromContext(db.Statement.Context)
		if parent == nil {
			return
		}
		span := parent.StartChild(op)
		span.Description = db.Statement.Table
		if span.Description == "" {
			span.Description = "unknown"
		}
		span.SetData("db.system", p.system)
		db.InstanceSet(gormSpanKey, span)
		db.Statement.Context = span.Context()
	}
}

func (p *GormPlugin) after(db *gorm.DB) {
	if db.Statement == nil {
		return
	}
	startVal, ok := db.InstanceGet(gormStartKey)
	if !ok {
		return
	}
	start, _ := startVal.(time.Time)
	spanVal, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := spanVal.(*sentry.Span)
	if !ok || span == nil {
		return
	}
	span.SetData("db.rows_affected", db.RowsAffected)
	err := db.Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	finish(span, time.Since(start), p.threshold, err)
}
