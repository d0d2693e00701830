package database

import (
	"errors"
	"extension-portal/config"
	"extension-portal/internal/global/sentry/tracing"
	"extension-portal/internal/model"
	"extension-portal/tools"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

func Init() {
	cfg := config.Get()
	db, err := Open(cfg.Mysql, cfg.Mode)
	tools.PanicOnErr(err)
	DB = db
}

// Open 按 driver 建立连接并自动迁移，sqlite 时 DBName 为文件路径
func Open(cfg config.Mysql, mode config.Mode) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverMySQL, "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Username,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
		)
		dialector = mysql.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DBName)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true}, // 还是单数表名好
	}
	switch mode {
	case config.ModeDebug:
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	default:
		gormConfig.Logger = logger.Discard
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}
	if tracing.IsEnabled() {
		system := cfg.Driver
		if system == "" {
			system = DriverMySQL
		}
		if err := db.Use(tracing.NewGormPlugin(system)); err != nil {
			return nil, err
		}
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// IsDuplicate 是否违反唯一索引，兼容 MySQL 1062 与 sqlite 的 UNIQUE constraint
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
