package test

import (
	"extension-portal/config"
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/storage"
	"extension-portal/internal/model"
	"extension-portal/internal/proposal"
	"extension-portal/tools"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Setup 使用内存 sqlite 和临时目录初始化全局依赖
func Setup(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Mode = config.ModeTest
	cfg.JWT.AccessSecret = "test-secret"
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.Mysql = config.Mysql{Driver: database.DriverSQLite, DBName: "file:" + name + "?mode=memory&cache=shared"}
	cfg.Redis = config.Redis{}
	cfg.Sentry = config.Sentry{}
	cfg.Storage.Home = t.TempDir()
	config.Set(cfg)

	db, err := database.Open(cfg.Mysql, cfg.Mode)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 共享缓存的内存库不支持并发写
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database.DB = db
	cache.Client = nil
	storage.Default = storage.NewLocal(cfg.Storage.Home, cfg.Storage.BaseURL)
}

// CreateUser 创建账号并返回其访问令牌
func CreateUser(t *testing.T, username string, roleID int, name string) (model.User, string) {
	t.Helper()
	hash, err := tools.PasswordHash("password123")
	require.NoError(t, err)
	u := model.User{
		Username:   username,
		Password:   hash,
		RoleID:     roleID,
		Name:       name,
	}
	// 不给姓名时资料全部留空
	if name != "" {
		u.Email = username + "@example.edu"
		u.Department = "CAS"
	}
	require.NoError(t, database.DB.Create(&u).Error)
	return u, jwt.CreateToken(jwt.Payload{UserID: u.ID, RoleID: u.RoleID})
}

// CreateProgram 写入一份申报书并直接设置评审状态
func CreateProgram(t *testing.T, ownerID uint, title, status string) model.Program {
	t.Helper()
	p := proposal.NewProgram()
	p.Title = title
	p.Leader = "Dr. Reyes"
	m, err := model.NewProgram(p, ownerID)
	require.NoError(t, err)
	m.Status = status
	require.NoError(t, database.DB.Create(m).Error)
	return *m
}

// ProgramStatus 读取数据库中的评审状态
func ProgramStatus(t *testing.T, id uint) string {
	t.Helper()
	var m model.Program
	require.NoError(t, database.DB.Select("id", "status").First(&m, id).Error)
	return m.Status
}
