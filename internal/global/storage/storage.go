// Package storage 保存生成的封面文档，本地目录或 S3 兼容对象存储二选一
package storage

import (
	"context"
	"extension-portal/config"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage 按 key 保存文件并给出访问地址
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	// Link 下载地址，对象存储返回预签名 URL
	Link(ctx context.Context, key string) (string, error)
}

var Default Storage

// Init 开启 S3 时使用对象存储，否则保存到 storage.home
func Init(ctx context.Context) error {
	cfg := config.Get()
	if cfg.S3.Enable {
		s, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return err
		}
		Default = s
		return nil
	}
	Default = NewLocal(cfg.Storage.Home, cfg.Storage.BaseURL)
	return nil
}

// Local 保存到本地目录
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Path key 对应的本地文件路径，拒绝跳出保存目录的 key
func (l *Local) Path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.Dir, clean), nil
}

func (l *Local) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := l.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return l.BaseURL + "/" + strings.TrimLeft(key, "/"), nil
}

func (l *Local) Link(_ context.Context, key string) (string, error) {
	return l.BaseURL + "/" + strings.TrimLeft(key, "/"), nil
}
