package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type MemoryStore struct {
	mu    sync.Mutex
	state AuthState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (AuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(state AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = AuthState{}
	return nil
}

// FileStore 以 yaml 保存在本地文件，权限 0600
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultPath 用户配置目录下的 extension-portal/session.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "extension-portal", "session.yaml"), nil
}

// Load 文件不存在视为未登录
func (f *FileStore) Load() (AuthState, error) {
	var state AuthState
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, pkgerrors.Wrap(err, "read session file")
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return AuthState{}, pkgerrors.Wrapf(err, "parse session file %s", f.Path)
	}
	return state, nil
}

func (f *FileStore) Save(state AuthState) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return pkgerrors.Wrap(err, "create session dir")
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return pkgerrors.Wrap(os.WriteFile(f.Path, data, 0o600), "write session file")
}

func (f *FileStore) Delete() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrap(err, "remove session file")
	}
	return nil
}
