// Package session 客户端登录状态。
// 其他组件只通过 Accessor 读取 token，不直接访问底层存储
package session

import (
	"sync"
	"time"
)

// AuthState 一次登录得到的凭据
type AuthState struct {
	Token     string    `yaml:"token" json:"token"`
	UserID    uint      `yaml:"user_id" json:"user_id"`
	RoleID    int       `yaml:"role_id" json:"role_id"`
	Username  string    `yaml:"username" json:"username"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty" json:"expires_at"`
}

// Expired 没有 token 或已过期
func (s AuthState) Expired(now time.Time) bool {
	if s.Token == "" {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Accessor 注入给后端客户端等组件使用
type Accessor interface {
	Token() string
	Set(state AuthState) error
	Clear() error
}

// Store 登录状态的持久化方式
type Store interface {
	Load() (AuthState, error)
	Save(state AuthState) error
	Delete() error
}

// Session 并发安全的 Accessor 实现，写操作同步落到 Store
type Session struct {
	mu    sync.RWMutex
	store Store
	state AuthState
	now   func() time.Time
}

// New 从 store 读取已有状态
func New(store Store) (*Session, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{store: store, state: state, now: time.Now}, nil
}

// Token 已过期时返回空串
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Expired(s.now()) {
		return ""
	}
	return s.state.Token
}

func (s *Session) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) Set(state AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(state); err != nil {
		return err
	}
	s.state = state
	return nil
}

// Clear 清空内存和存储中的状态，存储删除失败时内存状态也会被清空
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = AuthState{}
	return s.store.Delete()
}

var (
	instance *Session
	mu       sync.Mutex
)

// Init 设置进程级会话，重复调用会替换之前的会话
func Init(store Store) error {
	s, err := New(store)
	if err != nil {
		return err
	}
	mu.Lock()
	instance = s
	mu.Unlock()
	return nil
}

// Get 返回进程级会话，未 Init 时使用内存存储
func Get() *Session {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance, _ = New(NewMemoryStore())
	}
	return instance
}

// Clear 清空进程级会话
func Clear() error {
	return Get().Clear()
}
