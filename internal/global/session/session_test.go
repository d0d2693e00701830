package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionLifecycle(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.Set(AuthState{Token: "abc", UserID: 3, RoleID: 2}))
	assert.Equal(t, "abc", s.Token())
	assert.Equal(t, uint(3), s.State().UserID)

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.Equal(t, AuthState{}, s.State())
}

func TestExpiredTokenIsHidden(t *testing.T) {
	s, err := New(NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, s.Set(AuthState{Token: "abc", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.Empty(t, s.Token())
	assert.False(t, s.LoggedIn())
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewFileStore(path)

	s, err := New(store)
	require.NoError(t, err)
	assert.Empty(t, s.Token())

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(AuthState{Token: "tok", UserID: 9, RoleID: 2, Username: "admin", ExpiresAt: expires}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, "tok", reopened.Token())
	assert.Equal(t, "admin", reopened.State().Username)
	assert.True(t, expires.Equal(reopened.State().ExpiresAt))

	require.NoError(t, reopened.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	// 重复清除不报错
	require.NoError(t, reopened.Clear())
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unterminated"), 0o600))
	_, err := New(NewFileStore(path))
	assert.Error(t, err)
}

func TestProcessWideSession(t *testing.T) {
	require.NoError(t, Init(NewMemoryStore()))
	require.NoError(t, Get().Set(AuthState{Token: "x"}))
	assert.Equal(t, "x", Get().Token())
	require.NoError(t, Clear())
	assert.Empty(t, Get().Token())
}
