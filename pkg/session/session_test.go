package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrine/storefront_sdk_go/pkg/session"
)

func TestSessionCredentialsLifecycle(t *testing.T) {
	s := session.New(nil)
	assert.False(t, s.SignedIn())

	u, err := s.User()
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.SetCredentials("tok", session.User{ID: 9, Name: "Ana", Role: session.RoleSeller}))
	assert.Equal(t, "tok", s.Token())
	u, err = s.User()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsSeller())

	require.NoError(t, s.Teardown(true))
	assert.Empty(t, s.Token())
	assert.True(t, s.Expired())
	u, err = s.User()
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.SetCredentials("tok2", session.User{ID: 9}))
	assert.False(t, s.Expired())
}

func TestSessionVoluntaryTeardownKeepsExpiredUnset(t *testing.T) {
	s := session.New(session.NewMemoryStore())
	require.NoError(t, s.SetCredentials("tok", session.User{ID: 1}))
	require.NoError(t, s.Teardown(false))
	assert.False(t, s.Expired())
}

func TestSessionRejectsEmptyToken(t *testing.T) {
	s := session.New(nil)
	require.Error(t, s.SetCredentials("  ", session.User{}))
}

func TestActiveTab(t *testing.T) {
	s := session.New(nil)
	assert.Empty(t, s.ActiveTab())
	require.NoError(t, s.SetActiveTab("products"))
	assert.Equal(t, "products", s.ActiveTab())
	require.NoError(t, s.SetActiveTab(""))
	assert.Empty(t, s.ActiveTab())
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	fs, err := session.NewFileStore(path)
	require.NoError(t, err)
	s := session.New(fs)
	require.NoError(t, s.SetCredentials("persisted", session.User{ID: 3, Role: session.RoleCustomer}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := session.NewFileStore(path)
	require.NoError(t, err)
	s2 := session.New(reopened)
	assert.Equal(t, "persisted", s2.Token())

	keys, err := reopened.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{session.KeyToken, session.KeyUser}, keys)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := session.NewFileStore(path)
	require.Error(t, err)
}

func TestMemoryStoreNotFound(t *testing.T) {
	m := session.NewMemoryStore()
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
