// ABOUTME: Tests for the SQLite key store
// ABOUTME: Covers key creation, validation, revocation, and listing

package keystore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/registre-gateway/internal/auth"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateKey_ReturnsPrefixedKey(t *testing.T) {
	store := openTestStore(t)

	raw, key, err := store.CreateKey(t.Context(), "u1", "ci key")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, auth.StaticKeyPrefix))
	assert.NotEmpty(t, key.ID)
	assert.Equal(t, "u1", key.Identity)
	assert.False(t, key.Revoked)
}

func TestValidate_KnownKey(t *testing.T) {
	store := openTestStore(t)

	raw, _, err := store.CreateKey(t.Context(), "u1", "ci key")
	require.NoError(t, err)

	id, err := store.Validate(t.Context(), raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.Key)
	assert.Equal(t, "ci key", id.DisplayLabel)
}

func TestValidate_UnknownKey(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Validate(t.Context(), auth.StaticKeyPrefix+"deadbeef")
	assert.ErrorIs(t, err, auth.ErrUnknownKey)
}

func TestValidate_RevokedKey(t *testing.T) {
	store := openTestStore(t)

	raw, key, err := store.CreateKey(t.Context(), "u1", "ci key")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(t.Context(), key.ID))

	_, err = store.Validate(t.Context(), raw)
	assert.ErrorIs(t, err, auth.ErrUnknownKey)
}

func TestRevoke_UnknownID(t *testing.T) {
	store := openTestStore(t)

	err := store.Revoke(t.Context(), "no-such-id")
	assert.ErrorIs(t, err, auth.ErrUnknownKey)
}

func TestListKeys(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.CreateKey(t.Context(), "u1", "first")
	require.NoError(t, err)
	_, k2, err := store.CreateKey(t.Context(), "u2", "second")
	require.NoError(t, err)
	require.NoError(t, store.Revoke(t.Context(), k2.ID))

	keys, err := store.ListKeys(t.Context())
	require.NoError(t, err)
	require.Len(t, keys, 2)

	byIdentity := map[string]bool{}
	for _, k := range keys {
		byIdentity[k.Identity] = k.Revoked
	}
	assert.False(t, byIdentity["u1"])
	assert.True(t, byIdentity["u2"])
}
