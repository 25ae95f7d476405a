package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDefaults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	systems := store.Systems()
	require.Len(t, systems, 3)

	erp, ok := store.System("erp_sap")
	require.True(t, ok)
	assert.Equal(t, "SAP ERP", erp.Name)

	_, ok = store.System("nope")
	assert.False(t, ok)
}

func TestStoreCredentialRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SetCredential("erp_sap", "alice", "s3cret"))

	username, password, ok := store.Credential("erp_sap")
	require.True(t, ok)
	assert.Equal(t, "alice", username)
	assert.Equal(t, "s3cret", password)

	_, _, ok = store.Credential("reimburse")
	assert.False(t, ok)
}

func TestStorePasswordEncryptedOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SetCredential("erp_sap", "alice", "s3cret"))

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.Contains(t, string(raw), "encrypted: true")
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetCredential("tax_platform", "bob", "pw123"))

	reopened, err := NewStore(dir)
	require.NoError(t, err)

	username, password, ok := reopened.Credential("tax_platform")
	require.True(t, ok)
	assert.Equal(t, "bob", username)
	assert.Equal(t, "pw123", password)
}

func TestCredentialCipher(t *testing.T) {
	dir := t.TempDir()
	cipher, err := newCredentialCipher(filepath.Join(dir, ".key"))
	require.NoError(t, err)

	encrypted, err := cipher.encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "hunter2")

	plaintext, err := cipher.decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)

	// Same key file, fresh cipher: must still decrypt.
	again, err := newCredentialCipher(filepath.Join(dir, ".key"))
	require.NoError(t, err)
	plaintext, err = again.decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)

	_, err = cipher.decrypt("not-hex:data")
	assert.Error(t, err)

	_, err = cipher.decrypt("garbage")
	assert.Error(t, err)
}

func TestDefaultDataDirOverride(t *testing.T) {
	t.Setenv("INVOICEFILL_DATA_DIR", "/tmp/invoicefill-test")
	dir, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/invoicefill-test", dir)
}
