package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) *EnvFileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	store, err := NewEnvFileStore(path)
	require.NoError(t, err)
	return store
}

func TestEnvFileRoundTrip(t *testing.T) {
	store := writeEnvFile(t, "CANARY_PERCENTAGE=5\nCANARY_TESTING_ENABLED=true\nAPP_IMAGE_TAG=v1.0.0\n")

	pct, err := store.Percentage()
	require.NoError(t, err)
	assert.Equal(t, 5, pct)

	require.NoError(t, store.SetPercentage(20))
	pct, err = store.Percentage()
	require.NoError(t, err)
	assert.Equal(t, 20, pct)

	require.NoError(t, store.SetEnabled(false))
	enabled, err := store.Enabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, store.SetImageTag("v1.1.0"))
	tag, err := store.ImageTag()
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", tag)
}

func TestEnvFilePreservesUnrelatedLines(t *testing.T) {
	store := writeEnvFile(t, "# deployment configuration\nDB_HOST=db\n\nCANARY_PERCENTAGE=5\nDB_PORT=5432\n")

	require.NoError(t, store.SetPercentage(50))

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Equal(t, "# deployment configuration\nDB_HOST=db\n\nCANARY_PERCENTAGE=50\nDB_PORT=5432\n", string(data))
}

func TestEnvFileAppendsMissingKey(t *testing.T) {
	store := writeEnvFile(t, "DB_HOST=db\n")

	require.NoError(t, store.SetImageTag("v2.0.0"))

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Equal(t, "DB_HOST=db\nAPP_IMAGE_TAG=v2.0.0\n", string(data))
}

func TestEnvFileMissingKeyErrors(t *testing.T) {
	store := writeEnvFile(t, "DB_HOST=db\n")

	_, err := store.Percentage()
	assert.Error(t, err)
}

func TestEnvFileInvalidValues(t *testing.T) {
	store := writeEnvFile(t, "CANARY_PERCENTAGE=lots\nCANARY_TESTING_ENABLED=maybe\n")

	_, err := store.Percentage()
	assert.Error(t, err)
	_, err = store.Enabled()
	assert.Error(t, err)
}

func TestEnvFileMustExist(t *testing.T) {
	_, err := NewEnvFileStore(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"  KEY = value ", "KEY", "value", true},
		{"KEY=", "KEY", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"=value", "", "", false},
		{"no pair here", "", "", false},
	}
	for _, tt := range tests {
		k, v, ok := splitPair(tt.line)
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		assert.Equal(t, tt.key, k, "line %q", tt.line)
		assert.Equal(t, tt.value, v, "line %q", tt.line)
	}
}
