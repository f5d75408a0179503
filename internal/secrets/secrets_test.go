package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLiteral(t *testing.T) {
	t.Parallel()
	got, err := Resolve("plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", got)
}

func TestResolveEnvironment(t *testing.T) {
	t.Setenv("MEDISCAN_TEST_SECRET", "from-env")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"${MEDISCAN_TEST_SECRET}", "from-env", false},
		{"pre-${MEDISCAN_TEST_SECRET}-post", "pre-from-env-post", false},
		{"${MEDISCAN_TEST_UNSET:-fallback}", "fallback", false},
		{"${MEDISCAN_TEST_UNSET:-}", "", false},
		{"${MEDISCAN_TEST_UNSET}", "", true},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMissing, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolveFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(path, []byte("s3cr3t\n"), 0o600))
	got, err := Resolve(FilePrefix + path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = Resolve(FilePrefix + empty)
	require.ErrorIs(t, err, ErrMissing)

	_, err = Resolve(FilePrefix + filepath.Join(dir, "absent"))
	require.ErrorIs(t, err, ErrMissing)

	_, err = Resolve(FilePrefix + dir)
	assert.Error(t, err)
}
