package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	t.Setenv("RL_TEST_KEY", "AIza-secret")
	t.Setenv("RL_TEST_EMPTY", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "plain-key", want: "plain-key"},
		{name: "variable", input: "${RL_TEST_KEY}", want: "AIza-secret"},
		{name: "embedded", input: "key=${RL_TEST_KEY};", want: "key=AIza-secret;"},
		{name: "fallback used", input: "${RL_TEST_EMPTY:-fallback}", want: "fallback"},
		{name: "empty fallback", input: "${RL_TEST_EMPTY:-}", want: ""},
		{name: "missing", input: "${RL_TEST_MISSING}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingVariable)
				assert.Contains(t, err.Error(), "RL_TEST_MISSING")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("trims trailing newline", func(t *testing.T) {
		path := filepath.Join(dir, "apikey")
		require.NoError(t, os.WriteFile(path, []byte(" key \n"), 0o600))

		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, " key ", got)
	})

	t.Run("permissive mode still reads", func(t *testing.T) {
		path := filepath.Join(dir, "shared")
		require.NoError(t, os.WriteFile(path, []byte("key"), 0o644))

		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "key", got)
	})

	t.Run("errors", func(t *testing.T) {
		empty := filepath.Join(dir, "empty")
		require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
		large := filepath.Join(dir, "large")
		require.NoError(t, os.WriteFile(large, make([]byte, maxFileSize+1), 0o600))

		for _, path := range []string{"", filepath.Join(dir, "missing"), dir, empty, large} {
			_, err := ReadFile(path)
			assert.Error(t, err, path)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("RL_TEST_PASSWORD", "from-env")
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Resolve(path, "${RL_TEST_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file takes precedence")

	got, err = Resolve("", "${RL_TEST_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve(filepath.Join(t.TempDir(), "nope"), "literal")
	assert.Error(t, err)
}
