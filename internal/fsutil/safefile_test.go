package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeWrite(t *testing.T) {
	t.Parallel()

	t.Run("creates parent dirs and replaces content", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "state")
		require.NoError(t, SafeWrite(path, []byte("one"), 0o600))
		require.NoError(t, SafeWrite(path, []byte("two"), 0o600))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "two", string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1, "no temp files left behind")
	})
}

func TestSafeAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log")
	require.NoError(t, SafeAppend(path, []byte("a\n")))
	require.NoError(t, SafeAppend(path, []byte("b\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))

	require.NoError(t, RemoveDurable(path))
	require.NoError(t, RemoveDurable(path), "removing a missing file is fine")
}

func TestTrimPartialLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, in, want string
	}{
		{"complete lines are untouched", "a\nb\n", "a\nb\n"},
		{"an unterminated tail is dropped", "a\nb", "a\n"},
		{"a file with no newline is emptied", "ab", ""},
		{"an empty file stays empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "log")
			require.NoError(t, os.WriteFile(path, []byte(tc.in), 0o644))
			require.NoError(t, TrimPartialLine(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(data))
		})
	}

	t.Run("a missing file is left missing", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "log")
		require.NoError(t, TrimPartialLine(path))
		require.NoFileExists(t, path)
	})
}
