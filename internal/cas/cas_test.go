package cas

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	t.Parallel()

	t.Run("sorts keys at every level", func(t *testing.T) {
		t.Parallel()
		a := map[string]interface{}{"b": 1, "a": map[string]interface{}{"z": true, "y": "x"}}
		got, err := CanonicalJSON(a)
		require.NoError(t, err)
		require.Equal(t, `{"a":{"y":"x","z":true},"b":1}`, string(got))
	})

	t.Run("keeps large integers exact", func(t *testing.T) {
		t.Parallel()
		got, err := CanonicalJSON(map[string]int64{"ts": 1712345678901234567})
		require.NoError(t, err)
		require.Equal(t, `{"ts":1712345678901234567}`, string(got))
	})
}

func TestKindID(t *testing.T) {
	t.Parallel()

	t.Run("equal payloads hash equally regardless of field order", func(t *testing.T) {
		t.Parallel()
		id1, err := KindID("commit", map[string]interface{}{"a": "1", "b": "2"})
		require.NoError(t, err)
		id2, err := KindID("commit", map[string]interface{}{"b": "2", "a": "1"})
		require.NoError(t, err)
		require.Equal(t, id1, id2)
		require.Len(t, id1, 64)
	})

	t.Run("kind participates in the id", func(t *testing.T) {
		t.Parallel()
		id1, err := KindID("commit", map[string]string{"a": "1"})
		require.NoError(t, err)
		id2, err := KindID("tree", map[string]string{"a": "1"})
		require.NoError(t, err)
		require.NotEqual(t, id1, id2)
	})
}

func TestShort(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0123456789ab", Short("0123456789abcdef"))
	require.Equal(t, "abc", Short("abc"))
	require.True(t, IsHex("00ff"))
	require.False(t, IsHex("main"))
	require.False(t, IsHex(""))
}
