package refs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bookmarks are copied out", func(t *testing.T) {
		t.Parallel()
		s := NewMemStore()
		require.NoError(t, s.SetBookmark(ctx, "main", "aaa"))
		got, err := s.Bookmarks(ctx)
		require.NoError(t, err)
		got["main"] = "zzz"

		again, err := s.Bookmarks(ctx)
		require.NoError(t, err)
		require.Equal(t, "aaa", again["main"])
	})

	t.Run("invalid names are rejected", func(t *testing.T) {
		t.Parallel()
		s := NewMemStore()
		require.Error(t, s.SetBookmark(ctx, "", "aaa"))
		require.Error(t, s.SetBookmark(ctx, "has space", "aaa"))
	})

	t.Run("referenced includes the working-copy parent", func(t *testing.T) {
		t.Parallel()
		s := NewMemStore()
		require.NoError(t, s.SetBookmark(ctx, "feature", "bbb"))
		require.NoError(t, s.SetWorkingCopyParent(ctx, "ccc"))
		got, err := Referenced(ctx, s)
		require.NoError(t, err)
		require.Equal(t, map[string]bool{"bbb": true, "ccc": true}, got)
		require.Equal(t, []string{"feature"}, SortedNames(map[string]string{"feature": "bbb"}))
	})
}
