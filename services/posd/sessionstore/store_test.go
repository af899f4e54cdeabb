package sessionstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, ok, err := store.Get(ctx, "ncash-auth-session")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "ncash-auth-session", `{"googleEmail":"a@gmail.com"}`))
	require.NoError(t, store.Put(ctx, "ncash-auth-session", `{"googleEmail":"b@gmail.com"}`))
	value, ok, err := store.Get(ctx, "ncash-auth-session")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"googleEmail":"b@gmail.com"}`, value)

	require.NoError(t, store.Delete(ctx, "ncash-auth-session"))
	require.NoError(t, store.Delete(ctx, "ncash-auth-session"))
	_, ok, err = store.Get(ctx, "ncash-auth-session")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRejectsNil(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "k", "v"))
	v, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", v)
	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, _ = m.Get(ctx, "k")
	require.False(t, ok)
}
