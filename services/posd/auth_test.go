package posd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"nexuscash/services/posd/sessionstore"
)

func TestConnectGoogleNormalizesAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := sessionstore.NewMemory()
	auth, err := NewAuth(ctx, kv, nil)
	require.NoError(t, err)

	session, err := auth.ConnectGoogle(ctx, "  Cashier@GMAIL.com ")
	require.NoError(t, err)
	require.Equal(t, "cashier@gmail.com", *session.GoogleEmail)
	require.False(t, session.Authenticated())

	raw, ok, err := kv.Get(ctx, AuthStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"googleEmail":"cashier@gmail.com","walletAddress":null}`, raw)
}

func TestConnectRejectsInvalidIdentities(t *testing.T) {
	ctx := context.Background()
	auth, err := NewAuth(ctx, sessionstore.NewMemory(), nil)
	require.NoError(t, err)

	for _, email := range []string{"", "cashier@yahoo.com", "two words@gmail.com", "@gmail.com"} {
		_, err := auth.ConnectGoogle(ctx, email)
		require.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	for _, wallet := range []string{"", "qz3f8a2c", "bitcoincash:q", "  bitcoin:qz3f...8a2c"} {
		_, err := auth.ConnectWallet(ctx, wallet)
		require.ErrorIs(t, err, ErrInvalidWallet, wallet)
	}
	require.Nil(t, auth.Session().GoogleEmail)
	require.Nil(t, auth.Session().WalletAddress)
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := sessionstore.NewMemory()
	auth, err := NewAuth(ctx, kv, nil)
	require.NoError(t, err)
	_, err = auth.ConnectGoogle(ctx, "cashier@gmail.com")
	require.NoError(t, err)
	_, err = auth.ConnectWallet(ctx, " bitcoincash:qz3f...8a2c ")
	require.NoError(t, err)

	restored, err := NewAuth(ctx, kv, nil)
	require.NoError(t, err)
	session := restored.Session()
	require.True(t, session.Authenticated())
	require.Equal(t, "bitcoincash:qz3f...8a2c", *session.WalletAddress)
}

func TestCorruptSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := sessionstore.NewMemory()
	require.NoError(t, kv.Put(ctx, AuthStorageKey, "{not json"))

	auth, err := NewAuth(ctx, kv, nil)
	require.NoError(t, err)
	require.False(t, auth.Session().Authenticated())
	_, ok, err := kv.Get(ctx, AuthStorageKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDemoLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	kv := sessionstore.NewMemory()
	auth, err := NewAuth(ctx, kv, nil)
	require.NoError(t, err)

	session, err := auth.QuickDemoLogin(ctx)
	require.NoError(t, err)
	require.True(t, session.Authenticated())
	require.Equal(t, DemoEmail, *session.GoogleEmail)
	require.Equal(t, DemoWallet, *session.WalletAddress)

	encoded, err := json.Marshal(session)
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"isAuthenticated":true`)

	require.NoError(t, auth.Logout(ctx))
	require.False(t, auth.Session().Authenticated())
	_, ok, err := kv.Get(ctx, AuthStorageKey)
	require.NoError(t, err)
	require.False(t, ok)
}
