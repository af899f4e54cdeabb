package posd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"nexuscash/observability/logging"
)

// AuthStorageKey is the key the login session blob is persisted under.
const AuthStorageKey = "ncash-auth-session"

const (
	DemoEmail  = "demo.ncash@gmail.com"
	DemoWallet = "bitcoincash:qdemo...wallet"

	walletPrefix    = "bitcoincash:"
	minWalletLength = 14
)

var (
	// ErrInvalidEmail rejects anything but a gmail address.
	ErrInvalidEmail = errors.New("auth: use a valid Gmail account (for example name@gmail.com)")
	// ErrInvalidWallet rejects addresses without the bitcoincash: prefix.
	ErrInvalidWallet = errors.New("auth: use a valid BCH address starting with bitcoincash:")
)

var gmailPattern = regexp.MustCompile(`(?i)^[^\s@]+@gmail\.com$`)

// KV persists small string blobs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// AuthSession is the operator's login state.
type AuthSession struct {
	GoogleEmail   *string `json:"googleEmail"`
	WalletAddress *string `json:"walletAddress"`
}

// Authenticated reports whether both identities are connected.
func (a AuthSession) Authenticated() bool {
	return a.GoogleEmail != nil && *a.GoogleEmail != "" && a.WalletAddress != nil && *a.WalletAddress != ""
}

// MarshalJSON includes the derived authenticated flag.
func (a AuthSession) MarshalJSON() ([]byte, error) {
	type plain AuthSession
	return json.Marshal(struct {
		plain
		Authenticated bool `json:"isAuthenticated"`
	}{plain(a), a.Authenticated()})
}

// Auth keeps the login session and mirrors every change to a KV store.
type Auth struct {
	kv     KV
	logger *slog.Logger

	mu      sync.Mutex
	session AuthSession
}

// NewAuth restores the persisted session. A blob that cannot be decoded is
// deleted and the operator starts logged out.
func NewAuth(ctx context.Context, kv KV, logger *slog.Logger) (*Auth, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Auth{kv: kv, logger: logger}
	raw, ok, err := kv.Get(ctx, AuthStorageKey)
	if err != nil {
		return nil, fmt.Errorf("auth: load session: %w", err)
	}
	if !ok || raw == "" {
		return a, nil
	}
	var restored AuthSession
	if err := json.Unmarshal([]byte(raw), &restored); err != nil {
		logger.Warn("discarding corrupt login session", "error", err)
		if err := kv.Delete(ctx, AuthStorageKey); err != nil {
			return nil, fmt.Errorf("auth: delete corrupt session: %w", err)
		}
		return a, nil
	}
	a.session = restored
	return a, nil
}

// Session returns the current login state.
func (a *Auth) Session() AuthSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// ConnectGoogle records a gmail identity.
func (a *Auth) ConnectGoogle(ctx context.Context, email string) (AuthSession, error) {
	value := strings.ToLower(strings.TrimSpace(email))
	if !gmailPattern.MatchString(value) {
		return a.Session(), ErrInvalidEmail
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.session
	next.GoogleEmail = &value
	if err := a.persistLocked(ctx, next); err != nil {
		return a.session, err
	}
	a.logger.Info("google account connected", logging.MaskField("email", value))
	return a.session, nil
}

// ConnectWallet records the operator wallet.
func (a *Auth) ConnectWallet(ctx context.Context, address string) (AuthSession, error) {
	value := strings.TrimSpace(address)
	if !strings.HasPrefix(value, walletPrefix) || len(value) < minWalletLength {
		return a.Session(), ErrInvalidWallet
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.session
	next.WalletAddress = &value
	if err := a.persistLocked(ctx, next); err != nil {
		return a.session, err
	}
	a.logger.Info("wallet connected", logging.MaskWallet("wallet", value))
	return a.session, nil
}

// QuickDemoLogin connects the demo identities.
func (a *Auth) QuickDemoLogin(ctx context.Context) (AuthSession, error) {
	email, wallet := DemoEmail, DemoWallet
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.persistLocked(ctx, AuthSession{GoogleEmail: &email, WalletAddress: &wallet}); err != nil {
		return a.session, err
	}
	a.logger.Info("demo login")
	return a.session, nil
}

// Logout clears the session and removes the persisted blob.
func (a *Auth) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.kv.Delete(ctx, AuthStorageKey); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	a.session = AuthSession{}
	a.logger.Info("logged out")
	return nil
}

func (a *Auth) persistLocked(ctx context.Context, next AuthSession) error {
	raw, err := json.Marshal(struct {
		GoogleEmail   *string `json:"googleEmail"`
		WalletAddress *string `json:"walletAddress"`
	}{next.GoogleEmail, next.WalletAddress})
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}
	if err := a.kv.Put(ctx, AuthStorageKey, string(raw)); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	a.session = next
	return nil
}
