package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/mind-engage/xapi-tracker/internal/settings"
)

// Cache keys in the settings store (global scope).
const (
	KeyAccessToken      = "oauth_access_token"
	KeyExpiresAt        = "oauth_expires_at"
	KeyRefreshToken     = "oauth_refresh_token"
	KeyRefreshExpiresAt = "oauth_refresh_expires_at"
)

// OAuth2Token is the cached credential. Times are epoch seconds; a zero
// RefreshExpiresAt with a refresh token means the server gave no limit.
type OAuth2Token struct {
	AccessToken      string
	ExpiresAt        int64
	RefreshToken     string
	RefreshExpiresAt int64
}

type TokenState int

const (
	NoToken TokenState = iota
	Valid
	Expired
	RefreshExpired
)

func (s TokenState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case RefreshExpired:
		return "refresh-expired"
	}
	return "no-token"
}

// State classifies t at epoch second now.
func (t OAuth2Token) State(now int64) TokenState {
	switch {
	case t.AccessToken == "":
		return NoToken
	case now <= t.ExpiresAt:
		return Valid
	case t.RefreshToken != "" && (t.RefreshExpiresAt == 0 || now <= t.RefreshExpiresAt):
		return Expired
	default:
		return RefreshExpired
	}
}

// TokenManager acquires, caches and refreshes the LRS bearer token with
// the password and refresh_token grants.
type TokenManager struct {
	Store     settings.Store
	OAuth     oauth2.Config
	Username  string
	Password  string
	LogoutURL string
	HTTP      *http.Client
	Now       func() time.Time
	Log       logrus.FieldLogger
}

// NewTokenManager wires a manager from resolved options.
func NewTokenManager(store settings.Store, o settings.Options, hc *http.Client, log logrus.FieldLogger) *TokenManager {
	return &TokenManager{
		Store: store,
		OAuth: oauth2.Config{
			ClientID: o.OAuth.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: o.OAuth.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		Username:  o.LRS.Username,
		Password:  o.LRS.Password,
		LogoutURL: o.OAuth.LogoutURL,
		HTTP:      hc,
		Now:       time.Now,
		Log:       log,
	}
}

func (m *TokenManager) now() int64 {
	if m.Now == nil {
		return time.Now().Unix()
	}
	return m.Now().Unix()
}

func (m *TokenManager) ctx(ctx context.Context) context.Context {
	if m.HTTP == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.HTTP)
}

// Cached reads the token cache; unreadable fields come back zero.
func (m *TokenManager) Cached(ctx context.Context) OAuth2Token {
	get := func(k string) string {
		v, _, err := m.Store.Get(ctx, settings.ScopeGlobal, "", k)
		if err != nil {
			m.Log.WithError(err).WithField("key", k).Warn("oauth2 cache read failed")
		}
		return v
	}
	num := func(k string) int64 {
		n, _ := strconv.ParseInt(get(k), 10, 64)
		return n
	}
	return OAuth2Token{
		AccessToken:      get(KeyAccessToken),
		ExpiresAt:        num(KeyExpiresAt),
		RefreshToken:     get(KeyRefreshToken),
		RefreshExpiresAt: num(KeyRefreshExpiresAt),
	}
}

func (m *TokenManager) save(ctx context.Context, t OAuth2Token) {
	vals := map[string]string{
		KeyAccessToken:      t.AccessToken,
		KeyExpiresAt:        strconv.FormatInt(t.ExpiresAt, 10),
		KeyRefreshToken:     t.RefreshToken,
		KeyRefreshExpiresAt: strconv.FormatInt(t.RefreshExpiresAt, 10),
	}
	for k, v := range vals {
		if err := m.Store.Set(ctx, settings.ScopeGlobal, "", k, v); err != nil {
			m.Log.WithError(err).WithField("key", k).Error("oauth2 cache write failed")
		}
	}
}

// AccessToken returns a usable access token, talking to the token endpoint
// only when the cache says so. Failures are logged and whatever token is
// cached (possibly "") is returned.
func (m *TokenManager) AccessToken(ctx context.Context) string {
	cached := m.Cached(ctx)
	now := m.now()
	state := cached.State(now)
	log := m.Log.WithField("token_state", state.String())

	switch state {
	case Valid:
		return cached.AccessToken
	case Expired:
		tok, err := m.OAuth.TokenSource(m.ctx(ctx), &oauth2.Token{RefreshToken: cached.RefreshToken}).Token()
		if err != nil {
			log.WithError(err).Error("oauth2 refresh grant failed")
			return cached.AccessToken
		}
		next := cached
		next.AccessToken = tok.AccessToken
		next.ExpiresAt = now + m.lifetime(tok, now)
		if tok.RefreshToken != "" {
			next.RefreshToken = tok.RefreshToken
		}
		if s, ok := extraSeconds(tok, "refresh_expires_in"); ok && s > 0 {
			next.RefreshExpiresAt = now + s
		}
		m.save(ctx, next)
		log.Debug("oauth2 token refreshed")
		return next.AccessToken
	default:
		tok, err := m.OAuth.PasswordCredentialsToken(m.ctx(ctx), m.Username, m.Password)
		if err != nil {
			log.WithError(err).Error("oauth2 password grant failed")
			return cached.AccessToken
		}
		next := OAuth2Token{
			AccessToken:  tok.AccessToken,
			ExpiresAt:    now + m.lifetime(tok, now),
			RefreshToken: tok.RefreshToken,
		}
		if s, ok := extraSeconds(tok, "refresh_expires_in"); ok && s > 0 {
			next.RefreshExpiresAt = now + s
		}
		m.save(ctx, next)
		log.Debug("oauth2 token acquired")
		return next.AccessToken
	}
}

// Authorization is the Bearer header value. An empty token still yields
// "Bearer " so the LRS rejects the request instead of the dispatch failing.
func (m *TokenManager) Authorization(ctx context.Context) string {
	return "Bearer " + m.AccessToken(ctx)
}

// lifetime is expires_in, else the access token's JWT exp, else zero.
func (m *TokenManager) lifetime(tok *oauth2.Token, now int64) int64 {
	if s, ok := extraSeconds(tok, "expires_in"); ok {
		return s
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Unix() - now
		}
	}
	return 0
}

// Logout ends the server-side session when a logout endpoint is set and
// always clears the local cache.
func (m *TokenManager) Logout(ctx context.Context) error {
	cached := m.Cached(ctx)
	for _, k := range []string{KeyAccessToken, KeyExpiresAt, KeyRefreshToken, KeyRefreshExpiresAt} {
		if err := m.Store.Delete(ctx, settings.ScopeGlobal, "", k); err != nil {
			m.Log.WithError(err).WithField("key", k).Warn("oauth2 cache clear failed")
		}
	}
	if m.LogoutURL == "" || cached.RefreshToken == "" {
		return nil
	}
	form := url.Values{}
	form.Set("client_id", m.OAuth.ClientID)
	form.Set("refresh_token", cached.RefreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.LogoutURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("oauth2 logout: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hc := m.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("oauth2 logout: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("oauth2 logout: server returned %s", resp.Status)
	}
	return nil
}

func extraSeconds(tok *oauth2.Token, key string) (int64, bool) {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
