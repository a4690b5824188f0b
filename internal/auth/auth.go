// Package auth issues cookie sessions from verified identity tokens or a
// Google OAuth login, and guards the API with them.
package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/httputil"
)

// TokenVerifier turns an identity token into a user.
type TokenVerifier interface {
	Verify(raw string) (*User, error)
}

// Manager handles session cookies and the auth endpoints
type Manager struct {
	config   config.AuthConfig
	verifier TokenVerifier
	store    SessionStore
	google   *googleLogin
	now      func() time.Time
}

// NewManager creates a manager. verifier may be nil, in which case
// POST /auth/session always answers 401. Google login is enabled when a
// client id is configured.
func NewManager(cfg config.AuthConfig, verifier TokenVerifier, store SessionStore) *Manager {
	m := &Manager{config: cfg, verifier: verifier, store: store, now: time.Now}
	if cfg.GoogleClientID != "" {
		m.google = newGoogleLogin(cfg)
	}
	return m
}

type sessionRequest struct {
	IDToken string `json:"idToken"`
}

func (r *sessionRequest) Validate() error {
	if r.IDToken == "" {
		return domain.NewValidationError("idToken", "is required")
	}
	return nil
}

// HandleSession exchanges an identity token for a session cookie.
func (m *Manager) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if m.verifier == nil {
		httputil.Unauthorized(w)
		return
	}
	user, err := m.verifier.Verify(req.IDToken)
	if err != nil {
		log.Printf("[auth] identity token rejected: %v", err)
		httputil.Unauthorized(w)
		return
	}
	sess, err := m.createSession(r.Context(), w, *user)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"authenticated": true, "user": sess.User})
}

// createSession stores a new session for user and sets the cookie.
func (m *Manager) createSession(ctx context.Context, w http.ResponseWriter, user User) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	now := m.now()
	sess := &Session{
		ID:        id,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.config.SessionTTL()),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	log.Printf("[auth] session created for user %s", user.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   m.config.CookieMaxAge,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// HandleLogout deletes the session and clears the cookie
func (m *Manager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil {
		if err := m.store.Delete(r.Context(), cookie.Value); err != nil {
			log.Printf("[auth] delete session: %v", err)
		}
	}
	m.clearCookie(w)
	httputil.OK(w, map[string]bool{"authenticated": false})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleUserInfo returns {authenticated, user}. Store failures are reported
// as unauthenticated rather than as an error.
func (m *Manager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	sess, err := m.GetSession(r)
	if err != nil {
		httputil.OK(w, map[string]interface{}{"authenticated": false})
		return
	}
	httputil.OK(w, map[string]interface{}{
		"authenticated": true,
		"user":          sess.User,
	})
}

// GetSession returns the session for the request. Missing cookies, unknown
// ids and expired sessions yield domain.ErrUnauthenticated.
func (m *Manager) GetSession(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, domain.ErrUnauthenticated
	}
	sess, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("[auth] session lookup failed: %v", err)
		}
		return nil, domain.ErrUnauthenticated
	}
	if sess.Expired(m.now()) {
		return nil, domain.ErrUnauthenticated
	}
	return sess, nil
}
