package session

import (
	"database/sql"
	"errors"
	"log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"bhcpharm/m/domain"
)

// tokenKey is the fixed storage key the bearer token lives under.
const tokenKey = "bhc_auth_token"

type authClaims struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Store holds the bearer token and the authenticated principal. The token is
// persisted in the local session database so it survives a restart; the
// principal is recovered from the token's claims on open. No expiry check
// happens client-side: a stale token is only discovered via a 401, which
// callers report through Invalidate.
type Store struct {
	db        *sqlx.DB
	token     string
	principal domain.Principal
	active    bool
}

// Open loads any persisted token. A token whose claims cannot be decoded is
// discarded rather than carried into a half-usable session.
func Open(db *sqlx.DB) *Store {
	s := &Store{db: db}

	var token string
	err := db.Get(&token, `SELECT value FROM session WHERE key = ?`, tokenKey)
	if errors.Is(err, sql.ErrNoRows) || token == "" {
		return s
	}
	if err != nil {
		log.Printf("unable to read stored session: %v", err)
		return s
	}

	principal, ok := principalFromToken(token)
	if !ok {
		log.Printf("discarding stored token with unreadable claims")
		s.discard()
		return s
	}

	s.token = token
	s.principal = principal
	s.active = true
	return s
}

// principalFromToken decodes the claims without verifying the signature.
// The server is the only verifier; the client just needs the identity the
// token was issued for.
func principalFromToken(token string) (domain.Principal, bool) {
	var claims authClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.Principal{}, false
	}
	if claims.UserID == 0 && claims.Username == "" {
		return domain.Principal{}, false
	}
	return domain.Principal{
		ID:       claims.UserID,
		Name:     claims.Name,
		Username: claims.Username,
		Role:     domain.ParseRole(claims.Role),
	}, true
}

// Activate stores a freshly issued token and its principal.
func (s *Store) Activate(token string, principal domain.Principal) error {
	if _, err := s.db.Exec(`INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, tokenKey, token); err != nil {
		return err
	}
	s.token = token
	s.principal = principal
	s.active = true
	return nil
}

// Invalidate clears the session. Idempotent; also the landing point for the
// gateway's implicit logout on 401.
func (s *Store) Invalidate() {
	s.discard()
	s.token = ""
	s.principal = domain.Principal{}
	s.active = false
}

func (s *Store) discard() {
	if _, err := s.db.Exec(`DELETE FROM session WHERE key = ?`, tokenKey); err != nil {
		log.Printf("unable to clear stored session: %v", err)
	}
}

func (s *Store) Token() (string, bool) {
	return s.token, s.active
}

func (s *Store) Principal() (domain.Principal, bool) {
	return s.principal, s.active
}

func (s *Store) Authenticated() bool {
	return s.active
}

// IsAdmin reports whether the current principal carries the admin role. Role
// is an enum resolved once at login, not re-parsed per check.
func (s *Store) IsAdmin() bool {
	return s.active && s.principal.Role == domain.RoleAdmin
}
