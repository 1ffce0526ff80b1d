package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

const (
	credFileName = "credentials.json"
	// EnvToken overrides the saved token when set.
	EnvToken = "TADA_TOKEN"
)

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // from the JWT exp claim, if any
}

// Expired reports whether the token has a known expiry in the past.
func (ti TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && now.After(*ti.ExpiresAt)
}

// Store keeps the bearer token sent to the GraphQL endpoint.
type Store struct {
	dir    string
	lookup func(string) (string, bool)
	now    func() time.Time
}

// NewStore keeps credentials under dir. lookup reads the environment; nil means os.LookupEnv.
func NewStore(dir string, lookup func(string) (string, bool)) *Store {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Store{dir: dir, lookup: lookup, now: time.Now}
}

func (s *Store) path() string { return filepath.Join(s.dir, credFileName) }

// Get returns the active token, or nil when not logged in.
func (s *Store) Get() (*TokenInfo, error) {
	// 1) env override
	env, _ := s.lookup(EnvToken)
	if tok := stripBearer(env); tok != "" {
		return &TokenInfo{Token: tok, Source: "env", ExpiresAt: expiry(tok)}, nil
	}

	// 2) file
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

// Set saves token to the credentials file (0600 in a 0700 dir).
func (s *Store) Set(token string) (*TokenInfo, error) {
	token = stripBearer(token)
	if token == "" {
		return nil, errors.New("empty token")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiry(token),
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return &ti, nil
}

// Delete removes the credentials file. Missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Claims decodes a JWT payload without verifying its signature.
// The server verifies; this is only for display.
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("not a JWT: %w", err)
	}
	return claims, nil
}

func expiry(token string) *time.Time {
	claims, err := Claims(token)
	if err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time.UTC()
	return &t
}

// stripBearer drops a leading "Bearer" scheme. A scheme with nothing after
// it yields "".
func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	scheme, rest := s, ""
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		scheme, rest = s[:i], s[i:]
	}
	if !strings.EqualFold(scheme, "bearer") {
		return s
	}
	return strings.TrimSpace(rest)
}
