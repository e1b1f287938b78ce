package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeSession    = "session"
	tokenTypeOAuthState = "oauth-state"

	// DefaultSessionTTL is used when NewSessionIssuer is given a zero ttl.
	DefaultSessionTTL = 24 * time.Hour

	oauthStateTTL  = 10 * time.Minute
	minSecretBytes = 32
)

// SessionClaims are the JWT claims of a SkillSwap session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"` // "session" or "oauth-state"
}

// ID parses the user ID carried by the token.
func (c *SessionClaims) ID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// SessionIssuer issues and verifies HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSessionIssuer creates a SessionIssuer. The secret must be at least 32 bytes.
//
//	issuer: the "iss" claim value.
//	ttl:    session lifetime (default: 24 hours).
func NewSessionIssuer(secret []byte, issuer string, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretBytes)
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// RandomSecret returns a fresh 32-byte secret. Tokens signed with it do not
// survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, minSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return b, nil
}

// TTL returns the session lifetime.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue creates a signed session token for the user.
func (s *SessionIssuer) Issue(userID uuid.UUID, email, name string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
		UserID: userID.String(),
		Email:  email,
		Name:   name,
		Type:   tokenTypeSession,
	}
	return s.sign(claims, "session token")
}

// Verify parses and validates a session token, returning its claims.
func (s *SessionIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if claims.Type != tokenTypeSession {
		return nil, errors.New("not a session token")
	}
	if _, err := claims.ID(); err != nil {
		return nil, fmt.Errorf("session token has malformed user id: %w", err)
	}
	return claims, nil
}

// IssueOAuthState creates a short-lived JWT used as the OAuth state parameter.
// The provider name is embedded so the callback can check it.
func (s *SessionIssuer) IssueOAuthState(provider string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   tokenTypeOAuthState,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
			ID:        uuid.New().String(),
		},
		UserID: provider,
		Type:   tokenTypeOAuthState,
	}
	return s.sign(claims, "oauth state")
}

// VerifyOAuthState validates an OAuth state JWT and returns the embedded provider.
func (s *SessionIssuer) VerifyOAuthState(tokenStr string) (provider string, err error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.Type != tokenTypeOAuthState {
		return "", errors.New("not an oauth state token")
	}
	return claims.UserID, nil
}

func (s *SessionIssuer) sign(claims SessionClaims, what string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", what, err)
	}
	return signed, nil
}

func (s *SessionIssuer) parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
