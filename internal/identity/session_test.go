package identity_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/identity"
)

const testIssuer = "http://localhost:8080"

func newTestSessionIssuer(t *testing.T, ttl time.Duration) *identity.SessionIssuer {
	t.Helper()
	s, err := identity.NewSessionIssuer([]byte(strings.Repeat("k", 32)), testIssuer, ttl)
	if err != nil {
		t.Fatalf("NewSessionIssuer: %v", err)
	}
	return s
}

func TestNewSessionIssuer_shortSecret(t *testing.T) {
	if _, err := identity.NewSessionIssuer([]byte("short"), testIssuer, time.Hour); err == nil {
		t.Error("expected error for a short secret")
	}
}

func TestNewSessionIssuer_defaultTTL(t *testing.T) {
	if got := newTestSessionIssuer(t, 0).TTL(); got != identity.DefaultSessionTTL {
		t.Errorf("TTL: got %v, want %v", got, identity.DefaultSessionTTL)
	}
}

func TestSessionIssuer_roundTrip(t *testing.T) {
	s := newTestSessionIssuer(t, time.Hour)
	id := uuid.New()

	token, err := s.Issue(id, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	got, err := claims.ID()
	if err != nil || got != id {
		t.Errorf("ID: got %v (%v), want %v", got, err, id)
	}
	if claims.Email != "alice@example.com" || claims.Name != "Alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestSessionIssuer_expired(t *testing.T) {
	s := newTestSessionIssuer(t, time.Nanosecond)
	token, err := s.Issue(uuid.New(), "a@example.com", "A")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.Verify(token); err == nil {
		t.Error("expected expired token to fail verification")
	}
}

func TestSessionIssuer_wrongSecret(t *testing.T) {
	a := newTestSessionIssuer(t, time.Hour)
	b, _ := identity.NewSessionIssuer([]byte(strings.Repeat("z", 32)), testIssuer, time.Hour)

	token, _ := a.Issue(uuid.New(), "a@example.com", "A")
	if _, err := b.Verify(token); err == nil {
		t.Error("expected verification with a different secret to fail")
	}
}

func TestSessionIssuer_stateIsNotASession(t *testing.T) {
	s := newTestSessionIssuer(t, time.Hour)

	state, err := s.IssueOAuthState("github")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Verify(state); err == nil {
		t.Error("oauth state must not be accepted as a session token")
	}
	provider, err := s.VerifyOAuthState(state)
	if err != nil || provider != "github" {
		t.Errorf("VerifyOAuthState: got %q, %v", provider, err)
	}

	session, _ := s.Issue(uuid.New(), "a@example.com", "A")
	if _, err := s.VerifyOAuthState(session); err == nil {
		t.Error("session token must not be accepted as oauth state")
	}
}

func TestRequireUserToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestSessionIssuer(t, time.Hour)
	id := uuid.New()

	r := gin.New()
	r.GET("/me", identity.RequireUserToken(s), func(c *gin.Context) {
		c.String(http.StatusOK, identity.UserIDFromCtx(c).String())
	})

	token, _ := s.Issue(id, "a@example.com", "A")
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status: got %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != id.String() {
				t.Errorf("body: got %q, want %q", w.Body.String(), id.String())
			}
		})
	}
}

func TestOptionalUserToken_neverAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestSessionIssuer(t, time.Hour)

	r := gin.New()
	r.GET("/x", identity.OptionalUserToken(s), func(c *gin.Context) {
		if identity.UserIDFromCtx(c) == uuid.Nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "user")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}
