package handler_test

import (
	"net/http"
	"strings"
	"testing"
)

// ── POST /api/auth/register ──────────────────────────────────────────────────

func TestSignup_201(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"Alice@Example.com","password":"password123","name":"Alice"}`, "")
	expectStatus(t, w, http.StatusCreated)

	var resp map[string]any
	decode(t, w, &resp)
	if resp["email"] != "alice@example.com" {
		t.Errorf("email = %v, want lower-cased alice@example.com", resp["email"])
	}
	if resp["id"] == "" || resp["id"] == nil {
		t.Error("expected id in response")
	}
	if _, leaked := resp["passwordHash"]; leaked {
		t.Error("response must not include the password hash")
	}
}

func TestSignup_400MissingFields(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/auth/register", `{"email":"a@example.com"}`, "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSignup_400InvalidJSON(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/auth/register", `not-json`, "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSignup_400DuplicateEmail(t *testing.T) {
	env := newEnv(t)
	env.member("Alice")
	w := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"password123","name":"Other"}`, "")
	expectStatus(t, w, http.StatusBadRequest)

	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] != "user already exists" {
		t.Errorf("error = %q, want %q", resp["error"], "user already exists")
	}
	if resp["code"] != "conflict" {
		t.Errorf("code = %q, want conflict", resp["code"])
	}
}

// ── POST /api/auth/login ─────────────────────────────────────────────────────

func TestLogin_200(t *testing.T) {
	env := newEnv(t)
	u, _ := env.member("Bob")
	w := env.do(http.MethodPost, "/api/auth/login",
		`{"email":"bob@example.com","password":"password123"}`, "")
	expectStatus(t, w, http.StatusOK)

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
		User      struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected token")
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expiresIn = %d, want 3600", resp.ExpiresIn)
	}
	if resp.User.ID != u.ID.String() {
		t.Errorf("user.id = %q, want %q", resp.User.ID, u.ID)
	}

	claims, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != u.ID.String() {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, u.ID)
	}
}

func TestLogin_401WrongPassword(t *testing.T) {
	env := newEnv(t)
	env.member("Bob")
	w := env.do(http.MethodPost, "/api/auth/login",
		`{"email":"bob@example.com","password":"nope-nope"}`, "")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestLogin_401UnknownEmail(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/auth/login",
		`{"email":"ghost@example.com","password":"password123"}`, "")
	expectStatus(t, w, http.StatusUnauthorized)
}

// ── GET /api/auth/me ─────────────────────────────────────────────────────────

func TestMe_401NoToken(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/auth/me", "", "")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestMe_401BadToken(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/auth/me", "", "not.a.jwt")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestMe_200(t *testing.T) {
	env := newEnv(t)
	u, tok := env.member("Carol")
	w := env.do(http.MethodGet, "/api/auth/me", "", tok)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), u.ID.String()) {
		t.Errorf("body %s does not contain user id", w.Body.String())
	}
}

func TestLogout_200(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/auth/logout", "", "")
	expectStatus(t, w, http.StatusOK)
}

// ── OAuth ────────────────────────────────────────────────────────────────────

func TestOAuthRedirect_422Unconfigured(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/auth/oauth/github", "", "")
	expectStatus(t, w, http.StatusUnprocessableEntity)
}

func TestOAuthCallback_422Unconfigured(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/auth/oauth/google/callback?code=x&state=y", "", "")
	expectStatus(t, w, http.StatusUnprocessableEntity)
}
