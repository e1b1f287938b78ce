package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/swaps"
)

func TestCreateSwap_201(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, _ := env.member("Bob")

	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Guitar","skillRequested":"Spanish","message":" hi "}`, bob.ID)
	w := env.do(http.MethodPost, "/api/swaps", body, aliceTok)
	expectStatus(t, w, http.StatusCreated)

	var p swaps.Populated
	decode(t, w, &p)
	if p.Status != swaps.StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.Requester.ID != alice.ID || p.Receiver.Name != "Bob" {
		t.Errorf("participants not populated: %+v / %+v", p.Requester, p.Receiver)
	}
	if p.Message != "hi" {
		t.Errorf("message = %q, want trimmed", p.Message)
	}
}

func TestCreateSwap_401NoToken(t *testing.T) {
	env := newEnv(t)
	bob, _ := env.member("Bob")
	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Guitar","skillRequested":"Spanish"}`, bob.ID)
	w := env.do(http.MethodPost, "/api/swaps", body, "")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestCreateSwap_400MissingFields(t *testing.T) {
	env := newEnv(t)
	_, aliceTok := env.member("Alice")
	bob, _ := env.member("Bob")
	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Guitar"}`, bob.ID)
	w := env.do(http.MethodPost, "/api/swaps", body, aliceTok)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestCreateSwap_400MalformedReceiver(t *testing.T) {
	env := newEnv(t)
	_, aliceTok := env.member("Alice")
	w := env.do(http.MethodPost, "/api/swaps",
		`{"receiver":"nope","skillOffered":"Guitar","skillRequested":"Spanish"}`, aliceTok)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestCreateSwap_404UnknownReceiver(t *testing.T) {
	env := newEnv(t)
	_, aliceTok := env.member("Alice")
	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Guitar","skillRequested":"Spanish"}`, uuid.New())
	w := env.do(http.MethodPost, "/api/swaps", body, aliceTok)
	expectStatus(t, w, http.StatusNotFound)
}

func TestCreateSwap_401DeletedAccount(t *testing.T) {
	env := newEnv(t)
	bob, _ := env.member("Bob")
	ghostTok, err := env.tokens.Issue(uuid.New(), "ghost@example.com", "Ghost")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Guitar","skillRequested":"Spanish"}`, bob.ID)
	w := env.do(http.MethodPost, "/api/swaps", body, ghostTok)
	expectStatus(t, w, http.StatusUnauthorized)

	list, err := env.swaps.List(context.Background(), bob.ID, swaps.FilterAll)
	if err != nil || len(list) != 0 {
		t.Errorf("received swaps = %d, %v; want none stored", len(list), err)
	}
}

func TestCreateSwap_400DuplicateOpen(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, _ := env.member("Bob")
	env.swap(alice, bob)

	body := fmt.Sprintf(`{"receiver":%q,"skillOffered":"Piano","skillRequested":"French"}`, bob.ID)
	w := env.do(http.MethodPost, "/api/swaps", body, aliceTok)
	expectStatus(t, w, http.StatusBadRequest)

	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] != "swap request already exists" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestListSwaps_filters(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, _ := env.member("Bob")
	carol, _ := env.member("Carol")
	env.swap(alice, bob)
	env.swap(carol, alice)

	cases := map[string]int{"": 2, "?type=sent": 1, "?type=received": 1, "?type=bogus": 2}
	for query, want := range cases {
		w := env.do(http.MethodGet, "/api/swaps"+query, "", aliceTok)
		expectStatus(t, w, http.StatusOK)
		var list []swaps.Populated
		decode(t, w, &list)
		if len(list) != want {
			t.Errorf("GET /api/swaps%s returned %d swaps, want %d", query, len(list), want)
		}
	}
}

func TestListSwaps_emptyIsArray(t *testing.T) {
	env := newEnv(t)
	_, tok := env.member("Alice")
	w := env.do(http.MethodGet, "/api/swaps", "", tok)
	expectStatus(t, w, http.StatusOK)
	if got := w.Body.String(); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestGetSwap_participantsOnly(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, bobTok := env.member("Bob")
	_, carolTok := env.member("Carol")
	p := env.swap(alice, bob)

	path := "/api/swaps/" + p.ID.String()
	expectStatus(t, env.do(http.MethodGet, path, "", aliceTok), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, path, "", bobTok), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, path, "", carolTok), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodGet, "/api/swaps/"+uuid.NewString(), "", aliceTok), http.StatusNotFound)
}

func TestTransitionSwap_statusMapping(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, bobTok := env.member("Bob")
	p := env.swap(alice, bob)
	path := "/api/swaps/" + p.ID.String()

	// Requester cannot accept.
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"accepted"}`, aliceTok), http.StatusForbidden)
	// Unknown target.
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"pending"}`, bobTok), http.StatusBadRequest)
	// Completing a pending swap skips acceptance.
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"completed"}`, aliceTok), http.StatusBadRequest)

	w := env.do(http.MethodPut, path, `{"status":"accepted"}`, bobTok)
	expectStatus(t, w, http.StatusOK)
	var got swaps.Populated
	decode(t, w, &got)
	if got.Status != swaps.StatusAccepted {
		t.Fatalf("status = %q, want accepted", got.Status)
	}

	// Accepted swaps cannot be rejected.
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"rejected"}`, bobTok), http.StatusBadRequest)
	// Either participant may complete.
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"completed"}`, aliceTok), http.StatusOK)
}

func TestTransitionSwap_403Outsider(t *testing.T) {
	env := newEnv(t)
	alice, _ := env.member("Alice")
	bob, bobTok := env.member("Bob")
	_, carolTok := env.member("Carol")
	p := env.swap(alice, bob)
	path := "/api/swaps/" + p.ID.String()

	expectStatus(t, env.do(http.MethodPut, path, `{"status":"accepted"}`, bobTok), http.StatusOK)
	expectStatus(t, env.do(http.MethodPut, path, `{"status":"completed"}`, carolTok), http.StatusForbidden)
}

func TestDeleteSwap(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, bobTok := env.member("Bob")
	p := env.swap(alice, bob)
	path := "/api/swaps/" + p.ID.String()

	expectStatus(t, env.do(http.MethodDelete, path, "", bobTok), http.StatusForbidden)

	w := env.do(http.MethodDelete, path, "", aliceTok)
	expectStatus(t, w, http.StatusOK)
	var resp map[string]string
	decode(t, w, &resp)
	if resp["message"] != "Swap deleted successfully" {
		t.Errorf("message = %q", resp["message"])
	}

	expectStatus(t, env.do(http.MethodGet, path, "", aliceTok), http.StatusNotFound)
}

func TestDeleteSwap_403NotPending(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	bob, bobTok := env.member("Bob")
	p := env.swap(alice, bob)
	path := "/api/swaps/" + p.ID.String()

	expectStatus(t, env.do(http.MethodPut, path, `{"status":"rejected"}`, bobTok), http.StatusOK)
	expectStatus(t, env.do(http.MethodDelete, path, "", aliceTok), http.StatusForbidden)
}
