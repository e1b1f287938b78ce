package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/users"
)

func makePrivate(t *testing.T, env *testEnv, u *users.User) {
	t.Helper()
	private := users.VisibilityPrivate
	if _, err := env.users.UpdateProfile(context.Background(), u.ID, u.ID, users.ProfileUpdate{ProfileVisibility: &private}); err != nil {
		t.Fatalf("make private: %v", err)
	}
}

func TestListUsers_200PaginatesPublicOnly(t *testing.T) {
	env := newEnv(t)
	env.member("Alice")
	env.member("Bob")
	carol, _ := env.member("Carol")
	makePrivate(t, env, carol)

	w := env.do(http.MethodGet, "/api/users?page=1&limit=1", "", "")
	expectStatus(t, w, http.StatusOK)

	var page users.DirectoryPage
	decode(t, w, &page)
	if len(page.Users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(page.Users))
	}
	if page.Pagination.Total != 2 {
		t.Errorf("total = %d, want 2 (private profile excluded)", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 2 || !page.Pagination.HasNext || page.Pagination.HasPrev {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestListUsers_searchMatchesSkills(t *testing.T) {
	env := newEnv(t)
	alice, _ := env.member("Alice")
	env.member("Bob")
	offered := []string{"Photoshop"}
	if _, err := env.users.UpdateProfile(context.Background(), alice.ID, alice.ID, users.ProfileUpdate{SkillsOffered: &offered}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	w := env.do(http.MethodGet, "/api/users?search=photo", "", "")
	expectStatus(t, w, http.StatusOK)

	var page users.DirectoryPage
	decode(t, w, &page)
	if len(page.Users) != 1 || page.Users[0].ID != alice.ID {
		t.Fatalf("search returned %d users, want only Alice", len(page.Users))
	}
}

func TestListUsers_400NonNumericPage(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/users?page=two", "", "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestListUsers_200HugePageIsEmpty(t *testing.T) {
	env := newEnv(t)
	env.member("Alice")

	w := env.do(http.MethodGet, "/api/users?page=288230376151711745&limit=50", "", "")
	expectStatus(t, w, http.StatusOK)

	var page users.DirectoryPage
	decode(t, w, &page)
	if len(page.Users) != 0 || page.Pagination.Total != 1 {
		t.Errorf("page = %d users, total %d; want 0, 1", len(page.Users), page.Pagination.Total)
	}
}

func TestGetUser_200(t *testing.T) {
	env := newEnv(t)
	u, _ := env.member("Alice")
	w := env.do(http.MethodGet, "/api/users/"+u.ID.String(), "", "")
	expectStatus(t, w, http.StatusOK)
}

func TestGetUser_404(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/users/"+uuid.NewString(), "", "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestGetUser_404MalformedID(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/users/not-a-uuid", "", "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestGetUser_privateProfile(t *testing.T) {
	env := newEnv(t)
	alice, aliceTok := env.member("Alice")
	_, bobTok := env.member("Bob")
	makePrivate(t, env, alice)

	path := "/api/users/" + alice.ID.String()
	expectStatus(t, env.do(http.MethodGet, path, "", ""), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodGet, path, "", bobTok), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodGet, path, "", aliceTok), http.StatusOK)
}

func TestUpdateUser_200(t *testing.T) {
	env := newEnv(t)
	u, tok := env.member("Alice")
	w := env.do(http.MethodPut, "/api/users/"+u.ID.String(),
		`{"location":"Lisbon","skillsOffered":[" Guitar ","","Cooking"],"availability":"evenings"}`, tok)
	expectStatus(t, w, http.StatusOK)

	var got users.User
	decode(t, w, &got)
	if got.Location != "Lisbon" || got.Availability != "evenings" {
		t.Errorf("got location=%q availability=%q", got.Location, got.Availability)
	}
	if len(got.SkillsOffered) != 2 || got.SkillsOffered[0] != "Guitar" {
		t.Errorf("skillsOffered = %v, want [Guitar Cooking]", got.SkillsOffered)
	}
}

func TestUpdateUser_401NoToken(t *testing.T) {
	env := newEnv(t)
	u, _ := env.member("Alice")
	w := env.do(http.MethodPut, "/api/users/"+u.ID.String(), `{"location":"Lisbon"}`, "")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestUpdateUser_403NotOwner(t *testing.T) {
	env := newEnv(t)
	alice, _ := env.member("Alice")
	_, bobTok := env.member("Bob")
	w := env.do(http.MethodPut, "/api/users/"+alice.ID.String(), `{"location":"Lisbon"}`, bobTok)
	expectStatus(t, w, http.StatusForbidden)
}

func TestUpdateUser_400InvalidVisibility(t *testing.T) {
	env := newEnv(t)
	u, tok := env.member("Alice")
	w := env.do(http.MethodPut, "/api/users/"+u.ID.String(), `{"profileVisibility":"friends"}`, tok)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestUserRatings_200Empty(t *testing.T) {
	env := newEnv(t)
	u, _ := env.member("Alice")
	w := env.do(http.MethodGet, "/api/users/"+u.ID.String()+"/ratings", "", "")
	expectStatus(t, w, http.StatusOK)

	var resp struct {
		Ratings []any `json:"ratings"`
		Count   int   `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Ratings == nil || resp.Count != 0 {
		t.Errorf("want empty non-null list, got %+v", resp)
	}
}
