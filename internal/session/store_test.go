package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/config"
	"github.com/sekolahdrive/drive-int/internal/events"
	"github.com/sekolahdrive/drive-int/internal/models"
)

func authServer(t *testing.T, token string, user models.Identity) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"token": token, "user": user})
	}))
}

func newTestClient(t *testing.T, baseURL string, store *Store) *api.Client {
	t.Helper()
	cfg := &config.Config{APIBaseURL: baseURL, MaxConcurrentUploads: 1}
	client, err := api.NewClient(cfg, store.Token)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestRestoreWithoutPersistedSession(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	store.Restore()

	if store.IsAuthenticated() {
		t.Error("store should be unauthenticated with no persisted session")
	}
	if store.Token() != "" {
		t.Errorf("Token() = %q, want empty", store.Token())
	}
	if store.Identity() != nil {
		t.Error("Identity() should be nil")
	}
}

func TestLoginPersistsAndRestores(t *testing.T) {
	user := models.Identity{ID: "u1", Name: "Budi", Email: "budi@sekolah.id", Role: models.RoleStudent}
	server := authServer(t, "tok-xyz", user)
	defer server.Close()

	dir := t.TempDir()
	store := NewStore(dir, nil)
	client := newTestClient(t, server.URL, store)

	got, err := store.Login(context.Background(), client, "budi@sekolah.id", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.Email != "budi@sekolah.id" {
		t.Errorf("Email = %q", got.Email)
	}
	if store.Token() != "tok-xyz" {
		t.Errorf("Token() = %q, want tok-xyz", store.Token())
	}

	// A fresh store over the same directory picks the session back up
	// without touching the network.
	restored := NewStore(dir, nil)
	restored.Restore()
	if !restored.IsAuthenticated() {
		t.Fatal("restored store should be authenticated")
	}
	if restored.Token() != "tok-xyz" {
		t.Errorf("restored Token() = %q, want tok-xyz", restored.Token())
	}
	if id := restored.Identity(); id == nil || id.Role != models.RoleStudent {
		t.Errorf("restored Identity() = %+v", id)
	}
}

func TestRestoreIgnoresMalformedIdentity(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(config.TokenPath(dir), []byte("tok\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config.UserPath(dir), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir, nil)
	store.Restore()

	if store.IsAuthenticated() {
		t.Error("malformed identity should leave the store unauthenticated")
	}
}

func TestLogoutClearsEverythingAndPublishes(t *testing.T) {
	user := models.Identity{ID: "u1", Email: "x@y.z", Role: models.RoleStudent}
	server := authServer(t, "tok", user)
	defer server.Close()

	dir := t.TempDir()
	eventBus := events.NewEventBus(16)
	ch := eventBus.Subscribe(events.EventSessionChanged)

	store := NewStore(dir, eventBus)
	client := newTestClient(t, server.URL, store)
	if _, err := store.Login(context.Background(), client, "x@y.z", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	<-ch // login event

	store.Logout()

	ev := <-ch
	sess, ok := ev.(*events.SessionEvent)
	if !ok {
		t.Fatalf("event = %T, want *SessionEvent", ev)
	}
	if sess.Authenticated {
		t.Error("logout event should report unauthenticated")
	}

	if store.IsAuthenticated() || store.Token() != "" {
		t.Error("logout should clear the in-memory session")
	}
	if _, err := os.Stat(config.TokenPath(dir)); !os.IsNotExist(err) {
		t.Error("logout should remove the persisted token")
	}
	if _, err := os.Stat(config.UserPath(dir)); !os.IsNotExist(err) {
		t.Error("logout should remove the persisted identity")
	}
}

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.Identity
		ownerID string
		want    bool
	}{
		{"unauthenticated", nil, "u1", false},
		{"admin edits anything", &models.Identity{ID: "a1", Role: models.RoleAdmin}, "u9", true},
		{"owner edits own", &models.Identity{ID: "u1", Role: models.RoleStudent}, "u1", true},
		{"student cannot edit others", &models.Identity{ID: "u1", Role: models.RoleStudent}, "u2", false},
		{"staff cannot edit others", &models.Identity{ID: "u1", Role: models.RoleStaff}, "u2", false},
		{"osis edits anything", &models.Identity{ID: "u1", Role: models.RoleOsis}, "u2", true},
		{"media_guru edits anything", &models.Identity{ID: "u1", Role: models.RoleMediaGuru}, "u2", true},
		{"unknown role cannot edit others", &models.Identity{ID: "u1", Role: "alumni"}, "u2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir(), nil)
			store.user = tt.user
			if tt.user != nil {
				store.token = "tok"
			}

			if got := store.CanEdit(tt.ownerID); got != tt.want {
				t.Errorf("CanEdit(%q) = %v, want %v", tt.ownerID, got, tt.want)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if store.IsAdmin() {
		t.Error("unauthenticated store should not be admin")
	}

	store.user = &models.Identity{ID: "a1", Role: models.RoleAdmin}
	if !store.IsAdmin() {
		t.Error("admin identity should report IsAdmin")
	}
}
