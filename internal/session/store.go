// Package session holds the client's single authenticated session:
// the bearer token, the identity it belongs to, and the persisted copy
// of both that survives process restarts.
//
// The store is the only writer of the token; every outgoing API
// request reads it through Token. Writes happen on login, logout, and
// restore only, which are user-serialized actions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/config"
	"github.com/sekolahdrive/drive-int/internal/events"
	"github.com/sekolahdrive/drive-int/internal/logging"
	"github.com/sekolahdrive/drive-int/internal/models"
)

// editorRoles may edit resources they do not own. This is a UI-level
// hint only; the backend is the authority on every mutation.
var editorRoles = map[string]bool{
	models.RoleOsis:      true,
	models.RoleMediaGuru: true,
}

// Store is the session manager. Safe for concurrent reads; all writes
// go through Restore, Login, and Logout.
type Store struct {
	dir      string
	eventBus *events.EventBus
	logger   *logging.Logger

	mu    sync.RWMutex
	token string
	user  *models.Identity
}

// NewStore creates a session store persisting under dir. The event bus
// may be nil when no front end is observing.
func NewStore(dir string, eventBus *events.EventBus) *Store {
	return &Store{
		dir:      dir,
		eventBus: eventBus,
		logger:   logging.NewLogger("session"),
	}
}

// Restore installs a previously persisted session, if one exists. It
// never touches the network and must complete before the first listing
// fetch so a restored token is not raced by an unauthenticated request.
// A missing or unreadable persisted session leaves the store
// unauthenticated; that is not an error.
func (s *Store) Restore() {
	tokenBytes, err := os.ReadFile(config.TokenPath(s.dir))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Msg("could not read persisted token")
		}
		return
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return
	}

	userBytes, err := os.ReadFile(config.UserPath(s.dir))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Msg("could not read persisted identity")
		}
		return
	}

	var user models.Identity
	if err := json.Unmarshal(userBytes, &user); err != nil {
		s.logger.Warn().Err(err).Msg("persisted identity is malformed, ignoring")
		return
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	s.logger.Debug().Str("email", user.Email).Msg("session restored")
	s.publishSessionChanged()
}

// Login authenticates against the API and, on success, installs and
// persists the new session. On failure the previous session (if any)
// is left untouched and the returned error carries the server's
// message.
func (s *Store) Login(ctx context.Context, client *api.Client, email, password string) (*models.Identity, error) {
	auth, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.token = auth.Token
	user := auth.User
	s.user = &user
	s.mu.Unlock()

	if err := s.persist(auth.Token, &user); err != nil {
		s.logger.Warn().Err(err).Msg("session not persisted; login valid for this process only")
	}

	s.publishSessionChanged()
	return &user, nil
}

// Logout clears the persisted files and the in-memory session. The
// published session event tells the front end to discard every piece
// of derived state it holds; nothing from before the event survives.
func (s *Store) Logout() {
	if err := os.Remove(config.TokenPath(s.dir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("could not remove persisted token")
	}
	if err := os.Remove(config.UserPath(s.dir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("could not remove persisted identity")
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.publishSessionChanged()
}

// Token returns the current bearer token, or "" when unauthenticated.
// Shaped to plug directly into api.NewClient as the TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity, or nil when
// unauthenticated.
func (s *Store) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// IsAuthenticated reports whether a session is installed.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the current identity has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == models.RoleAdmin
}

// CanEdit reports whether the current identity may edit a resource
// owned by ownerID. Pure function of the session: unauthenticated is
// always false, admin is always true, the owner may edit their own,
// and a small set of privileged roles may edit regardless of
// ownership.
func (s *Store) CanEdit(ownerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return false
	}
	if s.user.Role == models.RoleAdmin {
		return true
	}
	if s.user.ID == ownerID {
		return true
	}
	return editorRoles[s.user.Role]
}

// persist writes the token and identity under the store's directory.
func (s *Store) persist(token string, user *models.Identity) error {
	if err := config.EnsureDirectory(s.dir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(config.TokenPath(s.dir), []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	userBytes, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := os.WriteFile(config.UserPath(s.dir), userBytes, 0600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}

	return nil
}

func (s *Store) publishSessionChanged() {
	if s.eventBus == nil {
		return
	}

	s.mu.RLock()
	ev := &events.SessionEvent{
		BaseEvent:     events.NewBase(events.EventSessionChanged),
		Authenticated: s.user != nil,
	}
	if s.user != nil {
		ev.UserID = s.user.ID
		ev.Email = s.user.Email
		ev.Role = s.user.Role
	}
	s.mu.RUnlock()

	s.eventBus.Publish(ev)
}
