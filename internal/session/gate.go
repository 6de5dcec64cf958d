// Package session implements the login gate in front of the tracker views.
// It checks a fixed credential list and remembers the signed-in user in the
// storage provider; it is not an access control mechanism.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/storage"
)

// Storage keys.
const (
	KeyLoggedIn = "isLoggedIn"
	KeyUsername = "username"
)

// DefaultCredentials maps usernames to passwords.
var DefaultCredentials = map[string]string{
	"admin": "password",
	"user":  "password",
}

// State is the current sign-in state.
type State struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username,omitempty"`
}

// Gate checks credentials and persists the sign-in flags.
type Gate struct {
	backend storage.Provider
	creds   map[string]string
	logger  *slog.Logger
}

// New returns a gate. An empty creds map selects DefaultCredentials.
func New(backend storage.Provider, creds map[string]string, logger *slog.Logger) *Gate {
	if len(creds) == 0 {
		creds = DefaultCredentials
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{backend: backend, creds: creds, logger: logger}
}

// Login signs username in when the password matches.
func (g *Gate) Login(username, password string) (State, error) {
	username = strings.TrimSpace(username)
	want, ok := g.creds[username]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		g.logger.Info("session: login rejected", slog.String("username", username))
		return State{}, fmt.Errorf("session: invalid username or password: %w", apperr.ErrUnauthorized)
	}
	if err := g.backend.Set(KeyLoggedIn, []byte("true")); err != nil {
		return State{}, &apperr.PersistenceError{Key: KeyLoggedIn, Err: err}
	}
	if err := g.backend.Set(KeyUsername, []byte(username)); err != nil {
		return State{}, &apperr.PersistenceError{Key: KeyUsername, Err: err}
	}
	g.logger.Info("session: logged in", slog.String("username", username))
	return State{LoggedIn: true, Username: username}, nil
}

// Logout clears both flags. Logging out twice is not an error.
func (g *Gate) Logout() error {
	for _, key := range []string{KeyLoggedIn, KeyUsername} {
		if err := g.backend.Remove(key); err != nil {
			return &apperr.PersistenceError{Key: key, Err: err}
		}
	}
	return nil
}

// Current reads the persisted flags.
func (g *Gate) Current() (State, error) {
	flag, err := g.backend.Get(KeyLoggedIn)
	if errors.Is(err, storage.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("session: read: %w", err)
	}
	if strings.TrimSpace(string(flag)) != "true" {
		return State{}, nil
	}
	name, err := g.backend.Get(KeyUsername)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return State{}, fmt.Errorf("session: read: %w", err)
	}
	return State{LoggedIn: true, Username: string(name)}, nil
}
