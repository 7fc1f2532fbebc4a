package services

import (
	"strings"
	"unicode/utf8"

	"chat-broker/internal/models"
)

// MaxUsernameLength bounds a display name, counted in runes after trimming.
const MaxUsernameLength = 50

// IdentityRegistry maps connections to usernames. Usernames are unique among
// connected users, compared case-insensitively.
type IdentityRegistry struct {
	users map[models.ConnID]*models.User
	names map[string]models.ConnID // lower-cased username -> owner
	order []models.ConnID
}

func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{
		users: make(map[models.ConnID]*models.User),
		names: make(map[string]models.ConnID),
	}
}

// Register creates a user for conn with no channel. The name must not match
// any connected user's, the caller's own included. A connection that
// registers again under a new name gets a fresh user in its existing slot.
func (r *IdentityRegistry) Register(conn models.ConnID, rawUsername string) (*models.User, error) {
	username := strings.TrimSpace(rawUsername)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}

	key := strings.ToLower(username)
	if _, taken := r.names[key]; taken {
		return nil, ErrUsernameConflict
	}

	user := &models.User{ConnID: conn, Username: username}
	if existing, ok := r.users[conn]; ok {
		delete(r.names, strings.ToLower(existing.Username))
	} else {
		r.order = append(r.order, conn)
	}
	r.users[conn] = user
	r.names[key] = conn
	return user, nil
}

func (r *IdentityRegistry) Lookup(conn models.ConnID) (*models.User, bool) {
	user, ok := r.users[conn]
	return user, ok
}

// Unregister removes the user bound to conn. Absent connections are ignored.
func (r *IdentityRegistry) Unregister(conn models.ConnID) {
	user, ok := r.users[conn]
	if !ok {
		return
	}
	delete(r.users, conn)
	delete(r.names, strings.ToLower(user.Username))
	for i, id := range r.order {
		if id == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Users returns the connected users in registration order.
func (r *IdentityRegistry) Users() []*models.User {
	out := make([]*models.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}

func (r *IdentityRegistry) Count() int {
	return len(r.users)
}
