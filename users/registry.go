// users/registry.go
package users

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/lobbyserver/models"
)

// Registry 用户注册表：connection handle (session ID) -> User
//
// One entry per live connection. The registry is the only owner of canonical
// User entries; everything handed out across the wire or into a room is a
// snapshot.
type Registry struct {
	users map[string]*models.User
	mutex sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*models.User),
	}
}

// Register creates a User with default lobby stats and stores it under the
// session ID. Registering twice on the same handle overwrites the previous
// entry, matching the silent map overwrite of the reference behavior.
func (r *Registry) Register(sessionID, username, email string) *models.User {
	user := &models.User{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Username:  username,
		Email:     email,
		Rating:    1000,
		Wins:      0,
		Losses:    0,
		Friends:   []string{},
		Status:    models.StatusOnline,
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.users[sessionID] = user
	return user
}

func (r *Registry) Lookup(sessionID string) (*models.User, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	user, exists := r.users[sessionID]
	return user, exists
}

// MarkOffline flips the status if the entry exists. First step of disconnect
// handling; Remove follows unconditionally.
func (r *Registry) MarkOffline(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if user, exists := r.users[sessionID]; exists {
		user.Status = models.StatusOffline
	}
}

func (r *Registry) Remove(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.users, sessionID)
}

// ListOnline projects every online entry to the users_online wire shape.
// Iteration order is map order; callers must not depend on it.
func (r *Registry) ListOnline() []models.OnlineUser {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	online := make([]models.OnlineUser, 0, len(r.users))
	for _, user := range r.users {
		if user.Status != models.StatusOnline {
			continue
		}
		online = append(online, models.OnlineUser{
			ID:       user.ID,
			Username: user.Username,
			Rating:   user.Rating,
		})
	}
	return online
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.users)
}
