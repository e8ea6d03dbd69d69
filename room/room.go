// room/room.go
package room

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/lobbyserver/models"
	"github.com/wfunc/lobbyserver/state"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
)

// MaxPlayers 对战房间固定两人
const MaxPlayers = 2

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Room 是匹配房间的核心结构
//
// Players holds user snapshots in join order; Players[0] is always the
// creator. The snapshots never change after insertion, even if the canonical
// registry entry does. members is the broadcast group: the session IDs
// currently attached to this room.
type Room struct {
	Code       string
	Name       string
	Creator    models.User
	Players    []models.User
	MaxPlayers int
	IsPrivate  bool
	Status     models.RoomStatus
	CreatedAt  time.Time

	machine    *state.Machine
	members    []string
	emptySince time.Time
	mutex      sync.RWMutex
}

// View is the wire shape of a room, field names matching the client protocol.
// It is a deep copy; callers may marshal it after releasing any locks.
type View struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Creator    models.User       `json:"creator"`
	Players    []models.User     `json:"players"`
	MaxPlayers int               `json:"maxPlayers"`
	IsPrivate  bool              `json:"isPrivate"`
	Status     models.RoomStatus `json:"status"`
}

func newRoom(code, name string, creator models.User, isPrivate bool) *Room {
	if name == "" {
		name = "Room " + code
	}
	return &Room{
		Code:       code,
		Name:       name,
		Creator:    creator,
		Players:    []models.User{creator},
		MaxPlayers: MaxPlayers,
		IsPrivate:  isPrivate,
		Status:     models.RoomWaiting,
		CreatedAt:  time.Now(),
		machine:    state.NewRoomMachine(),
	}
}

// addPlayer appends a snapshot if there is room left. The capacity check and
// the append are one atomic step under the room mutex; reaching capacity
// drives the waiting -> full transition.
func (r *Room) addPlayer(player models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}

	r.Players = append(r.Players, player)
	if len(r.Players) == r.MaxPlayers {
		if err := r.machine.Transition(models.RoomFull); err != nil {
			return err
		}
		r.Status = models.RoomFull
	}
	return nil
}

// Attach adds a session to the room's broadcast group.
func (r *Room) Attach(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, id := range r.members {
		if id == sessionID {
			return
		}
	}
	r.members = append(r.members, sessionID)
}

// Detach removes a session from the broadcast group. When the last session
// leaves, the room starts its idle clock for the sweep. Detaching a session
// that is not a member changes nothing.
func (r *Room) Detach(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, id := range r.members {
		if id == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			if len(r.members) == 0 {
				r.emptySince = time.Now()
			}
			return
		}
	}
}

// Members returns a thread-safe copy of the broadcast group.
func (r *Room) Members() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	members := make([]string, len(r.members))
	copy(members, r.members)
	return members
}

// PlayerCount returns the number of player snapshots in the room.
func (r *Room) PlayerCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.Players)
}

// CurrentStatus reads the room status under the room lock.
func (r *Room) CurrentStatus() models.RoomStatus {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.Status
}

// View snapshots the room for outbound events.
func (r *Room) View() View {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	players := make([]models.User, len(r.Players))
	copy(players, r.Players)
	return View{
		ID:         r.Code,
		Name:       r.Name,
		Creator:    r.Creator,
		Players:    players,
		MaxPlayers: r.MaxPlayers,
		IsPrivate:  r.IsPrivate,
		Status:     r.Status,
	}
}

// idleSince reports whether the room has been without connected members
// since before the cutoff.
func (r *Room) idleSince(cutoff time.Time) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.members) == 0 && !r.emptySince.IsZero() && r.emptySince.Before(cutoff)
}

// --- 房间管理器 ---

// Manager 管理所有打开的房间，按房间码索引
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom generates a unique code, builds the room with the creator's
// snapshot as its first player and stores it.
func (m *Manager) CreateRoom(creator models.User, name string, isPrivate bool) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code := m.generateCode()
	room := newRoom(code, name, creator, isPrivate)
	m.rooms[code] = room
	return room
}

// JoinRoom appends the joining user's snapshot to the room. Returns
// ErrRoomNotFound for an unknown code and ErrRoomFull when the room is at
// capacity; a failed join leaves the room unchanged.
func (m *Manager) JoinRoom(code string, user models.User) (*Room, error) {
	m.mutex.RLock()
	room, exists := m.rooms[code]
	m.mutex.RUnlock()

	if !exists {
		return nil, ErrRoomNotFound
	}
	if err := room.addPlayer(user); err != nil {
		return nil, err
	}
	return room, nil
}

func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, code)
}

// List returns a thread-safe copy of all open rooms.
func (m *Manager) List() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Sweep removes rooms that have had no connected members for at least ttl
// and returns their codes. Player snapshots are not a liveness signal; the
// broadcast group is.
func (m *Manager) Sweep(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var removed []string
	for code, room := range m.rooms {
		if room.idleSince(cutoff) {
			delete(m.rooms, code)
			removed = append(removed, code)
		}
	}
	return removed
}

// generateCode rolls a short uppercase alphanumeric code and re-rolls on
// collision with any open room. Caller must hold the manager lock.
func (m *Manager) generateCode() string {
	for {
		buf := make([]byte, codeLength)
		for i := range buf {
			buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}
