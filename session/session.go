// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/lobbyserver/network"
)

// Session is the server-side handle for one live connection. Its ID is the
// connection handle the registries key on; it is stable only for the lifetime
// of the connection.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     string // lobby user id, set after register
	CreatedAt  time.Time
	LastActive time.Time           // guarded by mutex: read loop and fan-out both touch it
	rooms      map[string]struct{} // room codes this session is attached to
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		rooms:      make(map[string]struct{}),
	}
}

// TrackRoom records that this session joined a room's broadcast group, so
// disconnect can detach it from every room it ever attached to.
func (s *Session) TrackRoom(code string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rooms[code] = struct{}{}
}

// Rooms returns a copy of every room code this session is attached to.
func (s *Session) Rooms() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

// Touch bumps the activity timestamp.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

// SendEvent delivers one named event over the connection. It is called from
// other sessions' handler goroutines during fan-out, so the timestamp write
// goes through the mutex.
func (s *Session) SendEvent(event string, payload interface{}) error {
	s.Touch()
	return s.Conn.SendEvent(event, payload)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器：所有已连接会话（不论是否已注册）
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// All returns a thread-safe copy of every connected session. The presence
// broadcast goes to this set, registered or not.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
