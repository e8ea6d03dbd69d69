package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/lobbyserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu   sync.Mutex
	sent []string
}

func (m *MockConnection) SendEvent(event string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, event)
	return nil
}
func (m *MockConnection) ReadEnvelope() (*network.Envelope, error) { return nil, nil }
func (m *MockConnection) Close() error                             { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                     { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)      {}

func (m *MockConnection) sentEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]string, len(m.sent))
	copy(events, m.sent)
	return events
}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_All(t *testing.T) {
	manager := NewManager()

	ids := []string{"s1", "s2", "s3"}
	for _, id := range ids {
		manager.Add(NewSession(id, &MockConnection{}))
	}

	all := manager.All()
	if len(all) != len(ids) {
		t.Fatalf("Expected %d sessions, got %d", len(ids), len(all))
	}

	seen := make(map[string]bool)
	for _, sess := range all {
		seen[sess.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("All should include session %s", id)
		}
	}
}

func TestSession_TrackRooms(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})

	if len(sess.Rooms()) != 0 {
		t.Fatalf("New session should track no rooms, got %v", sess.Rooms())
	}

	sess.TrackRoom("AAAAAA")
	sess.TrackRoom("BBBBBB")
	sess.TrackRoom("AAAAAA") // idempotent

	rooms := sess.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 tracked rooms, got %v", rooms)
	}
	seen := make(map[string]bool)
	for _, code := range rooms {
		seen[code] = true
	}
	if !seen["AAAAAA"] || !seen["BBBBBB"] {
		t.Errorf("Rooms should contain both codes, got %v", rooms)
	}
}

func TestSession_SendEvent(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("test_session", conn)

	before := sess.LastActive
	time.Sleep(time.Millisecond)

	if err := sess.SendEvent("registered", map[string]bool{"success": true}); err != nil {
		t.Fatalf("SendEvent should not fail, got %v", err)
	}
	if sent := conn.sentEvents(); len(sent) != 1 || sent[0] != "registered" {
		t.Errorf("SendEvent should pass the event name through, got %v", sent)
	}
	if !sess.LastActive.After(before) {
		t.Error("SendEvent should bump LastActive")
	}
}

// Fan-out calls SendEvent from other sessions' handler goroutines while the
// owning read loop calls Touch; both bump LastActive and must not race.
func TestSession_ConcurrentTouchAndSend(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess.Touch()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess.SendEvent("users_online", nil)
		}
	}()
	wg.Wait()
}
