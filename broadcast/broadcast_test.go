package broadcast

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/wfunc/lobbyserver/models"
	"github.com/wfunc/lobbyserver/network"
	"github.com/wfunc/lobbyserver/room"
	"github.com/wfunc/lobbyserver/session"
)

// MockConnection records delivered event names.
type MockConnection struct {
	sent []string
}

func (m *MockConnection) SendEvent(event string, payload interface{}) error {
	m.sent = append(m.sent, event)
	return nil
}
func (m *MockConnection) ReadEnvelope() (*network.Envelope, error) { return nil, nil }
func (m *MockConnection) Close() error                             { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                     { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)      {}

func addSession(manager *session.Manager, id string) *MockConnection {
	conn := &MockConnection{}
	manager.Add(session.NewSession(id, conn))
	return conn
}

func TestBroadcastToRoomHitsMembersOnly(t *testing.T) {
	rooms := room.NewRoomManager()
	sessions := session.NewManager()
	b := NewRoomBroadcaster(rooms, sessions)

	memberConn := addSession(sessions, "member")
	outsiderConn := addSession(sessions, "outsider")

	rm := rooms.CreateRoom(models.User{Username: "alice"}, "", false)
	rm.Attach("member")

	if err := b.BroadcastToRoom(rm.Code, "player_joined", nil); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	if len(memberConn.sent) != 1 || memberConn.sent[0] != "player_joined" {
		t.Errorf("Room member should receive the event, got %v", memberConn.sent)
	}
	if len(outsiderConn.sent) != 0 {
		t.Errorf("Outsider must not receive room events, got %v", outsiderConn.sent)
	}
}

func TestBroadcastToRoomUnknownCode(t *testing.T) {
	b := NewRoomBroadcaster(room.NewRoomManager(), session.NewManager())

	err := b.BroadcastToRoom("NOSUCH", "player_joined", nil)
	if !errors.Is(err, room.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestBroadcastToAll(t *testing.T) {
	rooms := room.NewRoomManager()
	sessions := session.NewManager()
	b := NewRoomBroadcaster(rooms, sessions)

	conns := []*MockConnection{
		addSession(sessions, "s1"),
		addSession(sessions, "s2"),
		addSession(sessions, "s3"),
	}

	if err := b.BroadcastToAll("users_online", nil); err != nil {
		t.Fatalf("BroadcastToAll failed: %v", err)
	}

	for i, conn := range conns {
		if len(conn.sent) != 1 {
			t.Errorf("Session %d should receive exactly one event, got %v", i, conn.sent)
		}
	}
}

func TestBroadcastToSessionsSkipsGone(t *testing.T) {
	rooms := room.NewRoomManager()
	sessions := session.NewManager()
	b := NewRoomBroadcaster(rooms, sessions)

	conn := addSession(sessions, "alive")

	err := b.BroadcastToSessions([]string{"alive", "gone"}, "users_online", nil)
	if err != nil {
		t.Fatalf("BroadcastToSessions failed: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Errorf("Live session should receive the event, got %v", conn.sent)
	}
}
