// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/lobbyserver/room"

	"github.com/wfunc/lobbyserver/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(code string, event string, payload interface{}) error
	BroadcastToAll(event string, payload interface{}) error
	BroadcastToSessions(sessionIDs []string, event string, payload interface{}) error
}

// 基于房间的广播器
//
// Delivery never mutates shared state, so callers may fan out after releasing
// whatever lock they composed the payload under. A send failure to one
// session does not stop delivery to the rest; the failing connection will
// surface its own disconnect.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(code string, event string, payload interface{}) error {
	r, exists := b.roomManager.GetRoom(code)
	if !exists {
		return room.ErrRoomNotFound
	}
	return b.BroadcastToSessions(r.Members(), event, payload)
}

// BroadcastToAll delivers to every connected session, registered or not.
// users_online goes through here.
func (b *RoomBroadcaster) BroadcastToAll(event string, payload interface{}) error {
	for _, s := range b.sessionManager.All() {
		if err := s.SendEvent(event, payload); err != nil {
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToSessions(sessionIDs []string, event string, payload interface{}) error {
	for _, id := range sessionIDs {
		s, exists := b.sessionManager.Get(id)
		if !exists {
			continue
		}
		if err := s.SendEvent(event, payload); err != nil {
			continue
		}
	}
	return nil
}
