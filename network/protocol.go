package network

import "encoding/json"

// 客户端 -> 服务端事件
const (
	EventRegister   = "register"
	EventCreateRoom = "create_room"
	EventJoinRoom   = "join_room"
)

// 服务端 -> 客户端事件
const (
	EventRegistered   = "registered"
	EventRoomCreated  = "room_created"
	EventPlayerJoined = "player_joined"
	EventUsersOnline  = "users_online"
	EventError        = "error"
)

// Envelope is the wire format: one JSON object per websocket text message,
// carrying a named event and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterRequest register 事件载荷
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CreateRoomRequest create_room 事件载荷
type CreateRoomRequest struct {
	Name      string `json:"name,omitempty"`
	IsPrivate bool   `json:"isPrivate,omitempty"`
}

// JoinRoomRequest join_room 事件载荷
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

// ErrorPayload is the only user-facing failure shape.
type ErrorPayload struct {
	Message string `json:"message"`
}
