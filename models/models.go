// models/models.go
package models

// UserStatus 用户在线状态
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomFull    RoomStatus = "full"
)

// User 用户数据模型
//
// The registry entry is canonical for one live connection. Copies placed into
// a room's player list are snapshots taken at join time and do not track
// later changes to the canonical entry.
type User struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Rating    int        `json:"rating"`
	Wins      int        `json:"wins"`
	Losses    int        `json:"losses"`
	Friends   []string   `json:"friends"`
	Status    UserStatus `json:"status"`
}

// Snapshot returns a copy of the user with its own friends slice, safe to
// hand to a room's player list.
func (u *User) Snapshot() User {
	copied := *u
	copied.Friends = make([]string, len(u.Friends))
	copy(copied.Friends, u.Friends)
	return copied
}

// OnlineUser 在线用户投影（users_online 广播内容）
type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}
