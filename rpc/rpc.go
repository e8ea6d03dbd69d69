package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/lobbyserver/logger"
	"github.com/wfunc/lobbyserver/models"
	"github.com/wfunc/lobbyserver/room"
	"github.com/wfunc/lobbyserver/users"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyService exposes read-only lobby queries over net/rpc for operational
// inspection. It never mutates the registries.
type LobbyService struct {
	users *users.Registry
	rooms *room.Manager
}

func NewLobbyService(users *users.Registry, rooms *room.Manager) *LobbyService {
	return &LobbyService{users: users, rooms: rooms}
}

// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.

type OnlineUsersArgs struct{}

type OnlineUsersReply struct {
	Users []models.OnlineUser
}

func (ls *LobbyService) OnlineUsers(args *OnlineUsersArgs, reply *OnlineUsersReply) error {
	reply.Users = ls.users.ListOnline()
	return nil
}

// RoomSummary is the gob-friendly projection of an open room.
type RoomSummary struct {
	Code      string
	Name      string
	Players   int
	Status    string
	IsPrivate bool
}

type OpenRoomsArgs struct{}

type OpenRoomsReply struct {
	Rooms []RoomSummary
}

func (ls *LobbyService) OpenRooms(args *OpenRoomsArgs, reply *OpenRoomsReply) error {
	for _, r := range ls.rooms.List() {
		reply.Rooms = append(reply.Rooms, RoomSummary{
			Code:      r.Code,
			Name:      r.Name,
			Players:   r.PlayerCount(),
			Status:    string(r.CurrentStatus()),
			IsPrivate: r.IsPrivate,
		})
	}
	return nil
}
