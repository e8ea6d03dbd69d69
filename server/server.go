package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	netrpc "net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/lobbyserver/broadcast"
	"github.com/wfunc/lobbyserver/config"
	"github.com/wfunc/lobbyserver/logger"
	"github.com/wfunc/lobbyserver/models"
	"github.com/wfunc/lobbyserver/monitor"
	"github.com/wfunc/lobbyserver/network"
	"github.com/wfunc/lobbyserver/room"
	lobbyrpc "github.com/wfunc/lobbyserver/rpc"
	"github.com/wfunc/lobbyserver/session"
	"github.com/wfunc/lobbyserver/timer"
	"github.com/wfunc/lobbyserver/users"
)

// Outbound payload shapes.

type registeredPayload struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
}

type roomCreatedPayload struct {
	RoomID string    `json:"roomId"`
	Room   room.View `json:"room"`
}

type playerJoinedPayload struct {
	Player models.User `json:"player"`
	Room   room.View   `json:"room"`
}

// LobbyServer coordinates the identity and room registries against concurrent
// client events.
//
// Locking discipline: mu serializes every event handler from lookup through
// mutation through snapshot-for-reply, so no handler observes partial state
// across the two registries. Fan-out delivery happens after mu is released;
// by then the payloads are deep copies.
type LobbyServer struct {
	addr        string
	rpcAddr     string
	metricsAddr string

	upgrader       websocket.Upgrader
	userRegistry   *users.Registry
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	monitor        *monitor.Monitor
	timers         *timer.Manager
	rpcServer      *lobbyrpc.Server

	heartbeat     time.Duration
	sweepInterval time.Duration
	roomTTL       time.Duration

	mu           sync.Mutex
	shutdownChan chan struct{}
}

func NewLobbyServer(cfg *config.Config) *LobbyServer {
	s := &LobbyServer{
		addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		rpcAddr:        cfg.Server.RPCAddress,
		metricsAddr:    cfg.Server.MetricsAddress,
		userRegistry:   users.NewRegistry(),
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		monitor:        monitor.NewMonitor("lobby"),
		timers:         timer.NewManager(),
		heartbeat:      cfg.Lobby.HeartbeatInterval,
		sweepInterval:  cfg.Lobby.SweepInterval,
		roomTTL:        cfg.Lobby.RoomTTL,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	return s
}

func (s *LobbyServer) Start() error {
	s.monitor.StartServer(s.metricsAddr)

	rpcServer, err := lobbyrpc.NewServer(s.rpcAddr)
	if err != nil {
		return err
	}
	s.rpcServer = rpcServer
	netrpc.Register(lobbyrpc.NewLobbyService(s.userRegistry, s.roomManager))
	go s.rpcServer.Start()

	s.timers.Schedule(s.sweepInterval, s.sweepInterval, s.sweepRooms)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Lobby server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *LobbyServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
}

func (s *LobbyServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *LobbyServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}

	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			env, err := wsConn.ReadEnvelope()
			if err != nil {
				return
			}
			s.handleEvent(sess, env)
		}
	}
}

func (s *LobbyServer) handleEvent(sess *session.Session, env *network.Envelope) {
	start := time.Now()
	s.monitor.IncEventsReceived()
	sess.Touch()

	switch env.Event {
	case network.EventRegister:
		s.handleRegister(sess, env.Data)
	case network.EventCreateRoom:
		s.handleCreateRoom(sess, env.Data)
	case network.EventJoinRoom:
		s.handleJoinRoom(sess, env.Data)
	default:
		logger.Log.Infof("Unknown event %q from session %s", env.Event, sess.GetID())
	}

	s.monitor.ObserveEventLatency(time.Since(start))
}

func (s *LobbyServer) handleRegister(sess *session.Session, data []byte) {
	var req network.RegisterRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Username == "" {
		logger.Log.Infof("Dropping malformed register from session %s", sess.GetID())
		return
	}

	s.mu.Lock()
	_, already := s.userRegistry.Lookup(sess.ID)
	user := s.userRegistry.Register(sess.ID, req.Username, req.Email)
	sess.UserID = user.ID
	reply := registeredPayload{Success: true, User: user.Snapshot()}
	online := s.userRegistry.ListOnline()
	s.mu.Unlock()

	if already {
		logger.Log.Infof("Session %s re-registered, previous entry overwritten", sess.GetID())
	} else {
		s.monitor.IncOnlineUsers()
	}
	logger.Log.Infof("User %s registered on session %s", user.Username, sess.GetID())

	sess.SendEvent(network.EventRegistered, reply)
	s.broadcaster.BroadcastToAll(network.EventUsersOnline, online)
}

func (s *LobbyServer) handleCreateRoom(sess *session.Session, data []byte) {
	var req network.CreateRoomRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Log.Infof("Dropping malformed create_room from session %s", sess.GetID())
			return
		}
	}

	s.mu.Lock()
	user, ok := s.userRegistry.Lookup(sess.ID)
	if !ok {
		// 未注册连接的事件静默丢弃
		s.mu.Unlock()
		return
	}
	rm := s.roomManager.CreateRoom(user.Snapshot(), req.Name, req.IsPrivate)
	rm.Attach(sess.ID)
	sess.TrackRoom(rm.Code)
	view := rm.View()
	openRooms := s.roomManager.Count()
	s.mu.Unlock()

	s.monitor.SetOpenRooms(openRooms)
	logger.Log.Infof("Room %s created by %s", view.ID, user.Username)

	sess.SendEvent(network.EventRoomCreated, roomCreatedPayload{RoomID: view.ID, Room: view})
}

func (s *LobbyServer) handleJoinRoom(sess *session.Session, data []byte) {
	var req network.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		logger.Log.Infof("Dropping malformed join_room from session %s", sess.GetID())
		return
	}

	s.mu.Lock()
	user, ok := s.userRegistry.Lookup(sess.ID)
	if !ok {
		s.mu.Unlock()
		return
	}

	player := user.Snapshot()
	rm, err := s.roomManager.JoinRoom(req.RoomID, player)
	if err != nil {
		s.mu.Unlock()
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			// 参考行为：只有满员才回错误，未知房间静默丢弃
			logger.Log.Infof("Session %s tried to join unknown room %s", sess.GetID(), req.RoomID)
		case errors.Is(err, room.ErrRoomFull):
			sess.SendEvent(network.EventError, network.ErrorPayload{Message: err.Error()})
		default:
			logger.Log.Errorf("Join room %s failed for session %s: %v", req.RoomID, sess.GetID(), err)
		}
		return
	}

	rm.Attach(sess.ID)
	sess.TrackRoom(rm.Code)
	view := rm.View()
	s.mu.Unlock()

	logger.Log.Infof("User %s joined room %s", user.Username, view.ID)
	s.broadcaster.BroadcastToRoom(view.ID, network.EventPlayerJoined, playerJoinedPayload{Player: player, Room: view})
}

// handleDisconnect is the transport-raised disconnect path: mark offline,
// remove, detach from every room group the session joined, then publish
// presence.
func (s *LobbyServer) handleDisconnect(sess *session.Session) {
	s.mu.Lock()
	_, registered := s.userRegistry.Lookup(sess.ID)
	s.userRegistry.MarkOffline(sess.ID)
	s.userRegistry.Remove(sess.ID)

	for _, code := range sess.Rooms() {
		if rm, ok := s.roomManager.GetRoom(code); ok {
			rm.Detach(sess.ID)
		}
	}

	s.sessionManager.Remove(sess.ID)
	online := s.userRegistry.ListOnline()
	s.mu.Unlock()

	if registered {
		s.monitor.DecOnlineUsers()
		s.broadcaster.BroadcastToAll(network.EventUsersOnline, online)
	}
}

// sweepRooms closes rooms whose broadcast group has been empty longer than
// the configured ttl.
func (s *LobbyServer) sweepRooms() {
	s.mu.Lock()
	removed := s.roomManager.Sweep(s.roomTTL)
	openRooms := s.roomManager.Count()
	s.mu.Unlock()

	if len(removed) > 0 {
		logger.Log.Infof("Swept %d idle room(s): %v", len(removed), removed)
	}
	s.monitor.SetOpenRooms(openRooms)
}
