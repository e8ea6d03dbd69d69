package main

import (
	"github.com/wfunc/lobbyserver/config"
	"github.com/wfunc/lobbyserver/logger"
	"github.com/wfunc/lobbyserver/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Lobby Server
	lobby := server.NewLobbyServer(cfg)

	// Start Server
	logger.Log.Infof("Starting lobby server on port %d", cfg.Server.Port)
	if err := lobby.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
