package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Lobby  LobbyConfig  `mapstructure:"lobby"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	MetricsAddress string `mapstructure:"metrics_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
}

type LobbyConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	RoomTTL           time.Duration `mapstructure:"room_ttl"`
}

// LoadConfig reads config.yaml from path if present and applies environment
// overrides. The server runs without any config file; PORT alone controls the
// listen port, defaulting to 3000.
func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.rpc_address", ":3001")
	// 0 disables the read deadline; only useful where clients send pings
	viper.SetDefault("lobby.heartbeat_interval", "0")
	viper.SetDefault("lobby.sweep_interval", "1m")
	viper.SetDefault("lobby.room_ttl", "5m")

	viper.AutomaticEnv()
	viper.BindEnv("server.port", "PORT")

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}
