package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Scripting ScriptingConfig `toml:"scripting"`
	Data      DataConfig      `toml:"data"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name       string `toml:"name"`
	SpawnMapID int16  `toml:"spawn_map_id"`
	SpawnX     int32  `toml:"spawn_x"`
	SpawnY     int32  `toml:"spawn_y"`
	StartTime  int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	TickRate          time.Duration `toml:"tick_rate"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
}

type ScriptingConfig struct {
	Dir           string        `toml:"dir"`            // base directory for script files
	DefaultEngine string        `toml:"default_engine"` // engine used when a template names none
	CallTimeout   time.Duration `toml:"call_timeout"`   // budget per script call (0 = unlimited)
}

type DataConfig struct {
	Dir string `toml:"dir"` // directory holding npc_list.yaml, item_list.yaml, spawn_list.yaml
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	Enabled          bool `toml:"enabled"`
	PacketsPerSecond int  `toml:"packets_per_second"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:       "tmwgo",
			SpawnMapID: 1,
			SpawnX:     80,
			SpawnY:     100,
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:9601",
			TickRate:          100 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			WriteTimeout:      10 * time.Second,
		},
		Scripting: ScriptingConfig{
			Dir:           "scripts",
			DefaultEngine: "lua",
			CallTimeout:   50 * time.Millisecond,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			PacketsPerSecond: 60,
		},
	}
}
