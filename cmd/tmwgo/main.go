package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tmwgo/server/internal/config"
	"github.com/tmwgo/server/internal/core/handle"
	"github.com/tmwgo/server/internal/core/tick"
	"github.com/tmwgo/server/internal/data"
	"github.com/tmwgo/server/internal/game"
	gonet "github.com/tmwgo/server/internal/net"
	"github.com/tmwgo/server/internal/net/packet"
	"github.com/tmwgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Script engines register themselves at init.
	_ "github.com/tmwgo/server/internal/script/goengine"
	_ "github.com/tmwgo/server/internal/script/luaengine"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             tmwgo  v0.1.0                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       Mana World · Go game server         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TMWGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Load data tables
	printSection("data")

	npcTable, err := data.LoadNpcTable(filepath.Join(cfg.Data.Dir, "npc_list.yaml"))
	if err != nil {
		return fmt.Errorf("load npc table: %w", err)
	}
	printStat("NPC templates", npcTable.Count())

	itemTable, err := data.LoadItemTable(filepath.Join(cfg.Data.Dir, "item_list.yaml"))
	if err != nil {
		return fmt.Errorf("load item table: %w", err)
	}
	printStat("item classes", itemTable.Count())

	spawnList, err := data.LoadSpawnList(filepath.Join(cfg.Data.Dir, "spawn_list.yaml"))
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}

	// 4. Create world state and session store
	worldState := world.NewState(handle.NewTable())
	sessions := gonet.NewSessionStore()

	// 5. Script manager, NPC spawns
	manager := game.NewManager(game.Options{
		World:         worldState,
		Send:          sessions,
		NpcTable:      npcTable,
		ItemTable:     itemTable,
		ScriptsDir:    cfg.Scripting.Dir,
		DefaultEngine: cfg.Scripting.DefaultEngine,
		CallTimeout:   cfg.Scripting.CallTimeout,
		Log:           log,
	})
	defer manager.Shutdown()

	spawned := 0
	for _, spawn := range spawnList {
		if manager.SpawnNpc(spawn.NpcID, spawn.MapID, spawn.X, spawn.Y, spawn.Heading) != nil {
			spawned++
		}
	}
	printStat("NPCs spawned", spawned)
	fmt.Println()

	// 6. Message handler registry
	pktReg := packet.NewRegistry(log)
	deps := &game.Deps{
		Log:        log,
		World:      worldState,
		Manager:    manager,
		Sessions:   sessions,
		SpawnMapID: cfg.Server.SpawnMapID,
		SpawnX:     cfg.Server.SpawnX,
		SpawnY:     cfg.Server.SpawnY,
	}
	game.RegisterHandlers(pktReg, deps)

	// 7. Network server
	pktPerSec := 0
	if cfg.RateLimit.Enabled {
		pktPerSec = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := gonet.NewServer(
		cfg.Network.BindAddress,
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		pktPerSec,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 8. Systems
	runner := tick.NewRunner()
	runner.Register(game.NewInputSystem(netServer, pktReg, deps, cfg.Network.MaxPacketsPerTick, log))
	runner.Register(game.NewScriptSystem(manager))
	runner.Register(game.NewOutputSystem(deps))
	runner.Register(game.NewCleanupSystem(manager))

	// 9. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			netServer.Shutdown()
			log.Info("server stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
