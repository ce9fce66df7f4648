// Command meshview runs the machine-explorer bridge: it watches the
// tailnet through the mesh daemon's LocalAPI, mounts peers' filesystems
// over SFTP, and serves the resulting tree to an IDE frontend over a
// local HTTP + WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meshview/internal/api"
	"meshview/internal/api/websocket"
	"meshview/internal/auth"
	"meshview/internal/config"
	"meshview/internal/db"
	"meshview/internal/explorer"
	"meshview/internal/hostui"
	"meshview/internal/remotefs"
	"meshview/internal/sshexec"
	"meshview/internal/status"
)

const version = "0.1.0-dev"

func main() {
	configPath := flag.String("config", "", "Path to meshview.yaml (optional)")
	addr := flag.String("addr", "", "Bridge listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides config)")
	socketPath := flag.String("socket", "", "Mesh daemon LocalAPI socket (overrides config)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("meshview v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("meshview: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("meshview: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(); err != nil {
		log.Fatalf("meshview: %v", err)
	}

	runner := sshexec.NewClient(sshexec.Config{
		User:           cfg.SSH.User,
		Port:           cfg.SSH.Port,
		KeyPath:        cfg.SSH.KeyPath,
		KnownHostsPath: cfg.SSH.KnownHostsPath,
	})
	defer func() { _ = runner.Close() }()

	fs := remotefs.NewSFTP(runner, nil)
	defer func() { _ = fs.Close() }()

	hub := websocket.NewHub(nil)
	hubDone := make(chan struct{})
	go hub.Run(hubDone)
	defer close(hubDone)

	host := hostui.NewHost(hub)
	resolver := explorer.NewPathResolver(runner, nil)
	provider := explorer.NewProvider(
		status.NewLocalClient(cfg.SocketPath),
		resolver,
		fs,
		store,
		host.Notifier,
		explorer.Config{DefaultRootDir: cfg.DefaultRootDir, HideGlobs: cfg.Hide},
		nil,
	)
	dragDrop := explorer.NewDragDrop(fs, provider, host.Notifier, host.Progress, nil)
	commands := explorer.NewCommands(provider, fs, store, host, cfg.AdminConsoleURL, nil)

	tokenConfig, err := auth.NewTokenConfig("meshview", 12*time.Hour)
	if err != nil {
		log.Fatalf("meshview: %v", err)
	}
	token, err := auth.GenerateToken("frontend", tokenConfig)
	if err != nil {
		log.Fatalf("meshview: %v", err)
	}

	server := api.NewServer(api.Config{
		Addr:        cfg.ListenAddr,
		Provider:    provider,
		Commands:    commands,
		DragDrop:    dragDrop,
		Hub:         hub,
		Connections: store,
		TokenConfig: tokenConfig,
	})

	// The frontend reads this line to find and authenticate the bridge.
	fmt.Printf("MESHVIEW_BRIDGE addr=%s token=%s\n", cfg.ListenAddr, token)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("meshview: received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("meshview: server: %v", err)
		}
		return
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("meshview: shutdown: %v", err)
	}
}
