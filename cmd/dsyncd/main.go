// Command dsyncd runs the differential-synchronization server: it owns
// the master document, accepts client connections, and fans edits out to
// every other connected session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beesaferoot/diff-sync/internal/config"
	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/ops"
	"github.com/beesaferoot/diff-sync/internal/storage"
	"github.com/beesaferoot/diff-sync/internal/syncserver"
	"github.com/beesaferoot/diff-sync/internal/syncserver/redisbus"
	"github.com/beesaferoot/diff-sync/internal/transport"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			handleInit()
			return
		case "backup":
			handleBackup(os.Args[2:])
			return
		case "restore":
			handleRestore(os.Args[2:])
			return
		}
	}

	var (
		showVersion  = flag.Bool("version", false, "Show version information")
		configPath   = flag.String("config", "", "Path to configuration file")
		address      = flag.String("address", "", "Override the listen address")
		databasePath = flag.String("database-path", "", "Override the sqlite database path")
		documentName = flag.String("document-name", "", "Override the served document name")
		diagAddress  = flag.String("diag-address", "", "Address for the debug HTTP surface (empty disables it)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dsyncd %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *databasePath != "" {
		cfg.DatabasePath = *databasePath
	}
	if *documentName != "" {
		cfg.DocumentName = *documentName
	}

	fmt.Printf("Starting dsyncd %s\n", version)
	fmt.Printf("  Document: %s\n", cfg.DocumentName)
	fmt.Printf("  Database: %s\n", cfg.DatabasePath)
	fmt.Println()

	if err := run(cfg, *diagAddress); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, diagAddress string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := ops.NewLogger(&cfg.Logging)

	fmt.Println("Initializing storage...")
	store, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	fmt.Println("  Storage ready")

	opts := dmp.Options{MatchDistance: cfg.Sync.MatchDistance, MatchThreshold: cfg.Sync.MatchThreshold}
	core, err := syncserver.NewCore(ctx, store, cfg.DocumentName, opts, logger)
	if err != nil {
		return fmt.Errorf("initialize sync core: %w", err)
	}

	if cfg.RedisURL != "" {
		fmt.Println("Connecting cross-process fan-out bus...")
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis_url: %w", err)
		}
		bus := redisbus.New(redis.NewClient(opt), cfg.DocumentName)
		core.SetBroadcaster(bus)

		updates, err := bus.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe to fan-out bus: %w", err)
		}
		go func() {
			for update := range updates {
				core.AdoptRemoteMaster(update.Content, update.Version)
			}
		}()
		defer bus.Close()
		fmt.Println("  Fan-out bus connected")
	}

	fmt.Printf("Starting transport server on %s...\n", cfg.Address)
	receiveTimeout := time.Duration(cfg.Sync.ReceiveTimeoutS) * time.Second
	sendTimeout := time.Duration(cfg.Sync.SendTimeoutS) * time.Second
	server := transport.NewServer(core, logger, receiveTimeout, sendTimeout)
	if err := server.Start(cfg.Address); err != nil {
		return fmt.Errorf("start transport server: %w", err)
	}
	defer server.Stop()
	fmt.Println("  Transport server ready")

	var diagServer *diagHTTPServer
	if diagAddress != "" {
		fmt.Printf("Starting diagnostics endpoint on %s...\n", diagAddress)
		diagServer = startDiagnostics(diagAddress, version, core)
		defer diagServer.Close()
		fmt.Println("  Diagnostics endpoint ready")
	}

	fmt.Println()
	fmt.Println("dsyncd is running. Press Ctrl+C to shut down.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down gracefully...")
	return nil
}

func handleInit() {
	exampleConfig, err := config.ExampleServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(exampleConfig))
}

func handleBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	databasePath := fs.String("database-path", "documents.db", "Path to the sqlite database to back up")
	dest := fs.String("dest", "", "Destination path for the backup")
	fs.Parse(args)

	if *dest == "" {
		fmt.Fprintln(os.Stderr, "Error: --dest is required")
		os.Exit(1)
	}

	logger := ops.NewLogger(&config.Logging{Level: "info", Format: "text"})
	mgr := ops.NewBackupManager(*databasePath, logger)
	if err := mgr.Backup(context.Background(), *dest); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backed up %s to %s\n", *databasePath, *dest)
}

func handleRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	databasePath := fs.String("database-path", "documents.db", "Path to restore the sqlite database to")
	from := fs.String("from", "", "Source backup path")
	fs.Parse(args)

	if *from == "" {
		fmt.Fprintln(os.Stderr, "Error: --from is required")
		os.Exit(1)
	}

	logger := ops.NewLogger(&config.Logging{Level: "info", Format: "text"})
	mgr := ops.NewBackupManager(*databasePath, logger)
	if err := mgr.Restore(context.Background(), *from); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Restored %s from %s\n", *databasePath, *from)
}
