// Command dsync is the differential-synchronization client: it connects
// to a dsyncd server, ticks a local edit/diff cycle on a timer, and
// exposes a terminal prompt for editing the shared document.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/beesaferoot/diff-sync/internal/config"
	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/ops"
	"github.com/beesaferoot/diff-sync/internal/repl"
	"github.com/beesaferoot/diff-sync/internal/syncclient"
	"github.com/beesaferoot/diff-sync/internal/transport"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		handleInit()
		return
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to configuration file")
		server      = flag.String("server", "", "Override the server address")
		clientID    = flag.String("client-id", "", "Override the client identity")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dsync %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *clientID != "" {
		cfg.ClientID = *clientID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.ClientConfig) error {
	logger := ops.NewLogger(&cfg.Logging)

	engine := syncclient.New(cfg.ClientID, "", 0, dmp.Options{
		MatchDistance:  cfg.Sync.MatchDistance,
		MatchThreshold: cfg.Sync.MatchThreshold,
	})

	syncInterval := time.Duration(cfg.Sync.IntervalMS) * time.Millisecond
	heartbeatInterval := time.Duration(cfg.Sync.HeartbeatIntervalMS) * time.Millisecond
	receiveTimeout := time.Duration(cfg.Sync.ReceiveTimeoutS) * time.Second
	sendTimeout := time.Duration(cfg.Sync.SendTimeoutS) * time.Second

	client := transport.NewClient(engine, logger, cfg.Server, syncInterval, heartbeatInterval, receiveTimeout, sendTimeout)
	if err := client.Connect(cfg.ClientID); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Server, err)
	}
	defer client.Close()

	// Connect resyncs only the shadow; start the local document from the
	// same master content so the first tick has nothing to send.
	shadow, _, _ := engine.State()
	engine.LocalEdit(shadow)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- client.Run(ctx, cfg.ClientID) }()

	prompt := repl.New(engine, os.Stdin, os.Stdout)
	replErrCh := make(chan error, 1)
	go func() { replErrCh <- prompt.Run() }()

	select {
	case err := <-runErrCh:
		return err
	case err := <-replErrCh:
		cancel()
		return err
	case <-ctx.Done():
		return nil
	}
}

func handleInit() {
	exampleConfig, err := config.ExampleClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(exampleConfig))
}
