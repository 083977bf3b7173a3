package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/dedupe"
	"github.com/visionrelay/visionrelay/internal/gateway"
	"github.com/visionrelay/visionrelay/internal/notify"
	"github.com/visionrelay/visionrelay/internal/store"
	"github.com/visionrelay/visionrelay/internal/vision"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook gateway",
	Run:   runServe,
}

var serveSignalNotify = signal.Notify
var serveSignalStop = signal.Stop

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🌐 visionrelay Gateway")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		fmt.Printf("Store error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	dd := dedupe.New(cfg.Dedupe.TTL)
	vc := vision.NewClient(cfg.Vision.APIBase, cfg.Vision.Timeout)
	notifier := notify.New(cfg.Slack.APIBase, 15*time.Second)

	srv, err := gateway.New(cfg, st, dd, vc, notifier)
	if err != nil {
		fmt.Printf("Gateway error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	serveSignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer serveSignalStop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}
