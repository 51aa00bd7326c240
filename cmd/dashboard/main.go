package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-desk/internal/dashboard"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "dashboard config path (optional, defaults to ~/.config/call-desk/dashboard.toml)")
	pollSeconds := flag.Int("poll", 0, "list refresh interval in seconds (optional, defaults to 30s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := dashboard.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "call-desk dashboard: %v\n", err)
		return 1
	}
	if *pollSeconds > 0 {
		cfg.Poll = time.Duration(*pollSeconds) * time.Second
	}

	client := dashboard.NewClient(cfg.APIURL, cfg.Token, 10*time.Second)
	store := &dashboard.Store{}

	// Populate the store before the UI starts, then keep it fresh.
	_ = dashboard.Refresh(ctx, store, client)
	dashboard.StartPoller(ctx, store, client, cfg.Poll)

	err = dashboard.Run(dashboard.Options{
		Context:  ctx,
		API:      client,
		Store:    store,
		StaffID:  cfg.StaffID,
		PollTick: time.Second,
	})
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "call-desk dashboard: %v\n", err)
		return 1
	}
	return 0
}
