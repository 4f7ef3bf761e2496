package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/user/agentree/internal/api"
	"github.com/user/agentree/internal/config"
	"github.com/user/agentree/internal/git"
	"github.com/user/agentree/internal/hub"
	"github.com/user/agentree/internal/lifecycle"
	"github.com/user/agentree/internal/manifest"
	"github.com/user/agentree/internal/server"
	"github.com/user/agentree/internal/state"
	"github.com/user/agentree/internal/tabs"
	"github.com/user/agentree/internal/trace"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.PrintToken {
		fmt.Println(cfg.Token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := manifest.Open(ctx, filepath.Join(cfg.DataDir, "manifest.db"))
	if err != nil {
		slog.Error("failed to open manifest database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	st := state.NewStore(filepath.Join(cfg.DataDir, "config.yaml"))
	agents := manifest.NewAgentRepo(database.SQL())
	sessions := manifest.NewSessionMapRepo(database.SQL())
	traces := trace.NewStore(filepath.Join(cfg.DataDir, "logs"), filepath.Join(cfg.DataDir, "transcripts"))

	eventHub := hub.New(cfg.Token)
	ctrl := lifecycle.NewController(git.CLI{}, st, agents, sessions, traces, cfg.DataDir, eventHub)
	tabCoord := tabs.NewCoordinator(st, agents, eventHub)

	router := api.NewRouter(ctrl, st, agents, sessions, tabCoord, traces, cfg.Token)
	srv := server.New(cfg, eventHub, router)

	fmt.Printf("\nagentree running at http://localhost:%d?token=%s\n\n", cfg.Port, cfg.Token)

	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
