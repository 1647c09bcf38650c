package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/dailyquiz/internal/bank"
	"github.com/conorfennell/dailyquiz/internal/config"
	"github.com/conorfennell/dailyquiz/internal/quiz"
	"github.com/conorfennell/dailyquiz/internal/reward"
	"github.com/conorfennell/dailyquiz/internal/storage"
	"github.com/conorfennell/dailyquiz/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Database opened", "path", cfg.DB)

	res, err := bank.NewLoader().Load(ctx, cfg.BankOptions())
	if err != nil {
		return err
	}
	for _, p := range res.Problems {
		slog.Warn("Skipped question input", "error", p)
	}

	messages, err := reward.LoadMessages(cfg.Messages)
	if err != nil {
		return err
	}
	rewards := reward.NewPool(messages, db)
	slog.Info("Reward messages loaded", "count", rewards.Len())

	svc := quiz.NewService(db, quiz.Options{
		Params:    params,
		Questions: res.Questions,
		Rewards:   rewards,
		Strict:    cfg.Strict,
	})
	srv, err := web.NewServer(svc, cfg.LedgerDays)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.Addr, "timezone", cfg.Timezone, "session_size", cfg.SessionSize)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
