package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/pkg/logger"
	"go.uber.org/zap"
)

// Run starts the interactive client on stdin/stdout.
func Run(cfg config.Config) {
	log := logger.NewLogger(cfg.Log, "libraryctl")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh, err := NewShell(log, cfg.API, os.Stdout)
	if err != nil {
		log.Fatal("new shell", zap.Error(err))
	}
	log.Debug("client start", zap.String("api", cfg.API.BaseURL))
	if err := sh.Run(ctx, os.Stdin); err != nil {
		log.Error("shell", zap.Error(err))
	}
}
