package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/internal/devserver"
	"github.com/Astemirdum/library-loan-client/pkg/logger"
	"go.uber.org/zap"
)

func RunDevServer(cfg config.Config) {
	log := logger.NewLogger(cfg.Log, "devserver")

	store := devserver.NewStore(time.Now, 0)
	if err := devserver.Seed(store, cfg.DevServer.SeedPassword, cfg.DevServer.SeedCatalog); err != nil {
		log.Fatal("seed", zap.Error(err))
	}
	h := devserver.New(store, cfg.DevServer, log)

	srv := devserver.NewServer(cfg.DevServer, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.DevServer.Host, cfg.DevServer.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}
