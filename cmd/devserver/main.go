package main

import (
	stdLog "log"
	"os"
	"time"

	"github.com/Astemirdum/library-loan-client/app"
	"github.com/Astemirdum/library-loan-client/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithWriteTimeout(time.Minute),
	)

	app.RunDevServer(cfg)
}
