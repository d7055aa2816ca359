package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/feedsync/app"
	"github.com/fiffu/feedsync/config"
	"github.com/fiffu/feedsync/lib"
	"github.com/fiffu/feedsync/lib/syncer"
	"github.com/fiffu/feedsync/notifiers"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(notifiers.NewRegistry),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),
		fx.Provide(lib.NewFetcher),
		fx.Provide(lib.NewParser),
		fx.Provide(lib.NewReconciler),
		fx.Provide(lib.NewReadStates),
		fx.Provide(lib.NewService),
		fx.Provide(syncer.NewSyncer),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server) {}),
	).Run()
}
