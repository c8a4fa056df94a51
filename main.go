package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/isitup/app"
	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib"
	"github.com/fiffu/isitup/lib/store"
	"github.com/fiffu/isitup/lib/sweeper"
	"github.com/fiffu/isitup/lib/verifier"
	"github.com/fiffu/isitup/senders"
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
			zapcore.ISO8601TimeEncoder(t.UTC(), enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewDatabase),
		fx.Provide(store.NewStore),
		fx.Provide(app.NewTransport),
		fx.Provide(verifier.NewHTTPVerifier),

		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(app.NewNotifier),

		fx.Provide(lib.NewService),
		fx.Provide(app.NewSweeper),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server, *sweeper.Sweeper) {}),
	).Run()
}
