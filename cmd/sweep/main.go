// sweep ejecuta una pasada del barrido de cobranza y termina. Pensado para cron o un job programado
// cuando la API corre con AGENT_SWEEP_INTERVAL=0.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/emiliofantozzi/cobra/internal/bootstrap"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "cobra-sweep"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer deps.Close()

	report, err := deps.Sweeper.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("barrido interrumpido")
		deps.Close()
		os.Exit(1)
	}
	if report.Failed > 0 {
		log.Warn().Int("failed", report.Failed).Msg("barrido con organizaciones fallidas")
	}
}
