// Package bootstrap arma la fachada de cobranza a partir de la configuración; lo comparten la API y el barrido.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/ai"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/events"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/memory"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/messaging"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/pdf"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/postgres"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

// DevOrganizationID organización sembrada en modo memoria.
const DevOrganizationID = "00000000-0000-0000-0000-000000000001"

// App componentes listos para servir.
type App struct {
	Service *collections.Service
	Sweeper *collections.Sweeper
	Pool    *pgxpool.Pool // nil en modo memoria

	closers []func()
}

// Close libera conexiones en orden inverso de creación.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New conecta la persistencia (aplicando migraciones pendientes), los transportes y los adaptadores opcionales.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{}

	tx, repos, err := app.persistence(ctx, cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	sender := messaging.NewRouterFromConfig(cfg.Messaging, log)

	var classifier ports.ReplyClassifier
	if cfg.AI.AnthropicAPIKey != "" {
		classifier = ai.NewAnthropicService(cfg.AI.AnthropicAPIKey, cfg.AI.Model, cfg.AI.Timeout)
		log.Info().Str("model", cfg.AI.Model).Msg("clasificador de respuestas habilitado")
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY vacío: las respuestas entrantes no se clasifican")
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(log)
	if cfg.Kafka.Enabled() {
		kp, err := events.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			log.Error().Err(err).Msg("kafka no disponible, los eventos solo se registran en el log")
		} else {
			publisher = kp
			app.closers = append(app.closers, func() {
				if err := kp.Close(); err != nil {
					log.Warn().Err(err).Msg("cerrar writer de kafka")
				}
			})
		}
	}

	app.Service = collections.NewService(tx, repos, sender, classifier, publisher, pdf.NewMarotoPDFGenerator(), nil, log)
	app.Sweeper = collections.NewSweeper(app.Service, collections.SweepConfig{
		Concurrency:     cfg.Agent.SweepConcurrency,
		StaleAttemptAge: cfg.Agent.StaleAttemptAge,
		DueCaseBatch:    cfg.Agent.DueCaseBatch,
	})
	return app, nil
}

func (a *App) persistence(ctx context.Context, cfg *config.Config, log *logger.Logger) (collections.TxRunner, collections.Repositories, error) {
	if cfg.DB.InMemory() {
		store := memory.NewStore()
		store.SeedOrganization(entity.Organization{
			ID:     DevOrganizationID,
			Name:   cfg.App.Name,
			Status: entity.OrganizationActive,
		})
		log.Warn().Str("organization_id", DevOrganizationID).Msg("persistencia en memoria: los datos se pierden al reiniciar")
		return memory.NewTxRunner(store), store.Repositories(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, collections.Repositories{}, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		return nil, collections.Repositories{}, fmt.Errorf("migraciones: %w", err)
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("migración aplicada")
	}
	return postgres.NewTxRunner(pool), postgres.NewRepositories(pool), nil
}
