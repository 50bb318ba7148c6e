package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/bootstrap"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

func TestNew_ModoMemoriaSiembraOrganizacion(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "cobra-test"},
		DB:  config.DBConfig{Driver: "memory"},
	}
	app, err := bootstrap.New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Pool)

	report, err := app.Sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Organizations)

	rc := repository.RepositoryContext{OrganizationID: bootstrap.DevOrganizationID, ActorID: "test"}
	agentCfg, err := app.Service.GetAgentConfig(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", agentCfg.DefaultTimezone)
}
