//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	"github.com/indexer-coordinator/engine/pkg/database"
)

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("coordinator"),
		tcpostgres.WithUsername("coordinator"),
		tcpostgres.WithPassword("coordinator"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.OpenPostgres(ctx, dsn, database.Options{MaxRetries: 3})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	repo := NewProjectRepository(db)
	tr := true
	in := &models.Project{
		ID:               "QmSubquery",
		ProjectType:      models.ProjectTypeSubquery,
		ServiceEndpoints: map[string]string{"indexer": "http://node:3000"},
		AdvancedConfig:   &models.ProjectAdvancedConfig{PurgeDB: &tr, Timeout: 60},
	}
	require.NoError(t, repo.Create(ctx, in))
	want, err := projectconfig.Hydrate(in)
	require.NoError(t, err)

	var got models.Project
	require.NoError(t, repo.GetByID(ctx, in.ID, &got))
	assert.Equal(t, stripTimes(want), stripTimes(&got))

	payg := NewPaygRepository(db)
	policy, err := projectconfig.HydratePayg(projectconfig.PaygInput{ID: in.ID})
	require.NoError(t, err)
	require.NoError(t, payg.Upsert(ctx, policy))
	require.NoError(t, payg.Upsert(ctx, policy))
}
