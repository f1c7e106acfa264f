package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/indexer-coordinator/engine/internal/metadata"
	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	"github.com/indexer-coordinator/engine/internal/repository"
	"github.com/indexer-coordinator/engine/pkg/database"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) EnqueueRefresh(ctx context.Context, projectID string) error {
	return m.Called(ctx, projectID).Error(0)
}

type fixture struct {
	projects ProjectService
	payg     PaygService
	cache    metadata.Cache
	refresh  *mockRefresher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(nil, false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := metadata.NewRedisCache(rdb, time.Minute)
	ref := &mockRefresher{}
	paygRepo := repository.NewPaygRepository(db)
	return &fixture{
		projects: NewProjectService(repository.NewProjectRepository(db), paygRepo, cache, ref),
		payg:     NewPaygService(paygRepo),
		cache:    cache,
		refresh:  ref,
	}
}

func TestCreateProjectSchedulesRefresh(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.refresh.On("EnqueueRefresh", mock.Anything, "QmA").Return(nil).Once()

	in := &models.Project{ID: "QmA", ProjectType: models.ProjectTypeSubquery, NodeEndpoint: "http://node:3000"}
	p, err := f.projects.CreateProject(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1800, p.AdvancedConfig.Timeout)
	assert.Nil(t, in.AdvancedConfig, "input must not be mutated")
	f.refresh.AssertExpectations(t)
}

func TestCreateProjectRefreshFailureIsNotFatal(t *testing.T) {
	f := setup(t)
	f.refresh.On("EnqueueRefresh", mock.Anything, "QmA").Return(errors.New("redis down"))

	_, err := f.projects.CreateProject(context.Background(),
		&models.Project{ID: "QmA", ProjectType: models.ProjectTypeOther, NodeEndpoint: "http://node"})
	require.NoError(t, err)
}

func TestCreateProjectValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.projects.CreateProject(ctx, &models.Project{ProjectType: models.ProjectTypeOther})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = f.projects.CreateProject(ctx, &models.Project{ID: "x", ProjectType: "Bogus"})
	var invalid *models.InvalidProjectTypeError
	assert.True(t, errors.As(err, &invalid))
	f.refresh.AssertNotCalled(t, "EnqueueRefresh", mock.Anything, mock.Anything)
}

func TestUpdateConfigRemergesSubquery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, &models.Project{ID: "QmA", ProjectType: models.ProjectTypeSubquery})
	require.NoError(t, err)

	no := false
	p, err := f.projects.UpdateConfig(ctx, "QmA", &UpdateConfigInput{
		Base:     &models.ProjectBaseConfig{NetworkEndpoints: []string{"wss://rpc"}, UsePrimaryNetworkEndpoint: &no},
		Advanced: &models.ProjectAdvancedConfig{Timeout: 60, Worker: 4},
	})
	require.NoError(t, err)

	cfg := p.ProjectConfig.(*models.SubqueryConfig)
	assert.Equal(t, []string{"wss://rpc"}, cfg.NetworkEndpoints)
	assert.False(t, *cfg.UsePrimaryNetworkEndpoint)
	assert.Equal(t, 60, cfg.Timeout)
	assert.Equal(t, 4, cfg.Worker)
	assert.False(t, *cfg.PurgeDB)

	got, err := f.projects.GetProject(ctx, "QmA")
	require.NoError(t, err)
	assert.Equal(t, cfg, got.ProjectConfig)

	// advanced alone keeps the stored base
	p, err = f.projects.UpdateConfig(ctx, "QmA", &UpdateConfigInput{Advanced: &models.ProjectAdvancedConfig{Timeout: 90}})
	require.NoError(t, err)
	cfg = p.ProjectConfig.(*models.SubqueryConfig)
	assert.Equal(t, []string{"wss://rpc"}, cfg.NetworkEndpoints)
	assert.Equal(t, 90, cfg.Timeout)
}

func TestUpdateConfigErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.projects.UpdateConfig(ctx, "QmA", &UpdateConfigInput{})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = f.projects.UpdateConfig(ctx, "missing", &UpdateConfigInput{Advanced: &models.ProjectAdvancedConfig{}})
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUpdateProjectConfigRejectsMismatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, &models.Project{ID: "rpc", ProjectType: models.ProjectTypeChainRpc})
	require.NoError(t, err)

	_, err = f.projects.UpdateProjectConfig(ctx, "rpc", &models.SubqueryConfig{})
	assert.ErrorIs(t, err, models.ErrInvalidProjectType)

	p, err := f.projects.UpdateProjectConfig(ctx, "rpc", &models.RpcConfig{RpcFamily: []string{"evm"}})
	require.NoError(t, err)
	assert.Equal(t, &models.RpcConfig{RpcFamily: []string{"evm"}}, p.ProjectConfig)

	got, err := f.projects.GetProject(ctx, "rpc")
	require.NoError(t, err)
	assert.Equal(t, p.ProjectConfig, got.ProjectConfig)
}

func TestUpdateProjectConfigSyncsSubqueryLayers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, &models.Project{ID: "QmA", ProjectType: models.ProjectTypeSubquery})
	require.NoError(t, err)

	p, err := f.projects.UpdateProjectConfig(ctx, "QmA", &models.SubqueryConfig{
		NetworkEndpoints: []string{"wss://a"},
		Timeout:          120,
		Memory:           4096,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://a"}, p.BaseConfig.NetworkEndpoints)
	assert.True(t, *p.BaseConfig.UsePrimaryNetworkEndpoint)
	assert.Equal(t, 120, p.AdvancedConfig.Timeout)
	assert.Equal(t, 4096, p.AdvancedConfig.Memory)
	assert.Equal(t, p.ProjectConfig, projectconfig.MergeForRuntime(p.BaseConfig, p.AdvancedConfig))
}

func TestProjectDetails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, &models.Project{ID: "QmA", ProjectType: models.ProjectTypeOther})
	require.NoError(t, err)

	d, err := f.projects.GetProjectDetails(ctx, "QmA")
	require.NoError(t, err)
	assert.Equal(t, "QmA", d.ID)
	assert.Nil(t, d.Metadata)
	assert.Nil(t, d.Payg)

	require.NoError(t, f.cache.Set(ctx, "QmA", &models.Metadata{LastProcessedHeight: 7}))
	threshold := 0
	_, err = f.payg.UpdatePayg(ctx, projectconfig.PaygInput{ID: "QmA", Threshold: &threshold})
	require.NoError(t, err)

	d, err = f.projects.GetProjectDetails(ctx, "QmA")
	require.NoError(t, err)
	require.NotNil(t, d.Metadata)
	assert.Equal(t, int64(7), d.Metadata.LastProcessedHeight)
	require.NotNil(t, d.Payg)
	assert.Equal(t, 0, d.Payg.Threshold)
	assert.Equal(t, projectconfig.DefaultPaygOverflow, d.Payg.Overflow)

	_, err = f.projects.GetProjectDetails(ctx, "missing")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestDeleteProjectClearsCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.projects.CreateProject(ctx, &models.Project{ID: "QmA", ProjectType: models.ProjectTypeOther})
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(ctx, "QmA", &models.Metadata{}))
	require.NoError(t, f.cache.AppendLog(ctx, "QmA", "boom"))

	logs, err := f.projects.ProjectLogs(ctx, "QmA", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.LogEntry{{Log: "boom"}}, logs)

	require.NoError(t, f.projects.DeleteProject(ctx, "QmA"))
	m, err := f.cache.Get(ctx, "QmA")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = f.projects.GetProject(ctx, "QmA")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	assert.True(t, appErr.IsCode(f.projects.DeleteProject(ctx, "QmA"), appErr.CodeNotFound))
}

func TestListAndStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, p := range []*models.Project{
		{ID: "a", ProjectType: models.ProjectTypeSubquery},
		{ID: "b", ProjectType: models.ProjectTypeChainRpc},
	} {
		_, err := f.projects.CreateProject(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, f.projects.UpdateStatus(ctx, "b", 1))

	status := 1
	out, err := f.projects.ListProjects(ctx, repository.ProjectFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)

	out, err = f.projects.ListProjects(ctx, repository.ProjectFilter{ProjectType: models.ProjectTypeSubquery})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestResolveDefaultsPassthrough(t *testing.T) {
	f := setup(t)
	d, err := f.projects.ResolveDefaults(models.ProjectTypeChainRpc)
	require.NoError(t, err)
	assert.Equal(t, &models.RpcConfig{RpcFamily: []string{}}, d.Project)

	_, err = f.projects.ResolveDefaults("")
	var unknown *models.UnknownProjectTypeError
	assert.True(t, errors.As(err, &unknown))
}

func TestPaygReplaceWholeRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	price := "10"
	p, err := f.payg.UpdatePayg(ctx, projectconfig.PaygInput{ID: "QmA", Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "10", p.Price)
	assert.Equal(t, projectconfig.DefaultPaygThreshold, p.Threshold)

	// a second update without price resets it to the default
	overflow := 9
	p, err = f.payg.UpdatePayg(ctx, projectconfig.PaygInput{ID: "QmA", Overflow: &overflow})
	require.NoError(t, err)
	assert.Equal(t, "", p.Price)
	assert.Equal(t, 9, p.Overflow)

	_, err = f.payg.UpdatePayg(ctx, projectconfig.PaygInput{})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = f.payg.GetPayg(ctx, "missing")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}
