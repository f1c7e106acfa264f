package projectconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexer-coordinator/engine/internal/models"
)

func TestResolveDefaultsIsDeterministic(t *testing.T) {
	for _, pt := range models.ProjectTypes {
		t.Run(string(pt), func(t *testing.T) {
			a, err := ResolveDefaults(pt)
			require.NoError(t, err)
			b, err := ResolveDefaults(pt)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestResolveDefaultsVariants(t *testing.T) {
	sq, err := ResolveDefaults(models.ProjectTypeSubquery)
	require.NoError(t, err)
	cfg, ok := sq.Project.(*models.SubqueryConfig)
	require.True(t, ok, "subquery type must resolve to a subquery config, got %T", sq.Project)
	assert.True(t, cfg.PoiEnabled)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultWorker, cfg.Worker)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultCache, cfg.Cache)
	assert.Equal(t, DefaultCPU, cfg.CPU)
	assert.Equal(t, DefaultMemory, cfg.Memory)
	require.NotNil(t, cfg.UsePrimaryNetworkEndpoint)
	assert.True(t, *cfg.UsePrimaryNetworkEndpoint)
	require.NotNil(t, cfg.PurgeDB)
	assert.False(t, *cfg.PurgeDB)
	assert.Equal(t, []string{}, cfg.NetworkEndpoints)

	rpc, err := ResolveDefaults(models.ProjectTypeChainRpc)
	require.NoError(t, err)
	assert.Equal(t, &models.RpcConfig{RpcFamily: []string{}}, rpc.Project)

	for _, pt := range []models.ProjectType{models.ProjectTypeDictionary, models.ProjectTypeSubgraph, models.ProjectTypeOther} {
		d, err := ResolveDefaults(pt)
		require.NoError(t, err)
		assert.Equal(t, models.OpaqueConfig{}, d.Project, string(pt))
	}
}

func TestResolveDefaultsUnknownType(t *testing.T) {
	for _, pt := range []models.ProjectType{"unknown", "", "subquery"} {
		_, err := ResolveDefaults(pt)
		require.Error(t, err)

		var unknown *models.UnknownProjectTypeError
		require.True(t, errors.As(err, &unknown), "want UnknownProjectTypeError for %q, got %T", pt, err)
		assert.Equal(t, pt, unknown.Type)
		assert.ErrorIs(t, err, models.ErrInvalidProjectType)
	}
}

func TestResolveDefaultsReturnsFreshValues(t *testing.T) {
	a, err := ResolveDefaults(models.ProjectTypeSubquery)
	require.NoError(t, err)
	a.Base.NetworkEndpoints = append(a.Base.NetworkEndpoints, "wss://mutated")
	*a.Base.UsePrimaryNetworkEndpoint = false
	a.Advanced.Timeout = 1
	a.Project.(*models.SubqueryConfig).Worker = 99

	b, err := ResolveDefaults(models.ProjectTypeSubquery)
	require.NoError(t, err)
	assert.Empty(t, b.Base.NetworkEndpoints)
	assert.True(t, *b.Base.UsePrimaryNetworkEndpoint)
	assert.Equal(t, DefaultTimeout, b.Advanced.Timeout)
	assert.Equal(t, DefaultWorker, b.Project.(*models.SubqueryConfig).Worker)
}

func TestResolveDefaultsOverrideLeavesSiblings(t *testing.T) {
	d, err := ResolveDefaults(models.ProjectTypeSubquery, WithTimeout(600), WithPurgeDB(true))
	require.NoError(t, err)

	want := DefaultAdvancedConfig()
	want.Timeout = 600
	want.PurgeDB = boolPtr(true)
	assert.Equal(t, want, d.Advanced)
	assert.Equal(t, DefaultBaseConfig(), d.Base)

	cfg := d.Project.(*models.SubqueryConfig)
	assert.Equal(t, 600, cfg.Timeout)
	assert.True(t, *cfg.PurgeDB)
	assert.Equal(t, DefaultWorker, cfg.Worker)
}

func TestResolveDefaultsBaseOverrides(t *testing.T) {
	d, err := ResolveDefaults(models.ProjectTypeChainRpc,
		WithNetworkEndpoints("wss://a", "wss://b"),
		WithUsePrimaryNetworkEndpoint(false),
		WithNodeVersion("v3.0.0"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://a", "wss://b"}, d.Base.NetworkEndpoints)
	assert.False(t, *d.Base.UsePrimaryNetworkEndpoint)
	assert.Equal(t, "v3.0.0", d.Base.NodeVersion)
	assert.Equal(t, "", d.Base.QueryVersion)
	assert.Equal(t, DefaultRpcConfig(), d.Project)
}
