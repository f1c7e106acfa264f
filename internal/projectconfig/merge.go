package projectconfig

import "github.com/indexer-coordinator/engine/internal/models"

// MergeForRuntime builds the Subquery runtime config from the two editable layers.
// It is a field-by-field copy; a nil layer contributes its defaults. The result shares
// no memory with its inputs.
func MergeForRuntime(base *models.ProjectBaseConfig, advanced *models.ProjectAdvancedConfig) *models.SubqueryConfig {
	if base == nil {
		base = DefaultBaseConfig()
	}
	if advanced == nil {
		advanced = DefaultAdvancedConfig()
	}
	b := base.Clone()
	a := advanced.Clone()

	return &models.SubqueryConfig{
		NetworkEndpoints:          b.NetworkEndpoints,
		NetworkDictionary:         b.NetworkDictionary,
		NodeVersion:               b.NodeVersion,
		QueryVersion:              b.QueryVersion,
		UsePrimaryNetworkEndpoint: b.UsePrimaryNetworkEndpoint,

		PoiEnabled: a.PoiEnabled,
		PurgeDB:    a.PurgeDB,
		Timeout:    a.Timeout,
		Worker:     a.Worker,
		BatchSize:  a.BatchSize,
		Cache:      a.Cache,
		CPU:        a.CPU,
		Memory:     a.Memory,
	}
}

// ApplyLayers replaces the base and advanced layers of p and, for Subquery projects,
// regenerates the runtime config from them so the two never drift. It returns a new record.
func ApplyLayers(p *models.Project, base *models.ProjectBaseConfig, advanced *models.ProjectAdvancedConfig) (*models.Project, error) {
	if _, err := models.ConfigKindFor(p.ProjectType); err != nil {
		return nil, err
	}
	out := p.Clone()
	if base != nil {
		out.BaseConfig = hydrateBase(base)
	}
	if advanced != nil {
		out.AdvancedConfig = hydrateAdvanced(advanced)
	}
	if out.ProjectType == models.ProjectTypeSubquery {
		out.ProjectConfig = MergeForRuntime(out.BaseConfig, out.AdvancedConfig)
	}
	return Hydrate(out)
}
