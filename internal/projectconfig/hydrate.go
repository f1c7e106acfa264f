package projectconfig

import (
	"fmt"

	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

// Hydrate returns a copy of p with every unset field replaced by its default.
// Explicit values, including "", false, 0 and empty non-nil collections, are kept.
// Hydrating an already hydrated record returns an equal record.
//
// projectConfig defaults depend on ProjectType: Subquery gets the merged base and
// advanced defaults, ChainRpc an empty rpcFamily, anything else an empty map.
// A type outside the closed set, or a config whose variant does not belong to the
// type, fails with *models.InvalidProjectTypeError.
func Hydrate(p *models.Project) (*models.Project, error) {
	if p == nil {
		return nil, appErr.New(appErr.CodeInvalid, "project is required")
	}
	kind, err := models.ConfigKindFor(p.ProjectType)
	if err != nil {
		return nil, err
	}
	if !isNilConfig(p.ProjectConfig) && p.ProjectConfig.Kind() != kind {
		return nil, &models.InvalidProjectTypeError{
			Type:   p.ProjectType,
			Reason: fmt.Sprintf("project config is %s-shaped, want %s", p.ProjectConfig.Kind(), kind),
		}
	}

	out := p.Clone()
	if out.ServiceEndpoints == nil {
		out.ServiceEndpoints = map[string]string{}
	}
	if out.Details == nil {
		out.Details = &models.ProjectInfo{}
	}
	if out.Manifest == nil {
		out.Manifest = &models.ProjectManifest{}
	}
	out.BaseConfig = hydrateBase(out.BaseConfig)
	out.AdvancedConfig = hydrateAdvanced(out.AdvancedConfig)
	out.ProjectConfig = hydrateProjectConfig(out.ProjectType, out.ProjectConfig)
	return out, nil
}

func hydrateBase(c *models.ProjectBaseConfig) *models.ProjectBaseConfig {
	if c == nil {
		return DefaultBaseConfig()
	}
	c = c.Clone()
	if c.UsePrimaryNetworkEndpoint == nil {
		c.UsePrimaryNetworkEndpoint = boolPtr(DefaultUsePrimaryNetworkEndpoint)
	}
	return c
}

func hydrateAdvanced(c *models.ProjectAdvancedConfig) *models.ProjectAdvancedConfig {
	if c == nil {
		return DefaultAdvancedConfig()
	}
	c = c.Clone()
	if c.PurgeDB == nil {
		c.PurgeDB = boolPtr(DefaultPurgeDB)
	}
	return c
}

// hydrateProjectConfig expects c to already match t.
func hydrateProjectConfig(t models.ProjectType, c models.ProjectConfig) models.ProjectConfig {
	if isNilConfig(c) {
		return resolve(t).Project
	}
	switch v := c.(type) {
	case *models.SubqueryConfig:
		v = v.Clone()
		if v.UsePrimaryNetworkEndpoint == nil {
			v.UsePrimaryNetworkEndpoint = boolPtr(DefaultUsePrimaryNetworkEndpoint)
		}
		if v.PurgeDB == nil {
			v.PurgeDB = boolPtr(DefaultPurgeDB)
		}
		return v
	case *models.RpcConfig:
		v = v.Clone()
		if v.RpcFamily == nil {
			v.RpcFamily = []string{}
		}
		return v
	case models.OpaqueConfig:
		if v == nil {
			return models.OpaqueConfig{}
		}
		return v.Clone()
	default:
		panic(fmt.Sprintf("projectconfig: unhandled config variant %T", c))
	}
}

func isNilConfig(c models.ProjectConfig) bool {
	switch v := c.(type) {
	case nil:
		return true
	case *models.SubqueryConfig:
		return v == nil
	case *models.RpcConfig:
		return v == nil
	}
	return false
}
