// Package projectconfig resolves, hydrates and merges the layered configuration of
// project records. Everything in it is pure: no I/O, no shared mutable state.
package projectconfig

import "github.com/indexer-coordinator/engine/internal/models"

// Fixed policy values. Changing any of them is a versioned policy change.
const (
	DefaultUsePrimaryNetworkEndpoint = true
	DefaultPoiEnabled                = true
	DefaultPurgeDB                   = false
	DefaultTimeout                   = 1800 // seconds
	DefaultWorker                    = 2
	DefaultBatchSize                 = 50
	DefaultCache                     = 300 // MB
	DefaultCPU                       = 2
	DefaultMemory                    = 2046 // MB

	DefaultPaygPrice      = ""
	DefaultPaygExpiration = 0
	DefaultPaygThreshold  = 100
	DefaultPaygOverflow   = 5
	DefaultPaygToken      = ""
)

// Defaults is the bundle of default layers for one project type.
// Every call to ResolveDefaults returns freshly allocated values.
type Defaults struct {
	Type     models.ProjectType
	Base     *models.ProjectBaseConfig
	Advanced *models.ProjectAdvancedConfig
	Project  models.ProjectConfig
}

// DefaultOption overrides a single default field without touching its siblings.
type DefaultOption func(*overrides)

type overrides struct {
	base     models.ProjectBaseConfig
	advanced models.ProjectAdvancedConfig
}

func WithNetworkEndpoints(endpoints ...string) DefaultOption {
	return func(o *overrides) { o.base.NetworkEndpoints = append([]string{}, endpoints...) }
}

func WithNetworkDictionary(dictionary string) DefaultOption {
	return func(o *overrides) { o.base.NetworkDictionary = dictionary }
}

func WithNodeVersion(version string) DefaultOption {
	return func(o *overrides) { o.base.NodeVersion = version }
}

func WithQueryVersion(version string) DefaultOption {
	return func(o *overrides) { o.base.QueryVersion = version }
}

func WithUsePrimaryNetworkEndpoint(v bool) DefaultOption {
	return func(o *overrides) { o.base.UsePrimaryNetworkEndpoint = &v }
}

func WithPoiEnabled(v bool) DefaultOption {
	return func(o *overrides) { o.advanced.PoiEnabled = v }
}

func WithPurgeDB(v bool) DefaultOption {
	return func(o *overrides) { o.advanced.PurgeDB = &v }
}

func WithTimeout(seconds int) DefaultOption {
	return func(o *overrides) { o.advanced.Timeout = seconds }
}

func WithWorker(n int) DefaultOption {
	return func(o *overrides) { o.advanced.Worker = n }
}

func WithBatchSize(n int) DefaultOption {
	return func(o *overrides) { o.advanced.BatchSize = n }
}

func WithCache(mb int) DefaultOption {
	return func(o *overrides) { o.advanced.Cache = mb }
}

func WithCPU(cores int) DefaultOption {
	return func(o *overrides) { o.advanced.CPU = cores }
}

func WithMemory(mb int) DefaultOption {
	return func(o *overrides) { o.advanced.Memory = mb }
}

// DefaultBaseConfig returns the default base layer.
func DefaultBaseConfig() *models.ProjectBaseConfig {
	return &models.ProjectBaseConfig{
		NetworkEndpoints:          []string{},
		NetworkDictionary:         "",
		NodeVersion:               "",
		QueryVersion:              "",
		UsePrimaryNetworkEndpoint: boolPtr(DefaultUsePrimaryNetworkEndpoint),
	}
}

// DefaultAdvancedConfig returns the default advanced layer.
func DefaultAdvancedConfig() *models.ProjectAdvancedConfig {
	return &models.ProjectAdvancedConfig{
		PoiEnabled: DefaultPoiEnabled,
		PurgeDB:    boolPtr(DefaultPurgeDB),
		Timeout:    DefaultTimeout,
		Worker:     DefaultWorker,
		BatchSize:  DefaultBatchSize,
		Cache:      DefaultCache,
		CPU:        DefaultCPU,
		Memory:     DefaultMemory,
	}
}

// DefaultRpcConfig returns the default chain RPC config.
func DefaultRpcConfig() *models.RpcConfig {
	return &models.RpcConfig{RpcFamily: []string{}}
}

// ResolveDefaults returns the default layers for t. The project layer is the Subquery
// merge of the base and advanced defaults, an empty RPC config, or an empty opaque map.
// Types outside the closed set, including the empty type, fail with *models.UnknownProjectTypeError.
func ResolveDefaults(t models.ProjectType, opts ...DefaultOption) (Defaults, error) {
	if !t.Valid() {
		return Defaults{}, &models.UnknownProjectTypeError{Type: t}
	}
	return resolve(t, opts...), nil
}

// resolve builds the bundle for any type ConfigKindFor accepts, including "".
func resolve(t models.ProjectType, opts ...DefaultOption) Defaults {
	o := overrides{base: *DefaultBaseConfig(), advanced: *DefaultAdvancedConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	base := o.base.Clone()
	advanced := o.advanced.Clone()

	d := Defaults{Type: t, Base: base, Advanced: advanced}
	kind, _ := models.ConfigKindFor(t)
	switch kind {
	case models.ConfigKindSubquery:
		d.Project = MergeForRuntime(base, advanced)
	case models.ConfigKindRpc:
		d.Project = DefaultRpcConfig()
	case models.ConfigKindOpaque:
		d.Project = models.OpaqueConfig{}
	}
	return d
}

func boolPtr(v bool) *bool { return &v }
