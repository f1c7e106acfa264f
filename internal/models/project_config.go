package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfigKind identifies the shape of a ProjectConfig.
type ConfigKind int

const (
	ConfigKindOpaque ConfigKind = iota
	ConfigKindSubquery
	ConfigKindRpc
)

func (k ConfigKind) String() string {
	switch k {
	case ConfigKindSubquery:
		return "subquery"
	case ConfigKindRpc:
		return "rpc"
	default:
		return "opaque"
	}
}

// ConfigKindFor returns the projectConfig shape a project type must carry.
// The empty type is treated as unconstrained.
func ConfigKindFor(t ProjectType) (ConfigKind, error) {
	switch t {
	case ProjectTypeSubquery:
		return ConfigKindSubquery, nil
	case ProjectTypeChainRpc:
		return ConfigKindRpc, nil
	case ProjectTypeDictionary, ProjectTypeSubgraph, ProjectTypeOther, "":
		return ConfigKindOpaque, nil
	default:
		return ConfigKindOpaque, &InvalidProjectTypeError{Type: t}
	}
}

// ProjectConfig is the runtime configuration handed to the process serving a project.
// It is implemented only by *SubqueryConfig, *RpcConfig and OpaqueConfig.
type ProjectConfig interface {
	Kind() ConfigKind
	CloneConfig() ProjectConfig
	isProjectConfig()
}

// SubqueryConfig is the merged base + advanced configuration consumed by a subquery indexer.
type SubqueryConfig struct {
	NetworkEndpoints          []string `json:"networkEndpoints"`
	NetworkDictionary         string   `json:"networkDictionary"`
	NodeVersion               string   `json:"nodeVersion"`
	QueryVersion              string   `json:"queryVersion"`
	UsePrimaryNetworkEndpoint *bool    `json:"usePrimaryNetworkEndpoint,omitempty"`

	PoiEnabled bool  `json:"poiEnabled"`
	PurgeDB    *bool `json:"purgeDB,omitempty"`
	Timeout    int   `json:"timeout"`
	Worker     int   `json:"worker"`
	BatchSize  int   `json:"batchSize"`
	Cache      int   `json:"cache"`
	CPU        int   `json:"cpu"`
	Memory     int   `json:"memory"`
}

func (*SubqueryConfig) Kind() ConfigKind { return ConfigKindSubquery }
func (*SubqueryConfig) isProjectConfig() {}

func (c *SubqueryConfig) CloneConfig() ProjectConfig { return c.Clone() }

// Clone returns a deep copy.
func (c *SubqueryConfig) Clone() *SubqueryConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.NetworkEndpoints = cloneStrings(c.NetworkEndpoints)
	out.UsePrimaryNetworkEndpoint = cloneBool(c.UsePrimaryNetworkEndpoint)
	out.PurgeDB = cloneBool(c.PurgeDB)
	return &out
}

// Base returns the base layer view of the merged config.
func (c *SubqueryConfig) Base() *ProjectBaseConfig {
	return &ProjectBaseConfig{
		NetworkEndpoints:          cloneStrings(c.NetworkEndpoints),
		NetworkDictionary:         c.NetworkDictionary,
		NodeVersion:               c.NodeVersion,
		QueryVersion:              c.QueryVersion,
		UsePrimaryNetworkEndpoint: cloneBool(c.UsePrimaryNetworkEndpoint),
	}
}

// Advanced returns the advanced layer view of the merged config.
func (c *SubqueryConfig) Advanced() *ProjectAdvancedConfig {
	return &ProjectAdvancedConfig{
		PoiEnabled: c.PoiEnabled,
		PurgeDB:    cloneBool(c.PurgeDB),
		Timeout:    c.Timeout,
		Worker:     c.Worker,
		BatchSize:  c.BatchSize,
		Cache:      c.Cache,
		CPU:        c.CPU,
		Memory:     c.Memory,
	}
}

// RpcConfig is the configuration of a chain RPC project.
type RpcConfig struct {
	RpcFamily []string `json:"rpcFamily"`
}

func (*RpcConfig) Kind() ConfigKind { return ConfigKindRpc }
func (*RpcConfig) isProjectConfig() {}

func (c *RpcConfig) CloneConfig() ProjectConfig { return c.Clone() }

// Clone returns a deep copy.
func (c *RpcConfig) Clone() *RpcConfig {
	if c == nil {
		return nil
	}
	return &RpcConfig{RpcFamily: cloneStrings(c.RpcFamily)}
}

// OpaqueConfig carries configuration for project types this service does not interpret.
type OpaqueConfig map[string]any

func (OpaqueConfig) Kind() ConfigKind { return ConfigKindOpaque }
func (OpaqueConfig) isProjectConfig() {}

func (c OpaqueConfig) CloneConfig() ProjectConfig { return c.Clone() }

// Clone returns a deep copy. A nil map clones to nil.
func (c OpaqueConfig) Clone() OpaqueConfig {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

// EncodeProjectConfig serializes a config into the stored JSON document.
// A nil config encodes as an empty object.
func EncodeProjectConfig(c ProjectConfig) ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	if o, ok := c.(OpaqueConfig); ok && o == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode project config: %w", err)
	}
	return b, nil
}

// DecodeProjectConfig parses a stored JSON document into the variant selected by t.
// Empty input and JSON null decode to a nil config. A document carrying fields that do
// not belong to the variant is rejected with an InvalidProjectTypeError.
func DecodeProjectConfig(t ProjectType, raw []byte) (ProjectConfig, error) {
	kind, err := ConfigKindFor(t)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch kind {
	case ConfigKindSubquery:
		var c SubqueryConfig
		if err := decodeStrict(t, kind, trimmed, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case ConfigKindRpc:
		var c RpcConfig
		if err := decodeStrict(t, kind, trimmed, &c); err != nil {
			return nil, err
		}
		return &c, nil
	default:
		c := OpaqueConfig{}
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, fmt.Errorf("decode opaque config: %w", err)
		}
		return c, nil
	}
}

func decodeStrict(t ProjectType, kind ConfigKind, raw []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		// encoding/json has no typed error for unknown fields.
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			return &InvalidProjectTypeError{
				Type:   t,
				Reason: fmt.Sprintf("projectConfig is not a %s config: %s", kind, strings.TrimPrefix(err.Error(), "json: ")),
			}
		}
		return fmt.Errorf("decode %s config: %w", kind, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s config: trailing data after object", kind)
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
