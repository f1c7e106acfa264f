package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectInfo is descriptive metadata about a deployment.
type ProjectInfo struct {
	Name             string `json:"name"`
	Owner            string `json:"owner"`
	Image            string `json:"image,omitempty"`
	Description      string `json:"description,omitempty"`
	WebsiteURL       string `json:"websiteUrl,omitempty"`
	CodeURL          string `json:"codeUrl,omitempty"`
	Version          string `json:"version,omitempty"`
	CreatedTimestamp string `json:"createdTimestamp,omitempty"`
	UpdatedTimestamp string `json:"updatedTimestamp,omitempty"`
	Metadata         string `json:"metadata,omitempty"`
}

// ProjectManifest is the chain and runtime identity read from the deployment manifest.
type ProjectManifest struct {
	Kind          string   `json:"kind"`
	SpecVersion   string   `json:"specVersion"`
	Version       string   `json:"version"`
	Name          string   `json:"name"`
	ChainID       string   `json:"chainId"`
	GenesisHash   string   `json:"genesisHash"`
	RpcFamily     []string `json:"rpcFamily"`
	ClientName    string   `json:"clientName"`
	ClientVersion string   `json:"clientVersion"`
	NodeType      string   `json:"nodeType"`
}

// Clone returns a deep copy.
func (m *ProjectManifest) Clone() *ProjectManifest {
	if m == nil {
		return nil
	}
	out := *m
	out.RpcFamily = cloneStrings(m.RpcFamily)
	return &out
}

// ProjectBaseConfig holds the network settings an operator edits.
type ProjectBaseConfig struct {
	NetworkEndpoints          []string `json:"networkEndpoints"`
	NetworkDictionary         string   `json:"networkDictionary"`
	NodeVersion               string   `json:"nodeVersion"`
	QueryVersion              string   `json:"queryVersion"`
	UsePrimaryNetworkEndpoint *bool    `json:"usePrimaryNetworkEndpoint,omitempty"`
}

// Clone returns a deep copy.
func (c *ProjectBaseConfig) Clone() *ProjectBaseConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.NetworkEndpoints = cloneStrings(c.NetworkEndpoints)
	out.UsePrimaryNetworkEndpoint = cloneBool(c.UsePrimaryNetworkEndpoint)
	return &out
}

// ProjectAdvancedConfig holds resource and runtime settings. Timeout is in seconds,
// Cache and Memory in MB, CPU in cores.
type ProjectAdvancedConfig struct {
	PoiEnabled bool  `json:"poiEnabled"`
	PurgeDB    *bool `json:"purgeDB,omitempty"`
	Timeout    int   `json:"timeout" validate:"gte=0"`
	Worker     int   `json:"worker" validate:"gte=0"`
	BatchSize  int   `json:"batchSize" validate:"gte=0"`
	Cache      int   `json:"cache" validate:"gte=0"`
	CPU        int   `json:"cpu" validate:"gte=0"`
	Memory     int   `json:"memory" validate:"gte=0"`
}

// Clone returns a deep copy.
func (c *ProjectAdvancedConfig) Clone() *ProjectAdvancedConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.PurgeDB = cloneBool(c.PurgeDB)
	return &out
}

// Project is the configuration and runtime record of one deployment, keyed by deployment id.
//
// Nil layers, a nil ServiceEndpoints map and a nil ProjectConfig mean "unset"; they are
// filled by projectconfig.Hydrate before the first write.
type Project struct {
	ID               string                 `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Status           int                    `gorm:"not null;default:0;index" json:"status"`
	ChainType        string                 `gorm:"not null;default:''" json:"chainType"`
	ProjectType      ProjectType            `gorm:"type:varchar(32);not null;default:'';index" json:"projectType"`
	NodeEndpoint     string                 `gorm:"not null;default:''" json:"nodeEndpoint"`
	QueryEndpoint    string                 `gorm:"not null;default:''" json:"queryEndpoint"`
	ServiceEndpoints map[string]string      `gorm:"type:jsonb;serializer:json" json:"serviceEndpoints"`
	Details          *ProjectInfo           `gorm:"type:jsonb;serializer:json" json:"details"`
	Manifest         *ProjectManifest       `gorm:"type:jsonb;serializer:json" json:"manifest"`
	BaseConfig       *ProjectBaseConfig     `gorm:"type:jsonb;serializer:json" json:"baseConfig"`
	AdvancedConfig   *ProjectAdvancedConfig `gorm:"type:jsonb;serializer:json" json:"advancedConfig"`
	ProjectConfig    ProjectConfig          `gorm:"-" json:"projectConfig"`
	RawProjectConfig datatypes.JSON         `gorm:"column:project_config;type:jsonb" json:"-"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// BeforeSave encodes ProjectConfig into its column.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	raw, err := EncodeProjectConfig(p.ProjectConfig)
	if err != nil {
		return err
	}
	p.RawProjectConfig = datatypes.JSON(raw)
	return nil
}

// AfterFind decodes the project_config column into the variant selected by ProjectType.
func (p *Project) AfterFind(tx *gorm.DB) error {
	c, err := DecodeProjectConfig(p.ProjectType, p.RawProjectConfig)
	if err != nil {
		return err
	}
	p.ProjectConfig = c
	return nil
}

// Clone returns a deep copy.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	if p.ServiceEndpoints != nil {
		out.ServiceEndpoints = make(map[string]string, len(p.ServiceEndpoints))
		for k, v := range p.ServiceEndpoints {
			out.ServiceEndpoints[k] = v
		}
	}
	if p.Details != nil {
		d := *p.Details
		out.Details = &d
	}
	out.Manifest = p.Manifest.Clone()
	out.BaseConfig = p.BaseConfig.Clone()
	out.AdvancedConfig = p.AdvancedConfig.Clone()
	if p.ProjectConfig != nil {
		out.ProjectConfig = p.ProjectConfig.CloneConfig()
	}
	if p.RawProjectConfig != nil {
		out.RawProjectConfig = append(datatypes.JSON(nil), p.RawProjectConfig...)
	}
	return &out
}

// UnmarshalJSON decodes projectConfig according to projectType.
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		ProjectConfig json.RawMessage `json:"projectConfig"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c, err := DecodeProjectConfig(p.ProjectType, aux.ProjectConfig)
	if err != nil {
		return err
	}
	p.ProjectConfig = c
	return nil
}
