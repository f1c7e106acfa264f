package types

import (
	"encoding/json"

	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
)

// ProjectCreateRequest is the body of POST /projects. projectConfig is kept raw
// until the type is known.
type ProjectCreateRequest struct {
	ID               string                        `json:"id" validate:"required,max=128"`
	ProjectType      models.ProjectType            `json:"projectType"`
	Status           int                           `json:"status" validate:"gte=0"`
	ChainType        string                        `json:"chainType"`
	NodeEndpoint     string                        `json:"nodeEndpoint"`
	QueryEndpoint    string                        `json:"queryEndpoint"`
	ServiceEndpoints map[string]string             `json:"serviceEndpoints"`
	Details          *models.ProjectInfo           `json:"details"`
	Manifest         *models.ProjectManifest       `json:"manifest"`
	BaseConfig       *models.ProjectBaseConfig     `json:"baseConfig"`
	AdvancedConfig   *models.ProjectAdvancedConfig `json:"advancedConfig"`
	ProjectConfig    json.RawMessage               `json:"projectConfig"`
}

// ToProject decodes the request into an unhydrated record.
func (r *ProjectCreateRequest) ToProject() (*models.Project, error) {
	cfg, err := models.DecodeProjectConfig(r.ProjectType, r.ProjectConfig)
	if err != nil {
		return nil, err
	}
	return &models.Project{
		ID:               r.ID,
		Status:           r.Status,
		ChainType:        r.ChainType,
		NodeEndpoint:     r.NodeEndpoint,
		QueryEndpoint:    r.QueryEndpoint,
		ProjectType:      r.ProjectType,
		ServiceEndpoints: r.ServiceEndpoints,
		Details:          r.Details,
		Manifest:         r.Manifest,
		BaseConfig:       r.BaseConfig,
		AdvancedConfig:   r.AdvancedConfig,
		ProjectConfig:    cfg,
	}, nil
}

type StatusUpdateRequest struct {
	Status *int `json:"status" validate:"required,gte=0"`
}

type ConfigUpdateRequest struct {
	BaseConfig     *models.ProjectBaseConfig     `json:"baseConfig"`
	AdvancedConfig *models.ProjectAdvancedConfig `json:"advancedConfig"`
}

// PaygUpdateRequest replaces a PAYG policy. Absent fields take their defaults.
type PaygUpdateRequest struct {
	Price      *string `json:"price"`
	Expiration *int    `json:"expiration" validate:"omitempty,gte=0"`
	Threshold  *int    `json:"threshold" validate:"omitempty,gte=0"`
	Overflow   *int    `json:"overflow" validate:"omitempty,gte=0"`
	Token      *string `json:"token"`
}

func (r *PaygUpdateRequest) ToInput(id string) projectconfig.PaygInput {
	return projectconfig.PaygInput{
		ID:         id,
		Price:      r.Price,
		Expiration: r.Expiration,
		Threshold:  r.Threshold,
		Overflow:   r.Overflow,
		Token:      r.Token,
	}
}
