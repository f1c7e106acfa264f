package projectconfig

import (
	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

// PaygInput is a PAYG policy as supplied by a caller. Nil fields are unset.
type PaygInput struct {
	ID         string
	Price      *string
	Expiration *int
	Threshold  *int
	Overflow   *int
	Token      *string
}

// DefaultPayg returns the default policy for id.
func DefaultPayg(id string) *models.Payg {
	return &models.Payg{
		ID:         id,
		Price:      DefaultPaygPrice,
		Expiration: DefaultPaygExpiration,
		Threshold:  DefaultPaygThreshold,
		Overflow:   DefaultPaygOverflow,
		Token:      DefaultPaygToken,
	}
}

// HydratePayg builds a full policy from in, defaulting every unset field.
// The id is required.
func HydratePayg(in PaygInput) (*models.Payg, error) {
	if in.ID == "" {
		return nil, appErr.New(appErr.CodeInvalid, "payg id is required")
	}
	p := DefaultPayg(in.ID)
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Expiration != nil {
		p.Expiration = *in.Expiration
	}
	if in.Threshold != nil {
		p.Threshold = *in.Threshold
	}
	if in.Overflow != nil {
		p.Overflow = *in.Overflow
	}
	if in.Token != nil {
		p.Token = *in.Token
	}
	return p, nil
}
