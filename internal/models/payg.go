package models

import "time"

// Payg is the pay-as-you-go billing policy of a deployment. It shares the project id
// space but is created, updated and removed independently of the project.
//
// Threshold and Overflow carry no column default: an explicit 0 must survive inserts,
// so defaults come from projectconfig.HydratePayg only.
type Payg struct {
	ID         string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Price      string    `gorm:"not null;default:''" json:"price"`
	Expiration int       `gorm:"not null;default:0" json:"expiration"`
	Threshold  int       `gorm:"not null" json:"threshold"`
	Overflow   int       `gorm:"not null" json:"overflow"`
	Token      string    `gorm:"not null;default:''" json:"token"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Payg) TableName() string { return "paygs" }
