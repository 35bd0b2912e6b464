package models

import (
	"astraion/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID          uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
	PassportID  string     `json:"passport_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`

	Phones []Phone `json:"phones,omitempty"`

	types.Timestamps
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Phone struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_client_e164" json:"client_id"`
	E164      string    `gorm:"uniqueIndex:idx_client_e164;index" json:"e164"`
	Label     string    `json:"label,omitempty"`
	IsPrimary bool      `json:"is_primary"`
}

func (p *Phone) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ActivityEvent is an append-only audit record of notable domain
// changes, queryable per client.
type ActivityEvent struct {
	ID        uuid.UUID   `gorm:"type:uuid;primarykey" json:"id"`
	EventType string      `json:"event_type"`
	ClientID  *uuid.UUID  `gorm:"type:uuid" json:"client_id,omitempty"`
	Data      types.JSONB `json:"data,omitempty"`
	CreatedAt time.Time   `gorm:"autoCreateTime:nano" json:"created_at"`
}

func (a *ActivityEvent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
