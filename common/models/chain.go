package models

import (
	"time"

	"github.com/google/uuid"
)

// Chain is an ordered composition of appliance steps that traffic traverses.
// Deletion is rejected while any ChainStep references it.
type Chain struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	AutoBoot  bool      `json:"auto_boot"`
	CreatedAt time.Time `json:"created_at"`
}
