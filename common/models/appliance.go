package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplianceTemplate is a catalog entry describing how to provision one kind
// of virtual network appliance. It is an independent entity: deleting it does
// not cascade to instances provisioned from it.
type ApplianceTemplate struct {
	ID               uuid.UUID `json:"id"`
	TenantID         string    `json:"tenant_id"`
	Category         string    `json:"category"`
	Vendor           string    `json:"vendor"`
	ImageRef         string    `json:"image_ref"`
	Flavor           string    `json:"flavor"`
	SecurityGroupRef string    `json:"security_group_ref"`
	LoadShare        int       `json:"load_share"`
	ConfigHandle     string    `json:"config_handle"`
	CreatedAt        time.Time `json:"created_at"`
}

// Attributes returns the template fields a selection rule can reference
func (t *ApplianceTemplate) Attributes() map[string]any {
	return map[string]any{
		"id":         t.ID.String(),
		"category":   t.Category,
		"vendor":     t.Vendor,
		"flavor":     t.Flavor,
		"load_share": t.LoadShare,
	}
}
