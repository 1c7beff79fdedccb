package assets

import (
	"time"

	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// Status describes an asset's operational state.
type Status string

const (
	StatusOperational Status = "operational"
	StatusDown        Status = "down"
	StatusMaintenance Status = "maintenance"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOperational, StatusDown, StatusMaintenance:
		return true
	}
	return false
}

// Asset is a piece of tracked equipment belonging to one tenant.
type Asset struct {
	ID        id.AssetID  `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	Status    Status      `json:"status"`
	Location  string      `json:"location,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "asset name cannot be empty")
	}
	if len(name) > 256 {
		return dErrors.New(dErrors.CodeValidation, "asset name exceeds 256 characters")
	}
	return nil
}
