package models

import (
	"strings"
	"time"

	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// Status reflects a tenant's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tenant is one organization. All dashboard data and module activation are
// partitioned by its ID.
type Tenant struct {
	ID        id.TenantID `json:"id"`
	Name      string      `json:"name"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

const maxNameLength = 128

// NewTenant validates and constructs an active tenant.
func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name is required")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name too long")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *Tenant) IsActive() bool { return t.Status == StatusActive }

// ModuleConfig records which modules a tenant has switched on. Keys unknown
// to the registry are kept as-is: a config may reference modules not yet
// deployed and must degrade gracefully at activation time, not here.
type ModuleConfig struct {
	TenantID  id.TenantID
	Modules   map[string]bool
	UpdatedAt time.Time
}

// Enabled reports whether a module key is switched on. A nil config or nil
// modules map reads as nothing enabled.
func (c *ModuleConfig) Enabled(key string) bool {
	if c == nil || c.Modules == nil {
		return false
	}
	return c.Modules[key]
}

// Clone returns an independent copy so stored configs cannot be mutated
// through a read.
func (c *ModuleConfig) Clone() *ModuleConfig {
	if c == nil {
		return nil
	}
	out := &ModuleConfig{TenantID: c.TenantID, UpdatedAt: c.UpdatedAt}
	if c.Modules != nil {
		out.Modules = make(map[string]bool, len(c.Modules))
		for k, v := range c.Modules {
			out.Modules[k] = v
		}
	}
	return out
}
