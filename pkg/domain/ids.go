// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "repairradar/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a WorkOrderID where a TenantID is expected.
type (
	TenantID    uuid.UUID
	AssetID     uuid.UUID
	WorkOrderID uuid.UUID
	CallID      uuid.UUID
	PartID      uuid.UUID
	VendorID    uuid.UUID
	ScheduleID  uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseWorkOrderID(s string) (WorkOrderID, error) {
	id, err := parseUUID(s, "work order ID")
	return WorkOrderID(id), err
}

func ParseAssetID(s string) (AssetID, error) {
	id, err := parseUUID(s, "asset ID")
	return AssetID(id), err
}

func ParseCallID(s string) (CallID, error) {
	id, err := parseUUID(s, "call ID")
	return CallID(id), err
}

func ParsePartID(s string) (PartID, error) {
	id, err := parseUUID(s, "part ID")
	return PartID(id), err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	id, err := parseUUID(s, "schedule ID")
	return ScheduleID(id), err
}

// String methods - for logging and map keys.

func (id TenantID) String() string    { return uuid.UUID(id).String() }
func (id AssetID) String() string     { return uuid.UUID(id).String() }
func (id WorkOrderID) String() string { return uuid.UUID(id).String() }
func (id CallID) String() string      { return uuid.UUID(id).String() }
func (id PartID) String() string      { return uuid.UUID(id).String() }
func (id VendorID) String() string    { return uuid.UUID(id).String() }
func (id ScheduleID) String() string  { return uuid.UUID(id).String() }

// TenantID appears in serialized snapshots, so it round-trips as its
// canonical UUID string rather than a byte array.

func (id TenantID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *TenantID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = TenantID(u)
	return nil
}

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AssetID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id WorkOrderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CallID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PartID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id VendorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return id, nil
}
