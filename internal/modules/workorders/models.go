package workorders

import (
	"time"

	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// Status tracks a work order through its lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority orders work by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// WorkOrder is a scheduled or in-flight maintenance job for one tenant.
type WorkOrder struct {
	ID        id.WorkOrderID `json:"id"`
	TenantID  id.TenantID    `json:"tenant_id"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`
	Priority  Priority       `json:"priority"`
	AssetID   id.AssetID     `json:"asset_id,omitempty"`
	DueDate   *time.Time     `json:"due_date,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Overdue reports whether the work order is past due and still unfinished.
func (w *WorkOrder) Overdue(now time.Time) bool {
	return w.DueDate != nil && w.DueDate.Before(now) && w.Status != StatusCompleted
}

func validateTitle(title string) error {
	if title == "" {
		return dErrors.New(dErrors.CodeValidation, "work order title cannot be empty")
	}
	if len(title) > 256 {
		return dErrors.New(dErrors.CodeValidation, "work order title exceeds 256 characters")
	}
	return nil
}
