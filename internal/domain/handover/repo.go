package handover

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, h *Handover) error
	GetByID(ctx context.Context, id uuid.UUID) (*Handover, error)
	// LockByID reads the handover with a row lock. Call it inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Handover, error)
	// ListByDepartment returns the department's handovers, newest handover
	// date first, fully resolved.
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Handover, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
