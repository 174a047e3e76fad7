package ward

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DepartmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type ShiftRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Shift, error)
	Create(ctx context.Context, s *Shift) error
}

type AssignmentRepository interface {
	// ListByNurseAndShift returns every assignment of the nurse to the shift,
	// across all dates, with Patient populated. Callers filter by date.
	ListByNurseAndShift(ctx context.Context, nurseID, shiftID uuid.UUID) ([]*Assignment, error)
	Create(ctx context.Context, a *Assignment) error
}
