package nursing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, n *NursingNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*NursingNote, error)
	// LockByID reads the note with a row lock. Call it inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*NursingNote, error)
	Update(ctx context.Context, n *NursingNote) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error)
	// ListAllByPatient returns every note for the patient, newest first.
	ListAllByPatient(ctx context.Context, patientID uuid.UUID) ([]*NursingNote, error)
}

type VitalRepository interface {
	// ListInRange returns readings with start <= measured_at <= end, newest first.
	ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*VitalSign, error)
	Create(ctx context.Context, v *VitalSign) error
}

type MedicationRepository interface {
	// ListInRange returns administrations with start <= administered_at <= end, oldest first.
	ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*Medication, error)
	Create(ctx context.Context, m *Medication) error
}

type IntakeOutputRepository interface {
	Create(ctx context.Context, r *IntakeOutputRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*IntakeOutputRecord, error)
	LockByID(ctx context.Context, id uuid.UUID) (*IntakeOutputRecord, error)
	Update(ctx context.Context, r *IntakeOutputRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*IntakeOutputRecord, int, error)
	// ListInRange returns records with start <= recorded_at <= end, newest first.
	ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*IntakeOutputRecord, error)
}

type TestResultRepository interface {
	// ListByPatient returns every result for the patient, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*TestResult, error)
	Create(ctx context.Context, t *TestResult) error
}
