package handover

import (
	"time"

	"github.com/google/uuid"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
)

// Handover is a stored shift handover. Every referenced entity is resolved
// by the repository; none of the name fields is ever left empty.
type Handover struct {
	ID              uuid.UUID      `json:"handoverId"`
	DepartmentID    uuid.UUID      `json:"departmentId"`
	DepartmentName  string         `json:"departmentName"`
	FromShiftID     uuid.UUID      `json:"fromShiftId"`
	FromShiftType   ward.ShiftType `json:"fromShiftType"`
	ToShiftID       uuid.UUID      `json:"toShiftId"`
	ToShiftType     ward.ShiftType `json:"toShiftType"`
	HandoverDate    time.Time      `json:"-"`
	AISummary       string         `json:"aiSummary"`
	AdditionalNotes *string        `json:"additionalNotes"`
	CreatedByID     uuid.UUID      `json:"createdById"`
	CreatedByName   string         `json:"createdByName"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// PatientBundle is everything recorded for one patient inside a shift
// window. It lives only for the duration of one summary request.
type PatientBundle struct {
	Patient       ward.Patient
	Notes         []*nursing.NursingNote
	Vitals        []*nursing.VitalSign
	Medications   []*nursing.Medication
	IntakeOutputs []*nursing.IntakeOutputRecord
	TestResults   []*nursing.TestResult
	Important     bool
}

func (b *PatientBundle) HasData() bool {
	return len(b.Notes) > 0 || len(b.Vitals) > 0 || len(b.Medications) > 0 ||
		len(b.IntakeOutputs) > 0 || len(b.TestResults) > 0
}
