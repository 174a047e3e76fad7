package nursing

import (
	"time"

	"github.com/google/uuid"
)

type NoteCategory string

const (
	CategoryObservation NoteCategory = "OBSERVATION"
	CategoryTreatment   NoteCategory = "TREATMENT"
	CategoryMedication  NoteCategory = "MEDICATION"
	CategoryEducation   NoteCategory = "EDUCATION"
	CategoryOther       NoteCategory = "OTHER"
)

func (c NoteCategory) Valid() bool {
	switch c {
	case CategoryObservation, CategoryTreatment, CategoryMedication, CategoryEducation, CategoryOther:
		return true
	}
	return false
}

// NursingNote maps to the nursing_note table. Content is the rich-text body;
// PlainText is the tag-free rendering used in handover prompts.
type NursingNote struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	PatientID   uuid.UUID    `db:"patient_id" json:"patientId"`
	PatientName string       `db:"-" json:"patientName"`
	NurseID     uuid.UUID    `db:"nurse_id" json:"nurseId"`
	NurseName   string       `db:"-" json:"nurseName"`
	Content     string       `db:"content" json:"content"`
	PlainText   string       `db:"plain_text" json:"plainText"`
	Category    NoteCategory `db:"category" json:"category"`
	IsImportant bool         `db:"is_important" json:"isImportant"`
	AISuggested bool         `db:"ai_suggested" json:"aiSuggested"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

// VitalSign maps to the vital_sign table. Any measurement may be absent.
type VitalSign struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patientId"`
	SystolicBP      *int      `db:"systolic_bp" json:"systolicBp,omitempty"`
	DiastolicBP     *int      `db:"diastolic_bp" json:"diastolicBp,omitempty"`
	HeartRate       *int      `db:"heart_rate" json:"heartRate,omitempty"`
	RespiratoryRate *int      `db:"respiratory_rate" json:"respiratoryRate,omitempty"`
	BodyTemp        *float64  `db:"body_temp" json:"bodyTemp,omitempty"`
	SpO2            *int      `db:"spo2" json:"spo2,omitempty"`
	MeasuredAt      time.Time `db:"measured_at" json:"measuredAt"`
}

// Medication maps to the medication_administration table.
type Medication struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patientId"`
	DrugName       string    `db:"drug_name" json:"drugName"`
	Dose           string    `db:"dose" json:"dose"`
	Route          string    `db:"route" json:"route"`
	AdministeredAt time.Time `db:"administered_at" json:"administeredAt"`
}

// IntakeOutputRecord maps to the intake_output table. Volumes are in mL.
type IntakeOutputRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patientId"`
	PatientName string    `db:"-" json:"patientName"`
	NurseID     uuid.UUID `db:"nurse_id" json:"nurseId"`
	NurseName   string    `db:"-" json:"nurseName"`
	IntakeOral  int       `db:"intake_oral" json:"intakeOral"`
	IntakeIV    int       `db:"intake_iv" json:"intakeIv"`
	IntakeTotal int       `db:"intake_total" json:"intakeTotal"`
	OutputUrine int       `db:"output_urine" json:"outputUrine"`
	OutputDrain int       `db:"output_drain" json:"outputDrain"`
	OutputTotal int       `db:"output_total" json:"outputTotal"`
	RecordedAt  time.Time `db:"recorded_at" json:"recordedAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ComputeTotals derives the intake and output totals from their components.
func (r *IntakeOutputRecord) ComputeTotals() {
	r.IntakeTotal = r.IntakeOral + r.IntakeIV
	r.OutputTotal = r.OutputUrine + r.OutputDrain
}

// TestResult maps to the test_result table. Results are reported once per day.
type TestResult struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patientId"`
	TestType   string    `db:"test_type" json:"testType"`
	TestName   string    `db:"test_name" json:"testName"`
	Value      string    `db:"value" json:"value"`
	Unit       string    `db:"unit" json:"unit"`
	ResultDate time.Time `db:"result_date" json:"resultDate"`
}
