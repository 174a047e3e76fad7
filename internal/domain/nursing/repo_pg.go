package nursing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
)

// =========== NursingNote Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const noteCols = `n.id, n.patient_id, p.name, n.nurse_id, u.name, n.content, n.plain_text,
	n.category, n.is_important, n.ai_suggested, n.created_at, n.updated_at`

const noteFrom = ` FROM nursing_note n
	JOIN patient p ON p.id = n.patient_id
	JOIN app_user u ON u.id = n.nurse_id`

func scanNote(row pgx.Row) (*NursingNote, error) {
	var n NursingNote
	err := row.Scan(&n.ID, &n.PatientID, &n.PatientName, &n.NurseID, &n.NurseName, &n.Content, &n.PlainText,
		&n.Category, &n.IsImportant, &n.AISuggested, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func (r *noteRepoPG) Create(ctx context.Context, n *NursingNote) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nursing_note (id, patient_id, nurse_id, content, plain_text, category, is_important, ai_suggested)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		n.ID, n.PatientID, n.NurseID, n.Content, n.PlainText, n.Category, n.IsImportant, n.AISuggested).
		Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*NursingNote, error) {
	n, err := scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+noteFrom+` WHERE n.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("nursing note", id)
	}
	return n, err
}

func (r *noteRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*NursingNote, error) {
	n, err := scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+noteFrom+` WHERE n.id = $1 FOR UPDATE OF n`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("nursing note", id)
	}
	return n, err
}

func (r *noteRepoPG) Update(ctx context.Context, n *NursingNote) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE nursing_note SET content=$2, plain_text=$3, category=$4, is_important=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		n.ID, n.Content, n.PlainText, n.Category, n.IsImportant).Scan(&n.UpdatedAt)
}

func (r *noteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM nursing_note WHERE id = $1`, id)
	return err
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nursing_note WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+noteCols+noteFrom+`
		WHERE n.patient_id = $1 ORDER BY n.created_at DESC, n.id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectNotes(rows)
	return items, total, err
}

func (r *noteRepoPG) ListAllByPatient(ctx context.Context, patientID uuid.UUID) ([]*NursingNote, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+noteCols+noteFrom+`
		WHERE n.patient_id = $1 ORDER BY n.created_at DESC, n.id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return collectNotes(rows)
}

func collectNotes(rows pgx.Rows) ([]*NursingNote, error) {
	defer rows.Close()
	var items []*NursingNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// =========== VitalSign Repository ===========

type vitalRepoPG struct{ pool *pgxpool.Pool }

func NewVitalRepoPG(pool *pgxpool.Pool) VitalRepository {
	return &vitalRepoPG{pool: pool}
}

func (r *vitalRepoPG) ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*VitalSign, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, systolic_bp, diastolic_bp, heart_rate, respiratory_rate, body_temp, spo2, measured_at
		FROM vital_sign
		WHERE patient_id = $1 AND measured_at BETWEEN $2 AND $3
		ORDER BY measured_at DESC, id`, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	defer rows.Close()
	var items []*VitalSign
	for rows.Next() {
		var v VitalSign
		if err := rows.Scan(&v.ID, &v.PatientID, &v.SystolicBP, &v.DiastolicBP, &v.HeartRate,
			&v.RespiratoryRate, &v.BodyTemp, &v.SpO2, &v.MeasuredAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}

func (r *vitalRepoPG) Create(ctx context.Context, v *VitalSign) error {
	v.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vital_sign (id, patient_id, systolic_bp, diastolic_bp, heart_rate, respiratory_rate, body_temp, spo2, measured_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, v.PatientID, v.SystolicBP, v.DiastolicBP, v.HeartRate, v.RespiratoryRate, v.BodyTemp, v.SpO2, v.MeasuredAt)
	return err
}

// =========== Medication Repository ===========

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*Medication, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, drug_name, dose, route, administered_at
		FROM medication_administration
		WHERE patient_id = $1 AND administered_at BETWEEN $2 AND $3
		ORDER BY administered_at, id`, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PatientID, &m.DrugName, &m.Dose, &m.Route, &m.AdministeredAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medication_administration (id, patient_id, drug_name, dose, route, administered_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.PatientID, m.DrugName, m.Dose, m.Route, m.AdministeredAt)
	return err
}

// =========== IntakeOutput Repository ===========

type intakeOutputRepoPG struct{ pool *pgxpool.Pool }

func NewIntakeOutputRepoPG(pool *pgxpool.Pool) IntakeOutputRepository {
	return &intakeOutputRepoPG{pool: pool}
}

func (r *intakeOutputRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const ioCols = `io.id, io.patient_id, p.name, io.nurse_id, u.name, io.intake_oral, io.intake_iv, io.intake_total,
	io.output_urine, io.output_drain, io.output_total, io.recorded_at, io.created_at`

const ioFrom = ` FROM intake_output io
	JOIN patient p ON p.id = io.patient_id
	JOIN app_user u ON u.id = io.nurse_id`

func scanIO(row pgx.Row) (*IntakeOutputRecord, error) {
	var r IntakeOutputRecord
	err := row.Scan(&r.ID, &r.PatientID, &r.PatientName, &r.NurseID, &r.NurseName, &r.IntakeOral, &r.IntakeIV, &r.IntakeTotal,
		&r.OutputUrine, &r.OutputDrain, &r.OutputTotal, &r.RecordedAt, &r.CreatedAt)
	return &r, err
}

func (r *intakeOutputRepoPG) Create(ctx context.Context, rec *IntakeOutputRecord) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO intake_output (id, patient_id, nurse_id, intake_oral, intake_iv, intake_total,
			output_urine, output_drain, output_total, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		rec.ID, rec.PatientID, rec.NurseID, rec.IntakeOral, rec.IntakeIV, rec.IntakeTotal,
		rec.OutputUrine, rec.OutputDrain, rec.OutputTotal, rec.RecordedAt).Scan(&rec.CreatedAt)
}

func (r *intakeOutputRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*IntakeOutputRecord, error) {
	rec, err := scanIO(r.conn(ctx).QueryRow(ctx, `SELECT `+ioCols+ioFrom+` WHERE io.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("intake/output record", id)
	}
	return rec, err
}

func (r *intakeOutputRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*IntakeOutputRecord, error) {
	rec, err := scanIO(r.conn(ctx).QueryRow(ctx, `SELECT `+ioCols+ioFrom+` WHERE io.id = $1 FOR UPDATE OF io`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("intake/output record", id)
	}
	return rec, err
}

func (r *intakeOutputRepoPG) Update(ctx context.Context, rec *IntakeOutputRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_output SET intake_oral=$2, intake_iv=$3, intake_total=$4,
			output_urine=$5, output_drain=$6, output_total=$7, recorded_at=$8
		WHERE id = $1`,
		rec.ID, rec.IntakeOral, rec.IntakeIV, rec.IntakeTotal, rec.OutputUrine, rec.OutputDrain, rec.OutputTotal, rec.RecordedAt)
	return err
}

func (r *intakeOutputRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM intake_output WHERE id = $1`, id)
	return err
}

func (r *intakeOutputRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*IntakeOutputRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM intake_output WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ioCols+ioFrom+`
		WHERE io.patient_id = $1 ORDER BY io.recorded_at DESC, io.id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectIO(rows)
	return items, total, err
}

func (r *intakeOutputRepoPG) ListInRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*IntakeOutputRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ioCols+ioFrom+`
		WHERE io.patient_id = $1 AND io.recorded_at BETWEEN $2 AND $3
		ORDER BY io.recorded_at DESC, io.id`, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list intake/output: %w", err)
	}
	return collectIO(rows)
}

func collectIO(rows pgx.Rows) ([]*IntakeOutputRecord, error) {
	defer rows.Close()
	var items []*IntakeOutputRecord
	for rows.Next() {
		rec, err := scanIO(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// =========== TestResult Repository ===========

type testResultRepoPG struct{ pool *pgxpool.Pool }

func NewTestResultRepoPG(pool *pgxpool.Pool) TestResultRepository {
	return &testResultRepoPG{pool: pool}
}

func (r *testResultRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*TestResult, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, test_type, test_name, value, unit, result_date
		FROM test_result
		WHERE patient_id = $1
		ORDER BY result_date DESC, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()
	var items []*TestResult
	for rows.Next() {
		var t TestResult
		if err := rows.Scan(&t.ID, &t.PatientID, &t.TestType, &t.TestName, &t.Value, &t.Unit, &t.ResultDate); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *testResultRepoPG) Create(ctx context.Context, t *TestResult) error {
	t.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO test_result (id, patient_id, test_type, test_name, value, unit, result_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.PatientID, t.TestType, t.TestName, t.Value, t.Unit, t.ResultDate)
	return err
}
