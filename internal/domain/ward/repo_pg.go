package ward

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

func notFound(err error, entity string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// =========== Department Repository ===========

type departmentRepoPG struct{ pool *pgxpool.Pool }

func NewDepartmentRepoPG(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	var d Department
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, created_at FROM department WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err, "department", id)
	}
	return &d, nil
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, email, role, department_id FROM app_user WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.DepartmentID)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `p.id, p.name, p.chart_number, p.age, p.gender, p.department_id, d.name`

func scanPatient(row pgx.Row, p *Patient) error {
	return row.Scan(&p.ID, &p.Name, &p.ChartNumber, &p.Age, &p.Gender, &p.DepartmentID, &p.DepartmentName)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+patientCols+`
		FROM patient p JOIN department d ON d.id = p.department_id
		WHERE p.id = $1`, id), &p)
	if err != nil {
		return nil, notFound(err, "patient", id)
	}
	return &p, nil
}

// =========== Shift Repository ===========

type shiftRepoPG struct{ pool *pgxpool.Pool }

func NewShiftRepoPG(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepoPG{pool: pool}
}

// Times of day travel as seconds since midnight.
const shiftCols = `id, shift_date, shift_type,
	EXTRACT(EPOCH FROM start_time)::int, EXTRACT(EPOCH FROM end_time)::int`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	var start, end int
	if err := row.Scan(&s.ID, &s.ShiftDate, &s.Type, &start, &end); err != nil {
		return nil, err
	}
	s.StartTime, s.EndTime = TimeOfDay(start), TimeOfDay(end)
	return &s, nil
}

func (r *shiftRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	s, err := scanShift(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+shiftCols+` FROM shift WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "shift", id)
	}
	return s, nil
}

func (r *shiftRepoPG) ListByDate(ctx context.Context, date time.Time) ([]*Shift, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+shiftCols+` FROM shift WHERE shift_date = $1::date ORDER BY start_time`,
		date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()
	var items []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *shiftRepoPG) Create(ctx context.Context, s *Shift) error {
	s.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO shift (id, shift_date, shift_type, start_time, end_time)
		VALUES ($1, $2::date, $3, $4::time, $5::time)`,
		s.ID, s.ShiftDate.Format(time.DateOnly), s.Type, s.StartTime.String(), s.EndTime.String())
	return err
}

// =========== Assignment Repository ===========

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) ListByNurseAndShift(ctx context.Context, nurseID, shiftID uuid.UUID) ([]*Assignment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT a.id, a.nurse_id, a.patient_id, a.shift_id, a.assigned_date, `+patientCols+`
		FROM assignment a
		JOIN patient p ON p.id = a.patient_id
		JOIN department d ON d.id = p.department_id
		WHERE a.nurse_id = $1 AND a.shift_id = $2
		ORDER BY a.assigned_date, a.created_at, a.id`, nurseID, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		var a Assignment
		p := &a.Patient
		if err := rows.Scan(&a.ID, &a.NurseID, &a.PatientID, &a.ShiftID, &a.AssignedDate,
			&p.ID, &p.Name, &p.ChartNumber, &p.Age, &p.Gender, &p.DepartmentID, &p.DepartmentName); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	a.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO assignment (id, nurse_id, patient_id, shift_id, assigned_date)
		VALUES ($1, $2, $3, $4, $5::date)`,
		a.ID, a.NurseID, a.PatientID, a.ShiftID, a.AssignedDate.Format(time.DateOnly))
	return err
}
