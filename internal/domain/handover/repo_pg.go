package handover

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const handoverSelect = `
	SELECT h.id, h.department_id, d.name, h.from_shift_id, fs.shift_type, h.to_shift_id, ts.shift_type,
		h.handover_date, h.ai_summary, h.additional_notes, h.created_by, u.name, h.created_at
	FROM handover h
	JOIN department d ON d.id = h.department_id
	JOIN shift fs ON fs.id = h.from_shift_id
	JOIN shift ts ON ts.id = h.to_shift_id
	JOIN app_user u ON u.id = h.created_by`

func scanHandover(row pgx.Row) (*Handover, error) {
	var h Handover
	err := row.Scan(&h.ID, &h.DepartmentID, &h.DepartmentName, &h.FromShiftID, &h.FromShiftType,
		&h.ToShiftID, &h.ToShiftType, &h.HandoverDate, &h.AISummary, &h.AdditionalNotes,
		&h.CreatedByID, &h.CreatedByName, &h.CreatedAt)
	return &h, err
}

func (r *repoPG) Create(ctx context.Context, h *Handover) error {
	h.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO handover (id, department_id, from_shift_id, to_shift_id, handover_date, ai_summary, additional_notes, created_by)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)
		RETURNING created_at`,
		h.ID, h.DepartmentID, h.FromShiftID, h.ToShiftID, h.HandoverDate.Format(time.DateOnly),
		h.AISummary, h.AdditionalNotes, h.CreatedByID).Scan(&h.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Handover, error) {
	h, err := scanHandover(r.conn(ctx).QueryRow(ctx, handoverSelect+` WHERE h.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("handover", id)
	}
	return h, err
}

func (r *repoPG) LockByID(ctx context.Context, id uuid.UUID) (*Handover, error) {
	h, err := scanHandover(r.conn(ctx).QueryRow(ctx, handoverSelect+` WHERE h.id = $1 FOR UPDATE OF h`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("handover", id)
	}
	return h, err
}

func (r *repoPG) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Handover, error) {
	rows, err := r.conn(ctx).Query(ctx, handoverSelect+`
		WHERE h.department_id = $1
		ORDER BY h.handover_date DESC, h.created_at DESC, h.id`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list handovers: %w", err)
	}
	defer rows.Close()
	var items []*Handover
	for rows.Next() {
		h, err := scanHandover(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM handover WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("handover", id)
	}
	return nil
}
