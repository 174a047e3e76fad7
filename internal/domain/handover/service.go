package handover

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/genai"
)

const (
	maxSummaryLength = 20000
	maxNotesLength   = 5000
)

// Directory resolves the ward entities a handover refers to.
type Directory struct {
	Shifts      ward.ShiftRepository
	Assignments ward.AssignmentRepository
	Departments ward.DepartmentRepository
	Users       ward.UserRepository
}

type Service struct {
	dir       Directory
	collector *Collector
	gateway   genai.Summarizer
	repo      Repository
	tx        db.TxRunner
	loc       *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(
	dir Directory,
	collector *Collector,
	gateway genai.Summarizer,
	repo Repository,
	tx db.TxRunner,
	loc *time.Location,
	logger zerolog.Logger,
) *Service {
	return &Service{
		dir:       dir,
		collector: collector,
		gateway:   gateway,
		repo:      repo,
		tx:        tx,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// GenerateSummary builds the handover prompt for the nurse's patients on
// the shift today and sends it to the text generation service. With no
// patients assigned it returns NoPatientsMessage without calling out.
func (s *Service) GenerateSummary(ctx context.Context, nurseID, shiftID uuid.UUID) (string, error) {
	prompt, ok, err := s.PreparePrompt(ctx, nurseID, shiftID)
	if err != nil {
		return "", err
	}
	if !ok {
		return NoPatientsMessage, nil
	}

	summary, err := s.gateway.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Str("nurse_id", nurseID.String()).
		Str("shift_id", shiftID.String()).
		Int("summary_len", len(summary)).
		Msg("handover summary generated")
	return summary, nil
}

// PreparePrompt returns the rendered prompt and true, or false when the nurse
// has no patients on the shift today.
func (s *Service) PreparePrompt(ctx context.Context, nurseID, shiftID uuid.UUID) (string, bool, error) {
	shift, err := s.dir.Shifts.GetByID(ctx, shiftID)
	if err != nil {
		return "", false, err
	}

	now := s.now().In(s.loc)
	patients, err := s.assignedToday(ctx, nurseID, shiftID, now)
	if err != nil {
		return "", false, err
	}
	log := s.logger.With().Str("nurse_id", nurseID.String()).Str("shift_id", shiftID.String()).Logger()
	if len(patients) == 0 {
		log.Warn().Str("date", now.Format(time.DateOnly)).Msg("no patients assigned to shift today")
		return "", false, nil
	}

	window := ward.ResolveWindow(shift, now, s.loc)
	bundles, err := s.collector.Collect(ctx, patients, window, now)
	if err != nil {
		return "", false, err
	}
	SortByImportance(bundles)

	prompt := BuildPrompt(patients[0].DepartmentName, shift.Type, bundles, s.loc)
	log.Info().
		Int("patient_count", len(patients)).
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Int("prompt_len", len(prompt)).
		Msg("handover prompt built")
	return prompt, true, nil
}

// assignedToday returns the distinct patients assigned today, in assignment order.
func (s *Service) assignedToday(ctx context.Context, nurseID, shiftID uuid.UUID, now time.Time) ([]ward.Patient, error) {
	assignments, err := s.dir.Assignments.ListByNurseAndShift(ctx, nurseID, shiftID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var patients []ward.Patient
	for _, a := range assignments {
		if !ward.SameDate(a.AssignedDate, now) || seen[a.PatientID] {
			continue
		}
		seen[a.PatientID] = true
		patients = append(patients, a.Patient)
	}
	return patients, nil
}

type CreateInput struct {
	DepartmentID    uuid.UUID `json:"departmentId"`
	FromShiftID     uuid.UUID `json:"fromShiftId"`
	ToShiftID       uuid.UUID `json:"toShiftId"`
	AISummary       string    `json:"aiSummary"`
	AdditionalNotes *string   `json:"additionalNotes"`
}

func (in *CreateInput) validate() error {
	switch {
	case in.DepartmentID == uuid.Nil:
		return apperr.Validation("departmentId", "부서 ID는 필수입니다")
	case in.FromShiftID == uuid.Nil:
		return apperr.Validation("fromShiftId", "인계 근무조 ID는 필수입니다")
	case in.ToShiftID == uuid.Nil:
		return apperr.Validation("toShiftId", "인수 근무조 ID는 필수입니다")
	case strings.TrimSpace(in.AISummary) == "":
		return apperr.Validation("aiSummary", "인수인계 내용은 필수입니다")
	case utf8.RuneCountInString(in.AISummary) > maxSummaryLength:
		return apperr.Validation("aiSummary", "인수인계 내용은 20000자 이하여야 합니다")
	case in.AdditionalNotes != nil && utf8.RuneCountInString(*in.AdditionalNotes) > maxNotesLength:
		return apperr.Validation("additionalNotes", "추가 메모는 5000자 이하여야 합니다")
	}
	return nil
}

// Create stores a handover dated today in the hospital's zone.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in CreateInput) (*Handover, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.AdditionalNotes != nil && strings.TrimSpace(*in.AdditionalNotes) == "" {
		in.AdditionalNotes = nil
	}

	var created *Handover
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		dept, err := s.dir.Departments.GetByID(ctx, in.DepartmentID)
		if err != nil {
			return err
		}
		from, err := s.dir.Shifts.GetByID(ctx, in.FromShiftID)
		if err != nil {
			return err
		}
		to, err := s.dir.Shifts.GetByID(ctx, in.ToShiftID)
		if err != nil {
			return err
		}
		author, err := s.dir.Users.GetByID(ctx, authorID)
		if err != nil {
			return err
		}

		h := &Handover{
			DepartmentID:    dept.ID,
			DepartmentName:  dept.Name,
			FromShiftID:     from.ID,
			FromShiftType:   from.Type,
			ToShiftID:       to.ID,
			ToShiftType:     to.Type,
			HandoverDate:    s.now().In(s.loc),
			AISummary:       in.AISummary,
			AdditionalNotes: in.AdditionalNotes,
			CreatedByID:     author.ID,
			CreatedByName:   author.Name,
		}
		if err := s.repo.Create(ctx, h); err != nil {
			return err
		}
		created = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("handover_id", created.ID.String()).
		Str("department_id", created.DepartmentID.String()).
		Str("author_id", authorID.String()).
		Msg("handover saved")
	return created, nil
}

func (s *Service) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Handover, error) {
	if _, err := s.dir.Departments.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.repo.ListByDepartment(ctx, departmentID)
}

// Delete removes a handover. Only its author may delete it.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if h.CreatedByID != userID {
			return apperr.Forbidden("본인이 작성한 인수인계만 삭제할 수 있습니다")
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("handover_id", id.String()).Str("user_id", userID.String()).Msg("handover deleted")
	return nil
}
