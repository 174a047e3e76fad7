package nursing

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
)

const (
	maxNoteLength = 10000
	maxVolumeML   = 5000
)

type Service struct {
	notes    NoteRepository
	io       IntakeOutputRepository
	patients ward.PatientRepository
	tx       db.TxRunner
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(
	notes NoteRepository,
	io IntakeOutputRepository,
	patients ward.PatientRepository,
	tx db.TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		notes:    notes,
		io:       io,
		patients: patients,
		tx:       tx,
		now:      time.Now,
		logger:   logger,
	}
}

// -- Nursing Notes --

type NoteInput struct {
	PatientID   uuid.UUID    `json:"patientId"`
	Content     string       `json:"content"`
	PlainText   string       `json:"plainText"`
	Category    NoteCategory `json:"category"`
	IsImportant bool         `json:"isImportant"`
}

func (in *NoteInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperr.Validation("patientId", "환자 ID는 필수입니다")
	}
	if strings.TrimSpace(in.Content) == "" {
		return apperr.Validation("content", "기록 내용은 필수입니다")
	}
	if utf8.RuneCountInString(in.Content) > maxNoteLength {
		return apperr.Validation("content", "기록 내용은 10000자 이하여야 합니다")
	}
	if utf8.RuneCountInString(in.PlainText) > maxNoteLength {
		return apperr.Validation("plainText", "Plain text는 10000자 이하여야 합니다")
	}
	if !in.Category.Valid() {
		return apperr.Validation("category", "기록 카테고리가 올바르지 않습니다")
	}
	return nil
}

func (in *NoteInput) plainText() string {
	if strings.TrimSpace(in.PlainText) != "" {
		return in.PlainText
	}
	return StripTags(in.Content)
}

func (s *Service) CreateNote(ctx context.Context, nurseID uuid.UUID, in NoteInput) (*NursingNote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := &NursingNote{
		PatientID:   in.PatientID,
		NurseID:     nurseID,
		Content:     in.Content,
		PlainText:   in.plainText(),
		Category:    in.Category,
		IsImportant: in.IsImportant,
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, in.PatientID); err != nil {
			return err
		}
		if err := s.notes.Create(ctx, n); err != nil {
			return fmt.Errorf("create nursing note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("note_id", n.ID.String()).Str("patient_id", n.PatientID.String()).
		Str("nurse_id", nurseID.String()).Msg("nursing note created")
	return s.notes.GetByID(ctx, n.ID)
}

func (s *Service) UpdateNote(ctx context.Context, nurseID, id uuid.UUID, in NoteInput) (*NursingNote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if n.NurseID != nurseID {
			return apperr.Forbidden("작성자만 간호기록을 수정할 수 있습니다")
		}
		if n.PatientID != in.PatientID {
			return apperr.Validation("patientId", "환자를 변경할 수 없습니다")
		}
		n.Content = in.Content
		n.PlainText = in.plainText()
		n.Category = in.Category
		n.IsImportant = in.IsImportant
		return s.notes.Update(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return s.notes.GetByID(ctx, id)
}

// DeleteNote removes a note. Only the nurse who wrote it may delete it.
func (s *Service) DeleteNote(ctx context.Context, nurseID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if n.NurseID != nurseID {
			return apperr.Forbidden("작성자만 간호기록을 삭제할 수 있습니다")
		}
		return s.notes.Delete(ctx, id)
	})
}

func (s *Service) ListNotes(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

// -- Intake / Output --

type IntakeOutputInput struct {
	PatientID   uuid.UUID  `json:"patientId"`
	IntakeOral  int        `json:"intakeOral"`
	IntakeIV    int        `json:"intakeIv"`
	OutputUrine int        `json:"outputUrine"`
	OutputDrain int        `json:"outputDrain"`
	RecordedAt  *time.Time `json:"recordedAt"`
}

func (in *IntakeOutputInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperr.Validation("patientId", "환자 ID는 필수입니다")
	}
	fields := []struct {
		name  string
		value int
	}{
		{"intakeOral", in.IntakeOral},
		{"intakeIv", in.IntakeIV},
		{"outputUrine", in.OutputUrine},
		{"outputDrain", in.OutputDrain},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > maxVolumeML {
			return apperr.Validation(f.name, fmt.Sprintf("0 이상 %dmL 이하여야 합니다", maxVolumeML))
		}
	}
	return nil
}

func (s *Service) apply(rec *IntakeOutputRecord, in IntakeOutputInput) {
	rec.IntakeOral = in.IntakeOral
	rec.IntakeIV = in.IntakeIV
	rec.OutputUrine = in.OutputUrine
	rec.OutputDrain = in.OutputDrain
	if in.RecordedAt != nil {
		rec.RecordedAt = *in.RecordedAt
	} else if rec.RecordedAt.IsZero() {
		rec.RecordedAt = s.now()
	}
	rec.ComputeTotals()
}

func (s *Service) CreateIntakeOutput(ctx context.Context, nurseID uuid.UUID, in IntakeOutputInput) (*IntakeOutputRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	rec := &IntakeOutputRecord{PatientID: in.PatientID, NurseID: nurseID}
	s.apply(rec, in)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, in.PatientID); err != nil {
			return err
		}
		if err := s.io.Create(ctx, rec); err != nil {
			return fmt.Errorf("create intake/output: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("record_id", rec.ID.String()).Str("patient_id", rec.PatientID.String()).
		Int("intake_total", rec.IntakeTotal).Int("output_total", rec.OutputTotal).Msg("intake/output recorded")
	return s.io.GetByID(ctx, rec.ID)
}

func (s *Service) UpdateIntakeOutput(ctx context.Context, nurseID, id uuid.UUID, in IntakeOutputInput) (*IntakeOutputRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.io.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if rec.NurseID != nurseID {
			return apperr.Forbidden("작성자만 섭취배설량을 수정할 수 있습니다")
		}
		if rec.PatientID != in.PatientID {
			return apperr.Validation("patientId", "환자를 변경할 수 없습니다")
		}
		s.apply(rec, in)
		return s.io.Update(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return s.io.GetByID(ctx, id)
}

func (s *Service) DeleteIntakeOutput(ctx context.Context, nurseID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.io.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if rec.NurseID != nurseID {
			return apperr.Forbidden("작성자만 섭취배설량을 삭제할 수 있습니다")
		}
		return s.io.Delete(ctx, id)
	})
}

func (s *Service) ListIntakeOutput(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*IntakeOutputRecord, int, error) {
	return s.io.ListByPatient(ctx, patientID, limit, offset)
}

var (
	// Only tag-shaped runs are removed, so "SBP<90, HR>110" survives.
	tagPattern   = regexp.MustCompile(`<!--[\s\S]*?-->|</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>`)
	blockPattern = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li)\s*/?>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
)

// StripTags reduces editor HTML to plain text.
func StripTags(s string) string {
	s = blockPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(spacePattern.ReplaceAllString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
