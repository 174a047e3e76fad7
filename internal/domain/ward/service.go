package ward

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
)

type ShiftService struct {
	shifts ShiftRepository
	tx     db.TxRunner
	logger zerolog.Logger
}

func NewShiftService(shifts ShiftRepository, tx db.TxRunner, logger zerolog.Logger) *ShiftService {
	return &ShiftService{shifts: shifts, tx: tx, logger: logger}
}

// GenerateDaily creates the DAY, EVENING and NIGHT shifts for date in one
// transaction. It does nothing when the date already has shifts.
func (s *ShiftService) GenerateDaily(ctx context.Context, date time.Time) (int, error) {
	day := date.Format(time.DateOnly)
	created := 0
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.shifts.ListByDate(ctx, date)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			s.logger.Info().Str("date", day).Int("existing", len(existing)).Msg("shifts already exist, skipping")
			return nil
		}
		for _, sh := range DailyShifts(date) {
			if err := s.shifts.Create(ctx, sh); err != nil {
				return fmt.Errorf("create %s shift: %w", sh.Type, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("generate shifts for %s: %w", day, err)
	}
	if created > 0 {
		s.logger.Info().Str("date", day).Int("created", created).Msg("daily shifts created")
	}
	return created, nil
}

// ShiftJob creates tomorrow's shifts once at start and then every day at
// local midnight.
type ShiftJob struct {
	svc    *ShiftService
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

func NewShiftJob(svc *ShiftService, loc *time.Location, logger zerolog.Logger) *ShiftJob {
	return &ShiftJob{svc: svc, loc: loc, now: time.Now, logger: logger}
}

// Run blocks until ctx is cancelled.
func (j *ShiftJob) Run(ctx context.Context) {
	j.tick(ctx)
	for {
		wait := nextMidnight(j.now(), j.loc).Sub(j.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.tick(ctx)
		}
	}
}

func (j *ShiftJob) tick(ctx context.Context) {
	tomorrow := j.now().In(j.loc).AddDate(0, 0, 1)
	if _, err := j.svc.GenerateDaily(ctx, tomorrow); err != nil {
		j.logger.Error().Err(err).Msg("daily shift generation failed")
	}
}

func nextMidnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
