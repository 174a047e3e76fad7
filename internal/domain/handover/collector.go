package handover

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
)

const defaultPatientConcurrency = 4

// Sources are the five read-only clinical record stores.
type Sources struct {
	Notes        nursing.NoteRepository
	Vitals       nursing.VitalRepository
	Medications  nursing.MedicationRepository
	IntakeOutput nursing.IntakeOutputRepository
	TestResults  nursing.TestResultRepository
}

// Collector gathers each patient's records for a shift window.
type Collector struct {
	src         Sources
	loc         *time.Location
	concurrency int
}

func NewCollector(src Sources, loc *time.Location) *Collector {
	return &Collector{src: src, loc: loc, concurrency: defaultPatientConcurrency}
}

// Collect builds one bundle per patient. The result is in the same order as
// patients regardless of completion order.
func (c *Collector) Collect(ctx context.Context, patients []ward.Patient, w ward.Window, today time.Time) ([]*PatientBundle, error) {
	bundles := make([]*PatientBundle, len(patients))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range patients {
		i := i
		g.Go(func() error {
			b, err := c.CollectPatient(ctx, patients[i], w, today)
			if err != nil {
				return fmt.Errorf("collect patient %s: %w", patients[i].ID, err)
			}
			bundles[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}

// CollectPatient reads the five sources in parallel. Notes, vitals,
// medications and intake/output are limited to w; test results are limited
// to those reported on today's date.
func (c *Collector) CollectPatient(ctx context.Context, p ward.Patient, w ward.Window, today time.Time) (*PatientBundle, error) {
	b := &PatientBundle{Patient: p}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		notes, err := c.src.Notes.ListAllByPatient(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		for _, n := range notes {
			if w.Contains(n.CreatedAt) {
				b.Notes = append(b.Notes, n)
			}
		}
		return nil
	})
	g.Go(func() error {
		vitals, err := c.src.Vitals.ListInRange(ctx, p.ID, w.Start, w.End)
		if err != nil {
			return fmt.Errorf("vitals: %w", err)
		}
		sort.SliceStable(vitals, func(i, j int) bool { return vitals[i].MeasuredAt.After(vitals[j].MeasuredAt) })
		b.Vitals = vitals
		return nil
	})
	g.Go(func() error {
		meds, err := c.src.Medications.ListInRange(ctx, p.ID, w.Start, w.End)
		if err != nil {
			return fmt.Errorf("medications: %w", err)
		}
		b.Medications = meds
		return nil
	})
	g.Go(func() error {
		records, err := c.src.IntakeOutput.ListInRange(ctx, p.ID, w.Start, w.End)
		if err != nil {
			return fmt.Errorf("intake/output: %w", err)
		}
		b.IntakeOutputs = records
		return nil
	})
	g.Go(func() error {
		results, err := c.src.TestResults.ListByPatient(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("test results: %w", err)
		}
		day := today.In(c.loc).Format(time.DateOnly)
		for _, r := range results {
			if r.ResultDate.In(c.loc).Format(time.DateOnly) == day {
				b.TestResults = append(b.TestResults, r)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.Important = IsImportant(b)
	return b, nil
}

// SortByImportance moves important patients to the front, keeping the
// assignment order within each group.
func SortByImportance(bundles []*PatientBundle) {
	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Important && !bundles[j].Important
	})
}
