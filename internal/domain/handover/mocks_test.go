package handover

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
)

var kst = time.FixedZone("KST", 9*3600)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

// -- Clinical sources --

type fakeNotes struct {
	nursing.NoteRepository
	byPatient map[uuid.UUID][]*nursing.NursingNote
	err       error
}

func (f *fakeNotes) ListAllByPatient(_ context.Context, patientID uuid.UUID) ([]*nursing.NursingNote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPatient[patientID], nil
}

type fakeVitals struct {
	byPatient map[uuid.UUID][]*nursing.VitalSign
}

func (f *fakeVitals) ListInRange(_ context.Context, patientID uuid.UUID, start, end time.Time) ([]*nursing.VitalSign, error) {
	var out []*nursing.VitalSign
	for _, v := range f.byPatient[patientID] {
		if !v.MeasuredAt.Before(start) && !v.MeasuredAt.After(end) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVitals) Create(context.Context, *nursing.VitalSign) error { return nil }

type fakeMeds struct {
	byPatient map[uuid.UUID][]*nursing.Medication
}

func (f *fakeMeds) ListInRange(_ context.Context, patientID uuid.UUID, start, end time.Time) ([]*nursing.Medication, error) {
	var out []*nursing.Medication
	for _, m := range f.byPatient[patientID] {
		if !m.AdministeredAt.Before(start) && !m.AdministeredAt.After(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeds) Create(context.Context, *nursing.Medication) error { return nil }

type fakeIO struct {
	nursing.IntakeOutputRepository
	byPatient map[uuid.UUID][]*nursing.IntakeOutputRecord
}

func (f *fakeIO) ListInRange(_ context.Context, patientID uuid.UUID, start, end time.Time) ([]*nursing.IntakeOutputRecord, error) {
	var out []*nursing.IntakeOutputRecord
	for _, r := range f.byPatient[patientID] {
		if !r.RecordedAt.Before(start) && !r.RecordedAt.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTests struct {
	byPatient map[uuid.UUID][]*nursing.TestResult
}

func (f *fakeTests) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*nursing.TestResult, error) {
	return f.byPatient[patientID], nil
}

func (f *fakeTests) Create(context.Context, *nursing.TestResult) error { return nil }

type fakeSources struct {
	notes *fakeNotes
	vit   *fakeVitals
	meds  *fakeMeds
	io    *fakeIO
	tests *fakeTests
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		notes: &fakeNotes{byPatient: map[uuid.UUID][]*nursing.NursingNote{}},
		vit:   &fakeVitals{byPatient: map[uuid.UUID][]*nursing.VitalSign{}},
		meds:  &fakeMeds{byPatient: map[uuid.UUID][]*nursing.Medication{}},
		io:    &fakeIO{byPatient: map[uuid.UUID][]*nursing.IntakeOutputRecord{}},
		tests: &fakeTests{byPatient: map[uuid.UUID][]*nursing.TestResult{}},
	}
}

func (f *fakeSources) sources() Sources {
	return Sources{Notes: f.notes, Vitals: f.vit, Medications: f.meds, IntakeOutput: f.io, TestResults: f.tests}
}

// -- Ward directory --

type fakeShifts struct {
	ward.ShiftRepository
	byID map[uuid.UUID]*ward.Shift
}

func (f *fakeShifts) GetByID(_ context.Context, id uuid.UUID) (*ward.Shift, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("shift", id)
	}
	return s, nil
}

type fakeAssignments struct {
	ward.AssignmentRepository
	list []*ward.Assignment
}

func (f *fakeAssignments) ListByNurseAndShift(_ context.Context, nurseID, shiftID uuid.UUID) ([]*ward.Assignment, error) {
	var out []*ward.Assignment
	for _, a := range f.list {
		if a.NurseID == nurseID && a.ShiftID == shiftID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeDepartments struct {
	byID map[uuid.UUID]*ward.Department
}

func (f *fakeDepartments) GetByID(_ context.Context, id uuid.UUID) (*ward.Department, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("department", id)
	}
	return d, nil
}

type fakeUsers struct {
	byID map[uuid.UUID]*ward.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*ward.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}

// -- Handover store --

type memRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Handover
	clock   time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[uuid.UUID]*Handover{}, clock: time.Date(2025, 3, 10, 9, 0, 0, 0, kst)}
}

func (m *memRepo) Create(_ context.Context, h *Handover) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	h.ID = uuid.New()
	h.CreatedAt = m.clock
	cp := *h
	m.records[h.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Handover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("handover", id)
	}
	cp := *h
	return &cp, nil
}

func (m *memRepo) LockByID(ctx context.Context, id uuid.UUID) (*Handover, error) {
	return m.GetByID(ctx, id)
}

func (m *memRepo) ListByDepartment(_ context.Context, departmentID uuid.UUID) ([]*Handover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Handover
	for _, h := range m.records {
		if h.DepartmentID == departmentID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return apperr.NotFound("handover", id)
	}
	delete(m.records, id)
	return nil
}

// -- Gateway --

type recordingSummarizer struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (r *recordingSummarizer) GenerateText(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func (r *recordingSummarizer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
