package handover

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
)

type serviceFixture struct {
	svc      *Service
	src      *fakeSources
	assign   *fakeAssignments
	gateway  *recordingSummarizer
	repo     *memRepo
	now      time.Time
	nurse    uuid.UUID
	other    uuid.UUID
	dept     uuid.UUID
	dayShift uuid.UUID
	eveShift uuid.UUID
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		src:      newFakeSources(),
		assign:   &fakeAssignments{},
		gateway:  &recordingSummarizer{reply: "인수인계 요약"},
		repo:     newMemRepo(),
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, kst),
		nurse:    uuid.New(),
		other:    uuid.New(),
		dept:     uuid.New(),
		dayShift: uuid.New(),
		eveShift: uuid.New(),
	}
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, kst)
	shifts := &fakeShifts{byID: map[uuid.UUID]*ward.Shift{
		f.dayShift: {ID: f.dayShift, ShiftDate: date, Type: ward.ShiftDay, StartTime: ward.MustTimeOfDay(8, 0), EndTime: ward.MustTimeOfDay(16, 0)},
		f.eveShift: {ID: f.eveShift, ShiftDate: date, Type: ward.ShiftEvening, StartTime: ward.MustTimeOfDay(16, 0), EndTime: ward.MustTimeOfDay(0, 0)},
	}}
	dir := Directory{
		Shifts:      shifts,
		Assignments: f.assign,
		Departments: &fakeDepartments{byID: map[uuid.UUID]*ward.Department{f.dept: {ID: f.dept, Name: "내과 병동"}}},
		Users: &fakeUsers{byID: map[uuid.UUID]*ward.User{
			f.nurse: {ID: f.nurse, Name: "박간호"},
			f.other: {ID: f.other, Name: "최간호"},
		}},
	}
	f.svc = NewService(dir, NewCollector(f.src.sources(), kst), f.gateway, f.repo, passTx{}, kst, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *serviceFixture) assignPatient(name string, day time.Time) ward.Patient {
	p := ward.Patient{ID: uuid.New(), Name: name, ChartNumber: "C-" + name, Age: 50, Gender: ward.GenderFemale, DepartmentID: f.dept, DepartmentName: "내과 병동"}
	f.assign.list = append(f.assign.list, &ward.Assignment{
		ID: uuid.New(), NurseID: f.nurse, PatientID: p.ID, ShiftID: f.dayShift, AssignedDate: day, Patient: p,
	})
	return p
}

func TestGenerateSummary_ImportantPatientsFirst(t *testing.T) {
	f := newServiceFixture()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, kst)
	a := f.assignPatient("A", today)
	b := f.assignPatient("B", today)
	f.assignPatient("C", today)
	d := f.assignPatient("D", today)
	f.assignPatient("E", today.AddDate(0, 0, -1))
	f.assign.list = append(f.assign.list, &ward.Assignment{NurseID: f.nurse, PatientID: a.ID, ShiftID: f.dayShift, AssignedDate: today, Patient: a})

	f.src.notes.byPatient[b.ID] = []*nursing.NursingNote{{PlainText: "낙상 위험", IsImportant: true, CreatedAt: at(10, 0)}}
	f.src.vit.byPatient[d.ID] = []*nursing.VitalSign{{SystolicBP: intPtr(150), MeasuredAt: at(9, 0)}}

	summary, err := f.svc.GenerateSummary(context.Background(), f.nurse, f.dayShift)
	require.NoError(t, err)
	assert.Equal(t, "인수인계 요약", summary)
	require.Equal(t, 1, f.gateway.calls())

	prompt := f.gateway.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "다음은 [내과 병동] [근무조: DAY]"))
	var positions []int
	for _, name := range []string{"B", "D", "A", "C"} {
		idx := strings.Index(prompt, "[환자 - "+name+" ")
		require.GreaterOrEqual(t, idx, 0, "patient %s missing", name)
		positions = append(positions, idx)
	}
	assert.IsIncreasing(t, positions)
	assert.NotContains(t, prompt, "[환자 - E ")
	assert.Equal(t, 1, strings.Count(prompt, "[환자 - A "))
}

func TestGenerateSummary_NoPatientsSkipsGateway(t *testing.T) {
	f := newServiceFixture()
	f.assignPatient("Y", time.Date(2025, 3, 9, 0, 0, 0, 0, kst))

	summary, err := f.svc.GenerateSummary(context.Background(), f.nurse, f.dayShift)
	require.NoError(t, err)
	assert.Equal(t, NoPatientsMessage, summary)
	assert.Zero(t, f.gateway.calls())
}

func TestGenerateSummary_UnknownShift(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.GenerateSummary(context.Background(), f.nurse, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.gateway.calls())
}

func TestGenerateSummary_GatewayFailure(t *testing.T) {
	f := newServiceFixture()
	f.assignPatient("A", time.Date(2025, 3, 10, 0, 0, 0, 0, kst))
	f.gateway.err = apperr.Summarization(errors.New("upstream 503"))

	_, err := f.svc.GenerateSummary(context.Background(), f.nurse, f.dayShift)
	assert.ErrorIs(t, err, apperr.ErrSummarization)
}

func TestGenerateSummary_MidnightShiftWindow(t *testing.T) {
	f := newServiceFixture()
	f.now = time.Date(2025, 3, 10, 17, 0, 0, 0, kst)
	p := f.assignPatient("N", time.Date(2025, 3, 10, 0, 0, 0, 0, kst))
	f.assign.list[0].ShiftID = f.eveShift
	f.src.notes.byPatient[p.ID] = []*nursing.NursingNote{
		{PlainText: "자정 직전", CreatedAt: time.Date(2025, 3, 10, 23, 50, 0, 0, kst)},
		{PlainText: "자정", CreatedAt: time.Date(2025, 3, 11, 0, 0, 0, 0, kst)},
		{PlainText: "다음날", CreatedAt: time.Date(2025, 3, 11, 0, 1, 0, 0, kst)},
	}

	prompt, ok, err := f.svc.PreparePrompt(context.Background(), f.nurse, f.eveShift)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, prompt, "자정 직전")
	assert.Contains(t, prompt, "00:00 자정")
	assert.NotContains(t, prompt, "다음날")
}

func validInput(f *serviceFixture) CreateInput {
	return CreateInput{
		DepartmentID:    f.dept,
		FromShiftID:     f.dayShift,
		ToShiftID:       f.eveShift,
		AISummary:       "환자 상태 안정",
		AdditionalNotes: strPtr("보호자 면담 예정"),
	}
}

func TestCreateAndList_RoundTrip(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.nurse, validInput(f))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "내과 병동", created.DepartmentName)
	assert.Equal(t, ward.ShiftDay, created.FromShiftType)
	assert.Equal(t, ward.ShiftEvening, created.ToShiftType)
	assert.Equal(t, "박간호", created.CreatedByName)
	assert.Equal(t, "2025-03-10", created.HandoverDate.Format(time.DateOnly))

	second, err := f.svc.Create(ctx, f.other, validInput(f))
	require.NoError(t, err)

	list, err := f.svc.ListByDepartment(ctx, f.dept)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, created.ID, list[1].ID)
	assert.Equal(t, "환자 상태 안정", list[1].AISummary)
	require.NotNil(t, list[1].AdditionalNotes)
	assert.Equal(t, "보호자 면담 예정", *list[1].AdditionalNotes)
}

func TestCreate_BlankNotesStoredAsNull(t *testing.T) {
	f := newServiceFixture()
	in := validInput(f)
	in.AdditionalNotes = strPtr("   ")

	created, err := f.svc.Create(context.Background(), f.nurse, in)
	require.NoError(t, err)
	assert.Nil(t, created.AdditionalNotes)
}

func TestCreate_Validation(t *testing.T) {
	f := newServiceFixture()
	tests := []struct {
		name   string
		mutate func(in *CreateInput)
		field  string
	}{
		{"missing department", func(in *CreateInput) { in.DepartmentID = uuid.Nil }, "departmentId"},
		{"missing from shift", func(in *CreateInput) { in.FromShiftID = uuid.Nil }, "fromShiftId"},
		{"missing to shift", func(in *CreateInput) { in.ToShiftID = uuid.Nil }, "toShiftId"},
		{"blank summary", func(in *CreateInput) { in.AISummary = " \n " }, "aiSummary"},
		{"summary too long", func(in *CreateInput) { in.AISummary = strings.Repeat("가", maxSummaryLength+1) }, "aiSummary"},
		{"notes too long", func(in *CreateInput) { in.AdditionalNotes = strPtr(strings.Repeat("a", maxNotesLength+1)) }, "additionalNotes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(f)
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), f.nurse, in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, ae.Field)
		})
	}

	in := validInput(f)
	in.AISummary = strings.Repeat("가", maxSummaryLength)
	_, err := f.svc.Create(context.Background(), f.nurse, in)
	assert.NoError(t, err)
}

func TestCreate_UnknownReferences(t *testing.T) {
	f := newServiceFixture()

	in := validInput(f)
	in.ToShiftID = uuid.New()
	_, err := f.svc.Create(context.Background(), f.nurse, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Create(context.Background(), uuid.New(), validInput(f))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, _ := f.repo.ListByDepartment(context.Background(), f.dept)
	assert.Empty(t, list)
}

func TestListByDepartment_UnknownDepartment(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.ListByDepartment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_AuthorOnly(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.nurse, validInput(f))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, created.ID, f.other)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err, "record must survive a rejected delete")

	require.NoError(t, f.svc.Delete(ctx, created.ID, f.nurse))
	_, err = f.repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_UnknownHandover(t *testing.T) {
	f := newServiceFixture()
	err := f.svc.Delete(context.Background(), uuid.New(), f.nurse)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
