package integration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/handover"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
)

type cannedSummarizer struct {
	mu      sync.Mutex
	prompts []string
}

func (s *cannedSummarizer) GenerateText(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return "요약 완료", nil
}

func newHandoverService(gw *cannedSummarizer) *handover.Service {
	collector := handover.NewCollector(handover.Sources{
		Notes:        nursing.NewNoteRepoPG(globalPool),
		Vitals:       nursing.NewVitalRepoPG(globalPool),
		Medications:  nursing.NewMedicationRepoPG(globalPool),
		IntakeOutput: nursing.NewIntakeOutputRepoPG(globalPool),
		TestResults:  nursing.NewTestResultRepoPG(globalPool),
	}, loc)
	dir := handover.Directory{
		Shifts:      ward.NewShiftRepoPG(globalPool),
		Assignments: ward.NewAssignmentRepoPG(globalPool),
		Departments: ward.NewDepartmentRepoPG(globalPool),
		Users:       ward.NewUserRepoPG(globalPool),
	}
	return handover.NewService(dir, collector, gw, handover.NewRepoPG(globalPool), db.NewTxRunner(globalPool), loc, nop())
}

func TestHandover_SummaryFromRecordedData(t *testing.T) {
	ctx := context.Background()
	dept := createDepartment(t, "내과 병동")
	nurse := createUser(t, "박간호", "NURSE", dept)
	calm := createPatient(t, "안정환자", 50, ward.GenderFemale, dept)
	sick := createPatient(t, "위험환자", 80, ward.GenderMale, dept)
	shifts := todaysShifts(t)
	day := shifts[ward.ShiftDay]

	assignments := ward.NewAssignmentRepoPG(globalPool)
	for _, p := range []uuid.UUID{calm, sick} {
		if err := assignments.Create(ctx, &ward.Assignment{NurseID: nurse, PatientID: p, ShiftID: day.ID, AssignedDate: todayAt(0, 0)}); err != nil {
			t.Fatal(err)
		}
	}

	mustExec(t, `INSERT INTO nursing_note (id, patient_id, nurse_id, content, plain_text, category, created_at, updated_at)
		VALUES ($1, $2, $3, 'x', '식사 잘 함', 'OBSERVATION', $4, $4)`, uuid.New(), calm, nurse, todayAt(9, 30))
	mustExec(t, `INSERT INTO nursing_note (id, patient_id, nurse_id, content, plain_text, category, created_at, updated_at)
		VALUES ($1, $2, $3, 'x', '근무 전 기록', 'OBSERVATION', $4, $4)`, uuid.New(), calm, nurse, todayAt(7, 0))
	if err := nursing.NewVitalRepoPG(globalPool).Create(ctx, &nursing.VitalSign{
		PatientID: sick, SystolicBP: ptrInt(165), DiastolicBP: ptrInt(100), MeasuredAt: todayAt(11, 0),
	}); err != nil {
		t.Fatal(err)
	}
	for _, drug := range []string{"Aspirin", "Heparin", "Aspirin"} {
		if err := nursing.NewMedicationRepoPG(globalPool).Create(ctx, &nursing.Medication{
			PatientID: sick, DrugName: drug, AdministeredAt: todayAt(10, 0),
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := nursing.NewTestResultRepoPG(globalPool).Create(ctx, &nursing.TestResult{
		PatientID: sick, TestType: "LAB", TestName: "CBC", ResultDate: todayAt(6, 0),
	}); err != nil {
		t.Fatal(err)
	}

	gw := &cannedSummarizer{}
	svc := newHandoverService(gw)
	summary, err := svc.GenerateSummary(ctx, nurse, day.ID)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if summary != "요약 완료" || len(gw.prompts) != 1 {
		t.Fatalf("unexpected summary %q after %d calls", summary, len(gw.prompts))
	}

	prompt := gw.prompts[0]
	if !strings.Contains(prompt, "[내과 병동-") {
		t.Errorf("expected department name in prompt:\n%s", prompt)
	}
	if strings.Index(prompt, "위험환자") > strings.Index(prompt, "안정환자") {
		t.Errorf("expected the abnormal patient first:\n%s", prompt)
	}
	for _, want := range []string{"BP 165/100", "Aspirin (2회), Heparin (1회)", "LAB CBC", "09:30 식사 잘 함"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected %q in prompt:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "근무 전 기록") {
		t.Errorf("note outside the shift window leaked into prompt:\n%s", prompt)
	}
}

func TestHandover_NoAssignmentsNoGatewayCall(t *testing.T) {
	dept := createDepartment(t, "소아과")
	nurse := createUser(t, "빈간호", "NURSE", dept)
	day := todaysShifts(t)[ward.ShiftDay]

	gw := &cannedSummarizer{}
	summary, err := newHandoverService(gw).GenerateSummary(context.Background(), nurse, day.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary != handover.NoPatientsMessage || len(gw.prompts) != 0 {
		t.Fatalf("expected the no-patients message without a call, got %q (%d calls)", summary, len(gw.prompts))
	}
}

func TestHandover_PersistListDelete(t *testing.T) {
	ctx := context.Background()
	dept := createDepartment(t, "정형외과")
	author := createUser(t, "작성간호", "NURSE", dept)
	other := createUser(t, "다른간호", "HEAD_NURSE", dept)
	shifts := todaysShifts(t)
	svc := newHandoverService(&cannedSummarizer{})

	notes := "보호자 면담 예정"
	created, err := svc.Create(ctx, author, handover.CreateInput{
		DepartmentID:    dept,
		FromShiftID:     shifts[ward.ShiftDay].ID,
		ToShiftID:       shifts[ward.ShiftEvening].ID,
		AISummary:       "환자 상태 안정",
		AdditionalNotes: &notes,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.ListByDepartment(ctx, dept)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 handover, got %d", len(list))
	}
	got := list[0]
	if got.ID != created.ID || got.AISummary != "환자 상태 안정" || got.CreatedByName != "작성간호" {
		t.Errorf("unexpected handover %+v", got)
	}
	if got.FromShiftType != ward.ShiftDay || got.ToShiftType != ward.ShiftEvening {
		t.Errorf("unexpected shift types %s -> %s", got.FromShiftType, got.ToShiftType)
	}
	if got.AdditionalNotes == nil || *got.AdditionalNotes != notes {
		t.Errorf("expected additional notes to persist, got %v", got.AdditionalNotes)
	}
	if !ward.SameDate(got.HandoverDate, todayAt(0, 0)) {
		t.Errorf("expected today's handover date, got %v", got.HandoverDate)
	}

	if err := svc.Delete(ctx, created.ID, other); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := handover.NewRepoPG(globalPool).GetByID(ctx, created.ID); err != nil {
		t.Fatalf("handover must survive a rejected delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, author); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, author); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
