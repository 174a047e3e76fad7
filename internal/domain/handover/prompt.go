package handover

import (
	"strconv"
	"strings"
	"time"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
)

// NoPatientsMessage is returned instead of a summary when the nurse has no
// patients assigned to the shift today.
const NoPatientsMessage = "현재 근무조에 배정된 환자가 없습니다."

const closingInstructions = "\n각 환자별로 다음 형식으로 인수인계문을 작성해줘:\n\n" +
	"[환자명 (차트번호, 나이/성별)]\n" +
	"- 주요 변화: 특이사항 및 상태 변화\n" +
	"- 수행한 처치: 투약, 검사 등\n" +
	"- 지속 관찰 사항: 다음 근무조에서 주의할 점\n\n" +
	"환자당 3-5문장, 중요한 환자는 더 자세히 작성. 간결하고 명확하게."

// BuildPrompt renders the handover prompt. bundles must already be in
// presentation order. Note times are printed in loc. The output depends only
// on the arguments.
func BuildPrompt(department string, shiftType ward.ShiftType, bundles []*PatientBundle, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("다음은 [" + department + "] [근무조: " + string(shiftType) + "]의 인수인계 정보입니다.\n\n")

	for _, b := range bundles {
		writePatient(&sb, b, loc)
		sb.WriteString("\n")
	}

	sb.WriteString(closingInstructions)
	return sb.String()
}

func writePatient(sb *strings.Builder, b *PatientBundle, loc *time.Location) {
	p := b.Patient
	sb.WriteString("[환자 - " + p.Name + " (" + p.ChartNumber + ", " + strconv.Itoa(p.Age) + "세/" + genderLabel(p.Gender) + ")]\n")

	if len(b.Notes) > 0 {
		sb.WriteString("- 간호기록:\n")
		for _, n := range b.Notes {
			sb.WriteString("  * " + n.CreatedAt.In(loc).Format("15:04") + " " + n.PlainText + "\n")
		}
	}

	if len(b.Vitals) > 0 {
		if line := vitalLine(b.Vitals[0]); line != "" {
			sb.WriteString("- 바이탈: " + line + "\n")
		}
	}

	if len(b.TestResults) > 0 {
		parts := make([]string, len(b.TestResults))
		for i, t := range b.TestResults {
			parts[i] = t.TestType + " " + t.TestName
		}
		sb.WriteString("- 검사결과: " + strings.Join(parts, ", ") + "\n")
	}

	if len(b.Medications) > 0 {
		sb.WriteString("- 투약: " + medicationLine(b.Medications) + "\n")
	}

	if len(b.IntakeOutputs) > 0 {
		intake, output := 0, 0
		for _, r := range b.IntakeOutputs {
			intake += r.IntakeTotal
			output += r.OutputTotal
		}
		sb.WriteString("- I/O: 섭취 " + strconv.Itoa(intake) + "mL, 배설 " + strconv.Itoa(output) + "mL\n")
	}
}

func genderLabel(g ward.Gender) string {
	if g == ward.GenderMale {
		return "남"
	}
	return "여"
}

// vitalLine renders the present fields of one reading. A blood pressure with
// one side missing prints "-" for that side.
func vitalLine(v *nursing.VitalSign) string {
	var parts []string
	if v.SystolicBP != nil || v.DiastolicBP != nil {
		parts = append(parts, "BP "+optInt(v.SystolicBP)+"/"+optInt(v.DiastolicBP))
	}
	if v.HeartRate != nil {
		parts = append(parts, "HR "+strconv.Itoa(*v.HeartRate))
	}
	if v.BodyTemp != nil {
		parts = append(parts, "Temp "+strconv.FormatFloat(*v.BodyTemp, 'f', 1, 64))
	}
	if v.SpO2 != nil {
		parts = append(parts, "SpO2 "+strconv.Itoa(*v.SpO2)+"%")
	}
	return strings.Join(parts, ", ")
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

// medicationLine groups administrations by drug in first-seen order.
func medicationLine(meds []*nursing.Medication) string {
	counts := make(map[string]int, len(meds))
	var order []string
	for _, m := range meds {
		if counts[m.DrugName] == 0 {
			order = append(order, m.DrugName)
		}
		counts[m.DrugName]++
	}
	parts := make([]string, len(order))
	for i, drug := range order {
		parts[i] = drug + " (" + strconv.Itoa(counts[drug]) + "회)"
	}
	return strings.Join(parts, ", ")
}
