package handover

import "github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"

// Reference ranges for flagging a reading. Bounds are exclusive.
const (
	systolicHigh  = 140
	systolicLow   = 90
	diastolicHigh = 90
	diastolicLow  = 60
	heartRateHigh = 100
	heartRateLow  = 60
	tempHigh      = 37.5
	tempLow       = 36.0
	spo2Low       = 95

	imbalanceThresholdML = 500
)

// IsAbnormalVital reports whether any measured field of v is out of range.
// Absent fields never count.
func IsAbnormalVital(v *nursing.VitalSign) bool {
	if v == nil {
		return false
	}
	switch {
	case v.SystolicBP != nil && (*v.SystolicBP > systolicHigh || *v.SystolicBP < systolicLow):
		return true
	case v.DiastolicBP != nil && (*v.DiastolicBP > diastolicHigh || *v.DiastolicBP < diastolicLow):
		return true
	case v.HeartRate != nil && (*v.HeartRate > heartRateHigh || *v.HeartRate < heartRateLow):
		return true
	case v.BodyTemp != nil && (*v.BodyTemp > tempHigh || *v.BodyTemp < tempLow):
		return true
	case v.SpO2 != nil && *v.SpO2 < spo2Low:
		return true
	}
	return false
}

// HasImbalance reports whether intake and output differ by more than 500 mL.
func HasImbalance(r *nursing.IntakeOutputRecord) bool {
	if r == nil {
		return false
	}
	diff := r.IntakeTotal - r.OutputTotal
	if diff < 0 {
		diff = -diff
	}
	return diff > imbalanceThresholdML
}

// IsImportant is true when any note is flagged important, any vital reading
// is abnormal, or any intake/output record is imbalanced.
func IsImportant(b *PatientBundle) bool {
	for _, n := range b.Notes {
		if n.IsImportant {
			return true
		}
	}
	for _, v := range b.Vitals {
		if IsAbnormalVital(v) {
			return true
		}
	}
	for _, r := range b.IntakeOutputs {
		if HasImbalance(r) {
			return true
		}
	}
	return false
}
