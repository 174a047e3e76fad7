package ward

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

type ShiftType string

const (
	ShiftDay     ShiftType = "DAY"
	ShiftEvening ShiftType = "EVENING"
	ShiftNight   ShiftType = "NIGHT"
)

// TimeOfDay is a wall-clock time as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func MustTimeOfDay(h, m int) TimeOfDay {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		panic(fmt.Sprintf("invalid time of day %02d:%02d", h, m))
	}
	return TimeOfDay(h*3600 + m*60)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

type Department struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Patient struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	ChartNumber    string    `json:"chartNumber"`
	Age            int       `json:"age"`
	Gender         Gender    `json:"gender"`
	DepartmentID   uuid.UUID `json:"departmentId"`
	DepartmentName string    `json:"departmentName"`
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
}

// Shift is one work period on a calendar date. EndTime may be earlier than
// StartTime, meaning the shift ends on the following day.
type Shift struct {
	ID        uuid.UUID `json:"id"`
	ShiftDate time.Time `json:"shiftDate"`
	Type      ShiftType `json:"type"`
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
}

func (s *Shift) CrossesMidnight() bool {
	return s.EndTime < s.StartTime
}

// Assignment links a nurse to a patient for a shift on a date. Patient is
// always populated by the repository.
type Assignment struct {
	ID           uuid.UUID `json:"id"`
	NurseID      uuid.UUID `json:"nurseId"`
	PatientID    uuid.UUID `json:"patientId"`
	ShiftID      uuid.UUID `json:"shiftId"`
	AssignedDate time.Time `json:"assignedDate"`
	Patient      Patient   `json:"patient"`
}

// SameDate reports whether a and b fall on the same calendar date, reading
// each in its own location.
func SameDate(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

// DailyShifts is the fixed three-shift rotation created for each date.
func DailyShifts(date time.Time) []*Shift {
	return []*Shift{
		{ShiftDate: date, Type: ShiftDay, StartTime: MustTimeOfDay(8, 0), EndTime: MustTimeOfDay(16, 0)},
		{ShiftDate: date, Type: ShiftEvening, StartTime: MustTimeOfDay(16, 0), EndTime: MustTimeOfDay(0, 0)},
		{ShiftDate: date, Type: ShiftNight, StartTime: MustTimeOfDay(0, 0), EndTime: MustTimeOfDay(8, 0)},
	}
}
