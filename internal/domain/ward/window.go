package ward

import "time"

// Window is an absolute time interval. Membership is inclusive at both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ResolveWindow anchors a shift's times of day to the calendar date of ref,
// read in loc. A shift whose end precedes its start ends on the next day.
func ResolveWindow(s *Shift, ref time.Time, loc *time.Location) Window {
	y, m, d := ref.In(loc).Date()
	start := time.Date(y, m, d, s.StartTime.Hour(), s.StartTime.Minute(), s.StartTime.Second(), 0, loc)
	end := time.Date(y, m, d, s.EndTime.Hour(), s.EndTime.Minute(), s.EndTime.Second(), 0, loc)
	if s.CrossesMidnight() {
		end = end.Add(24 * time.Hour)
	}
	return Window{Start: start, End: end}
}
