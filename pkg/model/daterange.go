package model

import "time"

// DateRange is a half-open [CheckIn, CheckOut) range at day granularity.
// A one-night hotel stay has CheckOut exactly one day after CheckIn.
type DateRange struct {
	CheckIn  time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
}

// Nights returns the number of unit dates covered by the range.
func (r DateRange) Nights() int {
	in := truncateToDay(r.CheckIn)
	out := truncateToDay(r.CheckOut)
	return int(out.Sub(in).Hours() / 24)
}

// Dates returns every unit date in the range, check-out day excluded.
func (r DateRange) Dates() []time.Time {
	nights := r.Nights()
	if nights <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, nights)
	day := truncateToDay(r.CheckIn)
	for i := 0; i < nights; i++ {
		dates = append(dates, day)
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// Overlaps reports whether two ranges share at least one unit date.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && r.CheckOut.After(other.CheckIn)
}

func (r DateRange) IsValid() bool {
	return r.Nights() > 0
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
