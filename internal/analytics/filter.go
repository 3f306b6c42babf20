// Package analytics holds the dashboard's pure aggregation functions. Every
// function takes an already filtered record slice, never mutates it, and
// returns empty (non-nil) results for empty input.
package analytics

import (
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Contains compares the calendar date of t against the range, ignoring clock time.
func (r DateRange) Contains(t time.Time) bool {
	k := dateKey(t)
	return k >= dateKey(r.Start) && k <= dateKey(r.End)
}

// Filter selects the working set for one view. Zero fields do not filter.
type Filter struct {
	Range      *DateRange
	CreatedBy  string
	CanceledBy string
}

// Apply returns the matching records in their original order. Records without
// an appointment date never match a date range.
func (f Filter) Apply(records []model.AppointmentRecord) []model.AppointmentRecord {
	out := make([]model.AppointmentRecord, 0, len(records))
	for _, r := range records {
		if f.Range != nil {
			if r.AppointmentDate == nil || !f.Range.Contains(*r.AppointmentDate) {
				continue
			}
		}
		if f.CreatedBy != "" && r.CreatedBy != f.CreatedBy {
			continue
		}
		if f.CanceledBy != "" && r.CanceledBy != f.CanceledBy {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DateBounds returns the earliest and latest appointment dates. ok is false
// when no record has an appointment date.
func DateBounds(records []model.AppointmentRecord) (bounds DateRange, ok bool) {
	for _, r := range records {
		if r.AppointmentDate == nil {
			continue
		}
		t := *r.AppointmentDate
		if !ok {
			bounds = DateRange{Start: t, End: t}
			ok = true
			continue
		}
		if t.Before(bounds.Start) {
			bounds.Start = t
		}
		if t.After(bounds.End) {
			bounds.End = t
		}
	}
	return bounds, ok
}

// TotalCancelled counts records with the Cancelled status.
func TotalCancelled(records []model.AppointmentRecord) int {
	n := 0
	for _, r := range records {
		if r.IsCancelled() {
			n++
		}
	}
	return n
}
