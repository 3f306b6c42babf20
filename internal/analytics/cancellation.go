package analytics

import (
	"sort"
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// CategoryCancellation is one row of the overview table. The rate is against
// the clinic-wide procedures total, not the category's own volume.
type CategoryCancellation struct {
	Category          model.Category `json:"category"`
	Cancelled         int            `json:"cancelled"`
	ClinicWideRatePct float64        `json:"clinic_wide_rate_pct"`
}

// CancellationByCategory counts cancellations per category present in records
// and divides by totalProcedures. Sorted by rate descending, then category.
func CancellationByCategory(records []model.AppointmentRecord, totalProcedures int) []CategoryCancellation {
	counts := map[model.Category]int{}
	for _, r := range records {
		if _, ok := counts[r.ProcedureCategory]; !ok {
			counts[r.ProcedureCategory] = 0
		}
		if r.IsCancelled() {
			counts[r.ProcedureCategory]++
		}
	}

	rows := make([]CategoryCancellation, 0, len(counts))
	for category, cancelled := range counts {
		rows = append(rows, CategoryCancellation{
			Category:          category,
			Cancelled:         cancelled,
			ClinicWideRatePct: round1(ratePct(cancelled, totalProcedures)),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClinicWideRatePct != rows[j].ClinicWideRatePct {
			return rows[i].ClinicWideRatePct > rows[j].ClinicWideRatePct
		}
		if rows[i].Cancelled != rows[j].Cancelled {
			return rows[i].Cancelled > rows[j].Cancelled
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// WithoutOther drops the OTHER row; the overview chart plots named categories only.
func WithoutOther(rows []CategoryCancellation) []CategoryCancellation {
	out := make([]CategoryCancellation, 0, len(rows))
	for _, r := range rows {
		if r.Category != model.CategoryOther {
			out = append(out, r)
		}
	}
	return out
}

// WeeklyCancellation counts cancellations of one category in one Monday-Sunday week.
type WeeklyCancellation struct {
	WeekStart time.Time      `json:"week_start"`
	WeekEnd   time.Time      `json:"week_end"`
	Category  model.Category `json:"category"`
	Count     int            `json:"count"`
}

type weekKey struct {
	category model.Category
	week     int
}

// WeeklyCancellationTrend buckets cancelled appointments by category and week.
// Rows without an appointment date are ignored. Sorted by category, then week.
func WeeklyCancellationTrend(records []model.AppointmentRecord) []WeeklyCancellation {
	counts := map[weekKey]int{}
	starts := map[int]time.Time{}
	for _, r := range records {
		if !r.IsCancelled() || r.AppointmentDate == nil {
			continue
		}
		start := weekStart(*r.AppointmentDate)
		k := weekKey{category: r.ProcedureCategory, week: dateKey(start)}
		if _, ok := starts[k.week]; !ok {
			starts[k.week] = start
		}
		counts[k]++
	}

	rows := make([]WeeklyCancellation, 0, len(counts))
	for k, n := range counts {
		start := starts[k.week]
		rows = append(rows, WeeklyCancellation{
			WeekStart: start,
			WeekEnd:   start.AddDate(0, 0, 6),
			Category:  k.category,
			Count:     n,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].WeekStart.Before(rows[j].WeekStart)
	})
	return rows
}

// weekStart is midnight of the Monday on or before t, in t's location.
func weekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
