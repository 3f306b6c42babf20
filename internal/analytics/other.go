package analytics

import (
	"sort"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// MinHighCancellationVolume is the appointment count a raw type needs before
// it can be flagged as a high cancellation rate procedure.
const MinHighCancellationVolume = 5

// OtherTypeMetric describes one raw procedure type that fell into OTHER.
// LocalRatePct is cancelled/total for that type alone.
type OtherTypeMetric struct {
	Type         string  `json:"type"`
	Total        int     `json:"total"`
	Cancelled    int     `json:"cancelled"`
	LocalRatePct float64 `json:"local_rate_pct"`
}

// OtherCategoryBreakdown groups OTHER appointments by their raw type, most
// common first. Blank types are not grouped.
func OtherCategoryBreakdown(records []model.AppointmentRecord) []OtherTypeMetric {
	type tally struct{ total, cancelled int }
	byType := map[string]*tally{}
	for _, r := range records {
		if r.ProcedureCategory != model.CategoryOther || r.Type == "" {
			continue
		}
		t, ok := byType[r.Type]
		if !ok {
			t = &tally{}
			byType[r.Type] = t
		}
		t.total++
		if r.IsCancelled() {
			t.cancelled++
		}
	}

	rows := make([]OtherTypeMetric, 0, len(byType))
	for typ, t := range byType {
		rows = append(rows, OtherTypeMetric{
			Type:         typ,
			Total:        t.total,
			Cancelled:    t.cancelled,
			LocalRatePct: round1(ratePct(t.cancelled, t.total)),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}

// HighCancellationSubset keeps types with at least MinHighCancellationVolume
// appointments whose rate is strictly above the median rate. The median is
// taken over every row passed in, before the volume cutoff is applied.
func HighCancellationSubset(otherRows []OtherTypeMetric) []OtherTypeMetric {
	cutoff := MedianOtherRate(otherRows)

	out := make([]OtherTypeMetric, 0)
	for _, r := range otherRows {
		if r.Total >= MinHighCancellationVolume && r.LocalRatePct > cutoff {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LocalRatePct > out[j].LocalRatePct
	})
	return out
}

// MedianOtherRate exposes the cutoff HighCancellationSubset used.
func MedianOtherRate(otherRows []OtherTypeMetric) float64 {
	rates := make([]float64, len(otherRows))
	for i, r := range otherRows {
		rates[i] = r.LocalRatePct
	}
	return median(rates)
}

// TopOther returns at most n leading rows.
func TopOther(rows []OtherTypeMetric, n int) []OtherTypeMetric {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
