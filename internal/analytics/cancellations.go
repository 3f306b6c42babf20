package analytics

import (
	"sort"
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// EmployeeCancellationRow counts the cancellations one employee performed.
type EmployeeCancellationRow struct {
	Employee                  string `json:"employee"`
	Cancellations             int    `json:"cancellations"`
	UniqueProcedureCategories int    `json:"unique_procedure_categories"`
}

// EmployeeCancellations groups cancelled records by who cancelled them,
// ascending by count so the most active cancellers are at the tail.
func EmployeeCancellations(records []model.AppointmentRecord) []EmployeeCancellationRow {
	counts := map[string]int{}
	categories := map[string]map[model.Category]struct{}{}
	for _, r := range records {
		if !r.IsCancelled() || r.CanceledBy == "" {
			continue
		}
		counts[r.CanceledBy]++
		set, ok := categories[r.CanceledBy]
		if !ok {
			set = map[model.Category]struct{}{}
			categories[r.CanceledBy] = set
		}
		set[r.ProcedureCategory] = struct{}{}
	}

	rows := make([]EmployeeCancellationRow, 0, len(counts))
	for emp, n := range counts {
		rows = append(rows, EmployeeCancellationRow{
			Employee:                  emp,
			Cancellations:             n,
			UniqueProcedureCategories: len(categories[emp]),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cancellations != rows[j].Cancellations {
			return rows[i].Cancellations < rows[j].Cancellations
		}
		return rows[i].Employee < rows[j].Employee
	})
	return rows
}

// TopCancellers returns the last n rows of an ascending cancellation list.
func TopCancellers(rows []EmployeeCancellationRow, n int) []EmployeeCancellationRow {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}

// CancellationStats summarises EmployeeCancellations rows.
type CancellationStats struct {
	Total              int     `json:"total"`
	AveragePerEmployee float64 `json:"average_per_employee"`
	Max                int     `json:"max"`
}

func EmployeeCancellationStats(rows []EmployeeCancellationRow) CancellationStats {
	var stats CancellationStats
	for _, r := range rows {
		stats.Total += r.Cancellations
		if r.Cancellations > stats.Max {
			stats.Max = r.Cancellations
		}
	}
	if len(rows) > 0 {
		stats.AveragePerEmployee = float64(stats.Total) / float64(len(rows))
	}
	return stats
}

// Cancelers lists the employees present in rows, sorted by name.
func Cancelers(rows []EmployeeCancellationRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Employee)
	}
	sort.Strings(out)
	return out
}

type CancelledAppointment struct {
	AppointmentDate *time.Time `json:"appointment_date"`
	Type            string     `json:"type"`
	CreatedDate     *time.Time `json:"created_date"`
	CanceledDate    *time.Time `json:"canceled_date"`
}

// TypeCount is a value count of a raw procedure type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type CancellationDetail struct {
	Employee         string                 `json:"employee"`
	Appointments     []CancelledAppointment `json:"appointments"`
	TypeDistribution []TypeCount            `json:"type_distribution"`
}

// EmployeeCancellationDetail lists the appointments employee cancelled, newest
// appointment first with undated rows last, and counts them by raw type.
func EmployeeCancellationDetail(records []model.AppointmentRecord, employee string) CancellationDetail {
	detail := CancellationDetail{
		Employee:         employee,
		Appointments:     []CancelledAppointment{},
		TypeDistribution: []TypeCount{},
	}

	types := map[string]int{}
	for _, r := range records {
		if !r.IsCancelled() || r.CanceledBy != employee {
			continue
		}
		detail.Appointments = append(detail.Appointments, CancelledAppointment{
			AppointmentDate: r.AppointmentDate,
			Type:            r.Type,
			CreatedDate:     r.CreatedDate,
			CanceledDate:    r.CanceledDate,
		})
		if r.Type != "" {
			types[r.Type]++
		}
	}

	sort.SliceStable(detail.Appointments, func(i, j int) bool {
		a, b := detail.Appointments[i].AppointmentDate, detail.Appointments[j].AppointmentDate
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})

	for typ, n := range types {
		detail.TypeDistribution = append(detail.TypeDistribution, TypeCount{Type: typ, Count: n})
	}
	sort.Slice(detail.TypeDistribution, func(i, j int) bool {
		a, b := detail.TypeDistribution[i], detail.TypeDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})
	return detail
}
