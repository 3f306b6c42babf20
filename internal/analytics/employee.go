package analytics

import (
	"sort"
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

// EmployeeDistributionRow is one employee's created procedures per category.
// Percentages are shares of that employee's own workload.
type EmployeeDistributionRow struct {
	Employee    string                     `json:"employee"`
	Total       int                        `json:"total"`
	Counts      map[model.Category]int     `json:"counts"`
	Percentages map[model.Category]float64 `json:"percentages"`
}

// EmployeeDistribution is the employee x category pivot behind the heatmap.
type EmployeeDistribution struct {
	Employees  []string                  `json:"employees"`
	Categories []model.Category          `json:"categories"`
	Rows       []EmployeeDistributionRow `json:"rows"`
}

// EmployeeCategoryDistribution pivots records by creator and category. Every
// row carries every category column, zero filled.
func EmployeeCategoryDistribution(records []model.AppointmentRecord) EmployeeDistribution {
	counts := map[string]map[model.Category]int{}
	categorySet := map[model.Category]struct{}{}
	for _, r := range records {
		if r.CreatedBy == "" {
			continue
		}
		byCat, ok := counts[r.CreatedBy]
		if !ok {
			byCat = map[model.Category]int{}
			counts[r.CreatedBy] = byCat
		}
		byCat[r.ProcedureCategory]++
		categorySet[r.ProcedureCategory] = struct{}{}
	}

	dist := EmployeeDistribution{
		Employees:  sortedKeys(counts),
		Categories: make([]model.Category, 0, len(categorySet)),
		Rows:       make([]EmployeeDistributionRow, 0, len(counts)),
	}
	for c := range categorySet {
		dist.Categories = append(dist.Categories, c)
	}
	sort.Slice(dist.Categories, func(i, j int) bool { return dist.Categories[i] < dist.Categories[j] })

	for _, emp := range dist.Employees {
		byCat := counts[emp]
		row := EmployeeDistributionRow{
			Employee:    emp,
			Counts:      make(map[model.Category]int, len(dist.Categories)),
			Percentages: make(map[model.Category]float64, len(dist.Categories)),
		}
		for _, c := range dist.Categories {
			row.Counts[c] = byCat[c]
			row.Total += byCat[c]
		}
		for _, c := range dist.Categories {
			row.Percentages[c] = ratePct(row.Counts[c], row.Total)
		}
		dist.Rows = append(dist.Rows, row)
	}
	return dist
}

// EmployeeVolumeRow is the number of appointments an employee created.
type EmployeeVolumeRow struct {
	Employee string `json:"employee"`
	Total    int    `json:"total"`
}

// EmployeeVolume is sorted ascending by total, so the busiest employees are at the tail.
func EmployeeVolume(records []model.AppointmentRecord) []EmployeeVolumeRow {
	totals := map[string]int{}
	for _, r := range records {
		if r.CreatedBy == "" {
			continue
		}
		totals[r.CreatedBy]++
	}

	rows := make([]EmployeeVolumeRow, 0, len(totals))
	for emp, n := range totals {
		rows = append(rows, EmployeeVolumeRow{Employee: emp, Total: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total < rows[j].Total
		}
		return rows[i].Employee < rows[j].Employee
	})
	return rows
}

// TopVolume returns the last n rows of an ascending volume list.
func TopVolume(rows []EmployeeVolumeRow, n int) []EmployeeVolumeRow {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}

// Employees lists distinct creators, sorted.
func Employees(records []model.AppointmentRecord) []string {
	set := map[string]struct{}{}
	for _, r := range records {
		if r.CreatedBy != "" {
			set[r.CreatedBy] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// CategoryCount is a value count of one category.
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
}

// CategoryLocalCancellation is a per-category cancellation rate within one
// employee's own appointments.
type CategoryLocalCancellation struct {
	Category     model.Category `json:"category"`
	Total        int            `json:"total"`
	Cancelled    int            `json:"cancelled"`
	LocalRatePct float64        `json:"local_rate_pct"`
}

// ScheduledProcedure is a row of the "procedures scheduled by" table.
type ScheduledProcedure struct {
	AppointmentDate   *time.Time     `json:"appointment_date"`
	ProcedureCategory model.Category `json:"procedure_category"`
	Status            string         `json:"status"`
}

// EmployeeDetail summarises the appointments one employee created. Every
// rate here is local: the denominator is the employee's own total.
type EmployeeDetail struct {
	Employee               string                      `json:"employee"`
	Total                  int                         `json:"total"`
	Cancelled              int                         `json:"cancelled"`
	LocalRatePct           float64                     `json:"local_rate_pct"`
	CategoryDistribution   []CategoryCount             `json:"category_distribution"`
	CancellationByCategory []CategoryLocalCancellation `json:"cancellation_by_category"`
	Procedures             []ScheduledProcedure        `json:"procedures"`
}

func EmployeeDetailFor(records []model.AppointmentRecord, employee string) EmployeeDetail {
	detail := EmployeeDetail{
		Employee:               employee,
		CategoryDistribution:   []CategoryCount{},
		CancellationByCategory: []CategoryLocalCancellation{},
		Procedures:             []ScheduledProcedure{},
	}

	type tally struct{ total, cancelled int }
	byCat := map[model.Category]*tally{}
	for _, r := range records {
		if r.CreatedBy != employee {
			continue
		}
		detail.Total++
		t, ok := byCat[r.ProcedureCategory]
		if !ok {
			t = &tally{}
			byCat[r.ProcedureCategory] = t
		}
		t.total++
		if r.IsCancelled() {
			detail.Cancelled++
			t.cancelled++
		}
		detail.Procedures = append(detail.Procedures, ScheduledProcedure{
			AppointmentDate:   r.AppointmentDate,
			ProcedureCategory: r.ProcedureCategory,
			Status:            r.Status,
		})
	}
	detail.LocalRatePct = round1(ratePct(detail.Cancelled, detail.Total))

	for c, t := range byCat {
		detail.CategoryDistribution = append(detail.CategoryDistribution, CategoryCount{Category: c, Count: t.total})
		detail.CancellationByCategory = append(detail.CancellationByCategory, CategoryLocalCancellation{
			Category:     c,
			Total:        t.total,
			Cancelled:    t.cancelled,
			LocalRatePct: round1(ratePct(t.cancelled, t.total)),
		})
	}
	sort.Slice(detail.CategoryDistribution, func(i, j int) bool {
		a, b := detail.CategoryDistribution[i], detail.CategoryDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	sort.Slice(detail.CancellationByCategory, func(i, j int) bool {
		return detail.CancellationByCategory[i].Category < detail.CancellationByCategory[j].Category
	})
	return detail
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
