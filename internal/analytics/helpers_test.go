package analytics

import (
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

type rec struct {
	date       string
	typ        string
	category   model.Category
	cancelled  bool
	createdBy  string
	canceledBy string
}

func (r rec) build() model.AppointmentRecord {
	out := model.AppointmentRecord{
		Type:              r.typ,
		Status:            "Scheduled",
		CreatedBy:         r.createdBy,
		CanceledBy:        r.canceledBy,
		ProcedureCategory: r.category,
	}
	if r.date != "" {
		out.AppointmentDate = day(r.date)
	}
	if r.cancelled {
		out.Status = model.StatusCancelled
	}
	if out.ProcedureCategory == "" {
		out.ProcedureCategory = model.CategoryOther
	}
	return out
}

func records(rs ...rec) []model.AppointmentRecord {
	out := make([]model.AppointmentRecord, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.build())
	}
	return out
}

func repeat(n int, r rec) []rec {
	out := make([]rec, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func concat(groups ...[]rec) []rec {
	var out []rec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
