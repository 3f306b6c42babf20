package dashboard

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard/internal/analytics"
	"github.com/jwalitptl/clinic-dashboard/internal/model"
	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

type fakeLoader struct {
	ds          *model.Dataset
	err         error
	invalidated int
}

func (f *fakeLoader) Load(ctx context.Context) (*model.Dataset, error) {
	return f.ds, f.err
}

func (f *fakeLoader) Source() string { return "dashboard_data.xlsx" }

func (f *fakeLoader) Invalidate() { f.invalidated++ }

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func record(appt *time.Time, typ string, category model.Category, status, createdBy string, created *time.Time, canceledBy string, canceled *time.Time) model.AppointmentRecord {
	return model.AppointmentRecord{
		AppointmentDate:   appt,
		Type:              typ,
		Status:            status,
		CreatedBy:         createdBy,
		CreatedDate:       created,
		CanceledBy:        canceledBy,
		CanceledDate:      canceled,
		ProcedureCategory: category,
	}
}

// fixture: two dated cancellations inside Jan 15-22 and one undated one.
func fixture() *model.Dataset {
	return &model.Dataset{
		Records: []model.AppointmentRecord{
			record(ts("2024-01-15 08:00"), "MRI Brain", model.CategoryMRI, model.StatusCancelled, "A", ts("2024-01-10 09:00"), "X", ts("2024-01-10 09:05")),
			record(ts("2024-01-16 08:00"), "CT Head", model.CategoryCT, "Scheduled", "A", ts("2024-01-10 10:00"), "", nil),
			record(ts("2024-01-22 08:00"), "Consult", model.CategoryOther, model.StatusCancelled, "B", ts("2024-01-20 00:00"), "Y", ts("2024-01-21 00:00")),
			record(nil, "MRI Knee", model.CategoryMRI, model.StatusCancelled, "C", ts("2024-01-05 10:00"), "X", ts("2024-01-05 12:00")),
		},
		TotalProceduresPerformed: 10,
		Source:                   "dashboard_data.xlsx",
	}
}

func newTestService(t *testing.T, l *fakeLoader) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewService(l, nil, metrics.NewMetrics(reg, "test", "data")), reg
}

func viewCount(t *testing.T, reg *prometheus.Registry, view, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "test_data_view_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["view"] == view && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func dateRange(start, end string) *analytics.DateRange {
	return &analytics.DateRange{Start: *ts(start + " 00:00"), End: *ts(end + " 00:00")}
}

func TestSummary(t *testing.T) {
	svc, reg := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, view.Records)
	assert.Equal(t, 10, view.TotalProcedures)
	assert.Equal(t, 3, view.TotalCancelled)
	require.NotNil(t, view.Bounds)
	assert.Equal(t, "2024-01-15", view.Bounds.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-01-22", view.Bounds.End.Format("2006-01-02"))
	assert.Contains(t, view.Categories, model.CategoryOther)
	assert.Equal(t, 1.0, viewCount(t, reg, viewSummary, "ok"))
}

func TestOverviewDefaultsToDateBounds(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.Overview(context.Background(), Query{})

	require.NoError(t, err)
	require.NotNil(t, view.Range)
	assert.Equal(t, 10, view.TotalProcedures)
	assert.Equal(t, 2, view.TotalCancelled, "the undated cancellation is outside the default range")

	rates := map[model.Category]float64{}
	for _, c := range view.Categories {
		rates[c.Category] = c.ClinicWideRatePct
	}
	assert.Equal(t, map[model.Category]float64{
		model.CategoryMRI:   10.0,
		model.CategoryOther: 10.0,
		model.CategoryCT:    0.0,
	}, rates)

	for _, c := range view.Chart {
		assert.NotEqual(t, model.CategoryOther, c.Category)
	}
	require.Len(t, view.Other, 1)
	assert.Equal(t, "Consult", view.Other[0].Type)
	assert.Equal(t, 1, view.OtherUniqueTypes)
	assert.Len(t, view.Weekly, 2)
}

func TestOverviewExplicitRange(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})
	rng := dateRange("2024-01-22", "2024-01-22")

	view, err := svc.Overview(context.Background(), Query{Range: rng})

	require.NoError(t, err)
	assert.Equal(t, rng, view.Range)
	assert.Equal(t, 1, view.TotalCancelled)
	assert.Equal(t, 10, view.TotalProcedures, "the procedures total is not range filtered")
}

func TestEmployees(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.Employees(context.Background(), Query{Top: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, view.Employees)
	require.Len(t, view.Volume, 1)
	assert.Equal(t, analytics.EmployeeVolumeRow{Employee: "A", Total: 2}, view.Volume[0])
	assert.Equal(t, []string{"A", "B"}, view.Distribution.Employees)
}

func TestEmployeeDetail(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.EmployeeDetail(context.Background(), Query{Employee: "A"})

	require.NoError(t, err)
	assert.Equal(t, "A", view.Detail.Employee)
	assert.Equal(t, 2, view.Detail.Total)
	assert.Equal(t, 1, view.Detail.Cancelled)
	assert.Equal(t, 50.0, view.Detail.LocalRatePct)
}

func TestEmployeeDetailKnownButOutOfRange(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.EmployeeDetail(context.Background(), Query{Employee: "C"})

	require.NoError(t, err)
	assert.Zero(t, view.Detail.Total)
	assert.Empty(t, view.Detail.Procedures)
}

func TestEmployeeDetailUnknown(t *testing.T) {
	svc, reg := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.EmployeeDetail(context.Background(), Query{Employee: "Nobody"})

	assert.Nil(t, view)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
	assert.Equal(t, 1.0, viewCount(t, reg, viewEmployee, "error"))
}

func TestTimingCoversWholeDatasetByDefault(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.Timing(context.Background(), Query{})

	require.NoError(t, err)
	assert.Nil(t, view.Range)
	assert.Equal(t, 3, view.Summary.Samples)
	assert.Equal(t, 24.0, view.Summary.MaxHours)

	ranged, err := svc.Timing(context.Background(), Query{Range: dateRange("2024-01-15", "2024-01-15")})
	require.NoError(t, err)
	assert.Equal(t, 1, ranged.Summary.Samples)
}

func TestCancellations(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.Cancellations(context.Background(), Query{})

	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, view.Cancelers)
	assert.Equal(t, 2, view.Stats.Total)
	assert.Equal(t, 1, view.Stats.Max)
	assert.Len(t, view.Rows, 2)
}

func TestCancellationDetail(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})

	view, err := svc.CancellationDetail(context.Background(), Query{Employee: "X"})

	require.NoError(t, err)
	require.Len(t, view.Detail.Appointments, 1)
	assert.Equal(t, "MRI Brain", view.Detail.Appointments[0].Type)

	_, err = svc.CancellationDetail(context.Background(), Query{Employee: "A"})
	assert.True(t, errors.HasCode(err, errors.ErrNotFound), "A created but never cancelled")
}

func TestViewsDegradeWhenDataUnavailable(t *testing.T) {
	l := &fakeLoader{
		ds:  model.EmptyDataset("dashboard_data.xlsx"),
		err: errors.DataUnavailable("data file not found", nil),
	}
	svc, reg := newTestService(t, l)
	ctx := context.Background()

	overview, err := svc.Overview(ctx, Query{})
	assert.True(t, errors.IsDataUnavailable(err))
	require.NotNil(t, overview)
	assert.Nil(t, overview.Range)
	assert.Empty(t, overview.Categories)
	assert.Zero(t, overview.TotalProcedures)

	detail, err := svc.EmployeeDetail(ctx, Query{Employee: "A"})
	assert.True(t, errors.IsDataUnavailable(err), "unavailable wins over not found")
	require.NotNil(t, detail)

	timing, err := svc.Timing(ctx, Query{})
	assert.True(t, errors.IsDataUnavailable(err))
	assert.Empty(t, timing.Summary.Buckets)

	assert.Equal(t, 1.0, viewCount(t, reg, viewOverview, "unavailable"))
}

func TestViewsFailOnUnexpectedLoaderError(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{err: stderrors.New("disk on fire")})

	view, err := svc.Cancellations(context.Background(), Query{})

	assert.Nil(t, view)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.False(t, errors.IsDataUnavailable(err))
}

func TestWarningsPassThrough(t *testing.T) {
	ds := fixture()
	ds.Warnings = []string{"could not process Patients Seen Report"}
	svc, _ := newTestService(t, &fakeLoader{ds: ds})

	view, err := svc.Overview(context.Background(), Query{})

	require.NoError(t, err)
	assert.Equal(t, ds.Warnings, view.Warnings)
}

func TestReloadInvalidates(t *testing.T) {
	l := &fakeLoader{ds: fixture()}
	svc, _ := newTestService(t, l)

	view, err := svc.Reload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, l.invalidated)
	assert.Equal(t, 4, view.Records)
}

func TestReady(t *testing.T) {
	svc, _ := newTestService(t, &fakeLoader{ds: fixture()})
	assert.NoError(t, svc.Ready(context.Background()))

	down, _ := newTestService(t, &fakeLoader{err: errors.DataUnavailable("gone", nil)})
	assert.True(t, errors.IsDataUnavailable(down.Ready(context.Background())))
}

func TestTopDefaultsPerView(t *testing.T) {
	ds := &model.Dataset{TotalProceduresPerformed: 100}
	day := ts("2024-01-15 08:00")
	for i := 0; i < 20; i++ {
		name := string(rune('A' + i))
		ds.Records = append(ds.Records,
			record(day, "MRI Brain", model.CategoryMRI, model.StatusCancelled, name, nil, name, nil))
	}
	svc, _ := newTestService(t, &fakeLoader{ds: ds})

	employees, err := svc.Employees(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, employees.Volume, DefaultVolumeTop)

	cancellations, err := svc.Cancellations(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, cancellations.Rows, DefaultTop)

	explicit, err := svc.Employees(context.Background(), Query{Top: 15})
	require.NoError(t, err)
	assert.Len(t, explicit.Volume, 15)
}
