package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jwalitptl/clinic-dashboard/internal/analytics"
	"github.com/jwalitptl/clinic-dashboard/internal/classifier"
	"github.com/jwalitptl/clinic-dashboard/internal/loader"
	"github.com/jwalitptl/clinic-dashboard/internal/model"
	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

const (
	DefaultTop        = 15
	DefaultVolumeTop  = 10
	OtherTableSize    = 20
	OtherChartSize    = 10
	viewSummary       = "summary"
	viewOverview      = "overview"
	viewEmployees     = "employees"
	viewEmployee      = "employee_detail"
	viewTiming        = "timing"
	viewCancellations = "cancellations"
	viewCanceler      = "cancellation_detail"
)

// Invalidator is implemented by loaders that memoize the dataset.
type Invalidator interface {
	Invalidate()
}

// Query carries one request's filter state. A nil Range means "use the view's default".
type Query struct {
	Range    *analytics.DateRange
	Employee string
	Top      int
}

// top returns q.Top, or def when the request left it unset.
func (q Query) top(def int) int {
	if q.Top <= 0 {
		return def
	}
	return q.Top
}

// Service runs load, filter and aggregate for each dashboard view. It holds no
// per-request state; the dataset is shared read-only.
type Service struct {
	loader  loader.DatasetLoader
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(l loader.DatasetLoader, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		loader:  l,
		logger:  log.WithFields(map[string]interface{}{"component": "dashboard"}),
		metrics: m,
	}
}

// dataset loads the workbook. A DataUnavailable error comes back with an empty
// dataset so views can still be built; any other error is fatal for the view.
func (s *Service) dataset(ctx context.Context) (*model.Dataset, error) {
	ds, err := s.loader.Load(ctx)
	if err == nil {
		return ds, nil
	}
	s.logger.Error(err, "dataset unavailable", "source", s.loader.Source())
	if errors.IsDataUnavailable(err) {
		if ds == nil {
			ds = model.EmptyDataset(s.loader.Source())
		}
		return ds, err
	}
	return nil, fmt.Errorf("failed to load dataset: %w", err)
}

// workingSet applies the query range. Without one, boundedDefault selects the
// dataset's own date bounds, which drops records that have no appointment date.
func workingSet(ds *model.Dataset, q Query, boundedDefault bool) ([]model.AppointmentRecord, *analytics.DateRange) {
	rng := q.Range
	if rng == nil && boundedDefault {
		bounds, ok := analytics.DateBounds(ds.Records)
		if !ok {
			return []model.AppointmentRecord{}, nil
		}
		rng = &bounds
	}
	return analytics.Filter{Range: rng}.Apply(ds.Records), rng
}

func (s *Service) observe(view string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.IsDataUnavailable(err):
		result = "unavailable"
	case err != nil:
		result = "error"
	}
	s.metrics.ViewRequests.WithLabelValues(view, result).Inc()
	s.metrics.ViewLatency.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

// Meta is embedded in every view.
type Meta struct {
	Range    *analytics.DateRange `json:"range,omitempty"`
	Warnings []string             `json:"-"`
}

type SummaryView struct {
	Meta
	Source          string               `json:"source"`
	LoadedAt        time.Time            `json:"loaded_at"`
	Records         int                  `json:"records"`
	TotalProcedures int                  `json:"total_procedures"`
	TotalCancelled  int                  `json:"total_cancelled"`
	Bounds          *analytics.DateRange `json:"bounds,omitempty"`
	Categories      []model.Category     `json:"categories"`
}

func (s *Service) Summary(ctx context.Context) (view *SummaryView, err error) {
	defer func(start time.Time) { s.observe(viewSummary, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	view = &SummaryView{
		Meta:            Meta{Warnings: ds.Warnings},
		Source:          ds.Source,
		LoadedAt:        ds.LoadedAt,
		Records:         len(ds.Records),
		TotalProcedures: ds.TotalProceduresPerformed,
		TotalCancelled:  analytics.TotalCancelled(ds.Records),
		Categories:      classifier.Categories(),
	}
	if bounds, ok := analytics.DateBounds(ds.Records); ok {
		view.Bounds = &bounds
	}
	return view, err
}

// OverviewView backs the procedure cancellation tab. Category rates are clinic
// wide; the OTHER breakdown rates are local to each raw type.
type OverviewView struct {
	Meta
	TotalProcedures  int                              `json:"total_procedures"`
	TotalCancelled   int                              `json:"total_cancelled"`
	Categories       []analytics.CategoryCancellation `json:"categories"`
	Chart            []analytics.CategoryCancellation `json:"chart"`
	Weekly           []analytics.WeeklyCancellation   `json:"weekly"`
	Other            []analytics.OtherTypeMetric      `json:"other"`
	OtherChart       []analytics.OtherTypeMetric      `json:"other_chart"`
	OtherUniqueTypes int                              `json:"other_unique_types"`
	OtherMedianRate  float64                          `json:"other_median_rate_pct"`
	HighCancellation []analytics.OtherTypeMetric      `json:"high_cancellation"`
}

func (s *Service) Overview(ctx context.Context, q Query) (view *OverviewView, err error) {
	defer func(start time.Time) { s.observe(viewOverview, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, true)

	categories := analytics.CancellationByCategory(records, ds.TotalProceduresPerformed)
	other := analytics.OtherCategoryBreakdown(records)
	view = &OverviewView{
		Meta:             Meta{Range: rng, Warnings: ds.Warnings},
		TotalProcedures:  ds.TotalProceduresPerformed,
		TotalCancelled:   analytics.TotalCancelled(records),
		Categories:       categories,
		Chart:            analytics.WithoutOther(categories),
		Weekly:           analytics.WeeklyCancellationTrend(records),
		Other:            analytics.TopOther(other, OtherTableSize),
		OtherChart:       analytics.TopOther(other, OtherChartSize),
		OtherUniqueTypes: len(other),
		OtherMedianRate:  analytics.MedianOtherRate(other),
		HighCancellation: analytics.HighCancellationSubset(other),
	}
	return view, err
}

type EmployeesView struct {
	Meta
	Distribution analytics.EmployeeDistribution `json:"distribution"`
	Volume       []analytics.EmployeeVolumeRow  `json:"volume"`
	Employees    []string                       `json:"employees"`
}

func (s *Service) Employees(ctx context.Context, q Query) (view *EmployeesView, err error) {
	defer func(start time.Time) { s.observe(viewEmployees, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, true)
	view = &EmployeesView{
		Meta:         Meta{Range: rng, Warnings: ds.Warnings},
		Distribution: analytics.EmployeeCategoryDistribution(records),
		Volume:       analytics.TopVolume(analytics.EmployeeVolume(records), q.top(DefaultVolumeTop)),
		Employees:    analytics.Employees(records),
	}
	return view, err
}

type EmployeeDetailView struct {
	Meta
	Detail analytics.EmployeeDetail `json:"detail"`
}

// EmployeeDetail fails with NotFound when no record in the dataset was created
// by q.Employee. A known employee with nothing in range gets an empty detail.
func (s *Service) EmployeeDetail(ctx context.Context, q Query) (view *EmployeeDetailView, err error) {
	defer func(start time.Time) { s.observe(viewEmployee, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, true)
	view = &EmployeeDetailView{
		Meta:   Meta{Range: rng, Warnings: ds.Warnings},
		Detail: analytics.EmployeeDetailFor(records, q.Employee),
	}
	if err != nil {
		return view, err
	}
	if !slices.Contains(analytics.Employees(ds.Records), q.Employee) {
		return nil, errors.NotFound(fmt.Sprintf("employee %q", q.Employee), nil)
	}
	return view, nil
}

type TimingView struct {
	Meta
	Summary analytics.TimingSummary `json:"summary"`
}

// Timing covers the whole dataset unless a range is given.
func (s *Service) Timing(ctx context.Context, q Query) (view *TimingView, err error) {
	defer func(start time.Time) { s.observe(viewTiming, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, false)
	view = &TimingView{
		Meta:    Meta{Range: rng, Warnings: ds.Warnings},
		Summary: analytics.TimeToCancellation(records),
	}
	return view, err
}

type CancellationsView struct {
	Meta
	Rows      []analytics.EmployeeCancellationRow `json:"rows"`
	Stats     analytics.CancellationStats         `json:"stats"`
	Cancelers []string                            `json:"cancelers"`
}

func (s *Service) Cancellations(ctx context.Context, q Query) (view *CancellationsView, err error) {
	defer func(start time.Time) { s.observe(viewCancellations, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, true)
	rows := analytics.EmployeeCancellations(records)
	view = &CancellationsView{
		Meta:      Meta{Range: rng, Warnings: ds.Warnings},
		Rows:      analytics.TopCancellers(rows, q.top(DefaultTop)),
		Stats:     analytics.EmployeeCancellationStats(rows),
		Cancelers: analytics.Cancelers(rows),
	}
	return view, err
}

type CancellationDetailView struct {
	Meta
	Detail analytics.CancellationDetail `json:"detail"`
}

func (s *Service) CancellationDetail(ctx context.Context, q Query) (view *CancellationDetailView, err error) {
	defer func(start time.Time) { s.observe(viewCanceler, start, err) }(time.Now())

	ds, err := s.dataset(ctx)
	if ds == nil {
		return nil, err
	}
	records, rng := workingSet(ds, q, true)
	view = &CancellationDetailView{
		Meta:   Meta{Range: rng, Warnings: ds.Warnings},
		Detail: analytics.EmployeeCancellationDetail(records, q.Employee),
	}
	if err != nil {
		return view, err
	}
	if !slices.Contains(analytics.Cancelers(analytics.EmployeeCancellations(ds.Records)), q.Employee) {
		return nil, errors.NotFound(fmt.Sprintf("canceler %q", q.Employee), nil)
	}
	return view, nil
}

// Reload drops any memoized dataset and reads the workbook again.
func (s *Service) Reload(ctx context.Context) (*SummaryView, error) {
	if inv, ok := s.loader.(Invalidator); ok {
		inv.Invalidate()
	}
	s.logger.Info("dataset reload requested", "source", s.loader.Source())
	return s.Summary(ctx)
}

// Ready reports whether the primary sheet can currently be loaded.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.loader.Load(ctx)
	return err
}
