// Package loader reads the clinic workbook into a normalized dataset.
package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/clinic-dashboard/internal/classifier"
	"github.com/jwalitptl/clinic-dashboard/internal/config"
	"github.com/jwalitptl/clinic-dashboard/internal/model"
	"github.com/jwalitptl/clinic-dashboard/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

// Cancel/no-show sheet headers, in sheet order.
const (
	ColApptDate     = "Appt Date"
	ColType         = "Type"
	ColStatus       = "Status"
	ColCreatedBy    = "Created By"
	ColCreatedDate  = "Created Date/Time"
	ColCanceledBy   = "Canceled By"
	ColCanceledDate = "Canceled Date/Time"
)

var requiredColumns = []string{
	ColApptDate, ColType, ColStatus, ColCreatedBy, ColCreatedDate, ColCanceledBy, ColCanceledDate,
}

// DatasetLoader produces a dataset for one workbook source.
type DatasetLoader interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Source() string
}

// Loader reads the workbook from disk on every call.
type Loader struct {
	cfg     config.DataConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

func NewLoader(cfg config.DataConfig, log *logger.Logger, m *metrics.Metrics) *Loader {
	if cfg.CancelSheet == "" {
		cfg.CancelSheet = config.DefaultCancelSheet
	}
	if cfg.PatientsSeenSheet == "" {
		cfg.PatientsSeenSheet = config.DefaultPatientsSeenSheet
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		cfg:     cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "loader", "path": cfg.Path}),
		metrics: m,
		now:     time.Now,
	}
}

// WithBreaker stops rereading a workbook that keeps failing until cb's
// timeout has passed.
func (l *Loader) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Loader {
	l.breaker = cb
	return l
}

// Invalidate lets the next Load reach the file even if the breaker is open.
func (l *Loader) Invalidate() {
	if l.breaker != nil {
		l.breaker.Reset()
	}
}

func (l *Loader) Source() string {
	return l.cfg.Path
}

// Load returns the dataset. When the primary sheet is unavailable it returns an
// empty dataset together with a DataUnavailable error so callers can degrade.
// A broken Patients Seen sheet only adds a warning and leaves the total at 0.
func (l *Loader) Load(ctx context.Context) (*model.Dataset, error) {
	start := l.now()
	ds, err := l.guardedLoad(ctx)
	if l.metrics != nil {
		l.metrics.WorkbookLoadLatency.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case isContextErr(err):
			result = "cancelled"
		case err != nil:
			result = "error"
		}
		l.metrics.WorkbookLoads.WithLabelValues(result).Inc()
		if err == nil {
			l.metrics.RecordsLoaded.Set(float64(len(ds.Records)))
			l.metrics.ProceduresPerformed.Set(float64(ds.TotalProceduresPerformed))
		}
	}
	return ds, err
}

func (l *Loader) guardedLoad(ctx context.Context) (*model.Dataset, error) {
	if l.breaker == nil {
		return l.load(ctx)
	}

	// A cancelled request says nothing about the workbook and must not trip the breaker.
	if err := ctx.Err(); err != nil {
		return model.EmptyDataset(l.cfg.Path), err
	}

	var ds *model.Dataset
	var ctxErr error
	err := l.breaker.Execute(func() error {
		var loadErr error
		ds, loadErr = l.load(ctx)
		if isContextErr(loadErr) {
			ctxErr = loadErr
			return nil
		}
		return loadErr
	})
	if ctxErr != nil {
		return ds, ctxErr
	}
	if stderrors.Is(err, circuitbreaker.ErrOpen) {
		return model.EmptyDataset(l.cfg.Path), errors.DataUnavailable(
			"workbook reads suspended after repeated failures", err)
	}
	return ds, err
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func (l *Loader) load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return model.EmptyDataset(l.cfg.Path), err
	}

	if _, err := os.Stat(l.cfg.Path); err != nil {
		l.logger.Error(err, "data file not found")
		return model.EmptyDataset(l.cfg.Path), errors.DataUnavailable(
			fmt.Sprintf("data file not found at %s", l.cfg.Path), err)
	}

	f, err := excelize.OpenFile(l.cfg.Path)
	if err != nil {
		l.logger.Error(err, "failed to open workbook")
		return model.EmptyDataset(l.cfg.Path), errors.DataUnavailable("failed to open data file", err)
	}
	defer func() { _ = f.Close() }()

	records, skipped, err := l.readAppointments(f)
	if err != nil {
		l.logger.Error(err, "failed to load cancellation data")
		return model.EmptyDataset(l.cfg.Path), err
	}

	if err := ctx.Err(); err != nil {
		return model.EmptyDataset(l.cfg.Path), err
	}

	ds := &model.Dataset{
		Records:  records,
		Source:   l.cfg.Path,
		LoadedAt: l.now(),
	}

	total, err := l.readTotalProcedures(f)
	if err != nil {
		warn := errors.NewSecondarySheet(l.cfg.PatientsSeenSheet, err)
		l.logger.Warn(warn.Error())
		ds.Warnings = append(ds.Warnings, warn.Error())
		if l.metrics != nil {
			l.metrics.SecondarySheetErrors.Inc()
		}
		total = 0
	}
	ds.TotalProceduresPerformed = total

	l.logger.Info("workbook loaded",
		"records", len(records),
		"skipped_rows", skipped,
		"total_procedures", total,
	)
	return ds, nil
}

func (l *Loader) readAppointments(f *excelize.File) ([]model.AppointmentRecord, int, error) {
	sheet := l.cfg.CancelSheet
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, errors.DataUnavailable(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	if len(rows) == 0 {
		return nil, 0, errors.DataUnavailable(fmt.Sprintf("sheet %q is empty", sheet), nil)
	}

	headerIndex := map[string]int{}
	for i, header := range rows[0] {
		name := strings.TrimSpace(header)
		if _, seen := headerIndex[name]; !seen {
			headerIndex[name] = i
		}
	}

	var missing []string
	idx := make(map[string]int, len(requiredColumns))
	for _, col := range requiredColumns {
		i, ok := headerIndex[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, 0, errors.DataUnavailable(
			fmt.Sprintf("sheet %q is missing required columns: %s", sheet, strings.Join(missing, ", ")), nil)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	records := make([]model.AppointmentRecord, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		if isBlankSelection(row, idx) {
			skipped++
			continue
		}
		raw := model.RawAppointment{
			AppointmentDate: parseCellTime(cellValue(row, idx[ColApptDate]), date1904),
			Type:            cellValue(row, idx[ColType]),
			Status:          cellValue(row, idx[ColStatus]),
			CreatedBy:       cellValue(row, idx[ColCreatedBy]),
			CreatedDate:     parseCellTime(cellValue(row, idx[ColCreatedDate]), date1904),
			CanceledBy:      cellValue(row, idx[ColCanceledBy]),
			CanceledDate:    parseCellTime(cellValue(row, idx[ColCanceledDate]), date1904),
		}
		records = append(records, model.NewAppointmentRecord(raw, classifier.Classify))
	}

	return records, skipped, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankSelection(row []string, idx map[string]int) bool {
	for _, i := range idx {
		if cellValue(row, i) != "" {
			return false
		}
	}
	return true
}
