package loader

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/clinic-dashboard/internal/config"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

var cancelHeader = []interface{}{
	"Appt Date", "Type", "Status", "Created By", "Created Date/Time", "Canceled By", "Canceled Date/Time",
}

type sheet struct {
	name string
	rows [][]interface{}
}

// writeWorkbook saves sheets, in order, to a new workbook under t.TempDir().
func writeWorkbook(t *testing.T, sheets ...sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(s.name, cell, &values))
		}
	}

	path := filepath.Join(t.TempDir(), "dashboard_data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func cancelSheet(rows ...[]interface{}) sheet {
	return sheet{name: config.DefaultCancelSheet, rows: append([][]interface{}{cancelHeader}, rows...)}
}

func seenSheet(rows ...[]interface{}) sheet {
	return sheet{name: config.DefaultPatientsSeenSheet, rows: rows}
}

func dataConfig(path string) config.DataConfig {
	return config.DataConfig{
		Path:              path,
		CancelSheet:       config.DefaultCancelSheet,
		PatientsSeenSheet: config.DefaultPatientsSeenSheet,
	}
}

func newTestMetrics(t *testing.T) (*metrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return metrics.NewMetrics(reg, "test", "data"), reg
}

// metricValue returns the first sample of a counter or gauge family.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
		return total
	}
	return 0
}
