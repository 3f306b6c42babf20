package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
)

type countingLoader struct {
	mu     sync.Mutex
	path   string
	calls  int
	err    error
	resets int
	onLoad func()
}

func (c *countingLoader) Load(ctx context.Context) (*model.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.onLoad != nil {
		c.onLoad()
	}
	if c.err != nil {
		return model.EmptyDataset(c.path), c.err
	}
	return &model.Dataset{
		Records:                  []model.AppointmentRecord{{Type: "MRI"}},
		TotalProceduresPerformed: c.calls,
		Source:                   c.path,
	}, nil
}

func (c *countingLoader) Source() string { return c.path }

func (c *countingLoader) Invalidate() { c.resets++ }

func (c *countingLoader) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func tempSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	return path
}

func TestCachedLoaderReusesDataset(t *testing.T) {
	next := &countingLoader{path: tempSource(t)}
	m, reg := newTestMetrics(t)
	c := NewCachedLoader(next, DefaultCacheConfig(), m)

	first, err := c.Load(context.Background())
	require.NoError(t, err)
	second, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, next.Calls())
	assert.Equal(t, 1.0, metricValue(t, reg, "test_data_workbook_cache_misses_total"))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_data_workbook_cache_hits_total"))
}

func TestCachedLoaderDetectsFileChange(t *testing.T) {
	path := tempSource(t)
	next := &countingLoader{path: path}
	c := NewCachedLoader(next, DefaultCacheConfig(), nil)

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	ds, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, next.Calls())
	assert.Equal(t, 2, ds.TotalProceduresPerformed)

	require.NoError(t, os.WriteFile(path, []byte("version two"), 0o600))
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, next.Calls())
}

func TestCachedLoaderDoesNotCacheFailures(t *testing.T) {
	next := &countingLoader{path: tempSource(t), err: errors.DataUnavailable("boom", nil)}
	c := NewCachedLoader(next, DefaultCacheConfig(), nil)

	ds, err := c.Load(context.Background())
	assert.True(t, errors.IsDataUnavailable(err))
	assert.Empty(t, ds.Records)

	_, _ = c.Load(context.Background())
	assert.Equal(t, 2, next.Calls())
}

func TestCachedLoaderInvalidate(t *testing.T) {
	next := &countingLoader{path: tempSource(t)}
	c := NewCachedLoader(next, DefaultCacheConfig(), nil)

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, next.Calls())
	assert.Equal(t, 1, next.resets)
}

func TestCachedLoaderConcurrentLoadsReadOnce(t *testing.T) {
	next := &countingLoader{path: tempSource(t)}
	c := NewCachedLoader(next, DefaultCacheConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, next.Calls())
}

func TestCachedLoaderFileReplacedDuringLoad(t *testing.T) {
	path := tempSource(t)
	next := &countingLoader{path: path}
	next.onLoad = func() {
		if next.calls == 1 {
			later := time.Now().Add(time.Hour)
			require.NoError(t, os.WriteFile(path, []byte("replaced mid read"), 0o600))
			require.NoError(t, os.Chtimes(path, later, later))
		}
	}
	c := NewCachedLoader(next, DefaultCacheConfig(), nil)

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	ds, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, next.Calls(), "dataset read before the replacement is not reused")
	assert.Equal(t, 2, ds.TotalProceduresPerformed)
}
