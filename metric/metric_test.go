package metric

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidation(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation("piv", 2, 1)
	m.RecordValidation("piv", 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationChecks.WithLabelValues("piv", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationChecks.WithLabelValues("piv", "clean")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationIssues.WithLabelValues("piv", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationIssues.WithLabelValues("piv", "warning")))
}

func TestRecordStoreOperationAndDownload(t *testing.T) {
	m := NewMetrics()
	m.RecordStoreOperation("memory", "ingest", nil)
	m.RecordStoreOperation("memory", "ingest", io.EOF)
	m.RecordDownload("ok", 1024)
	m.RecordDownload("cached", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("memory", "ingest", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("memory", "ingest", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downloads.WithLabelValues("ok")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.DownloadBytes))
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Metrics())

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "semcat_test_counter",
		Help: "test counter",
	})
	require.NoError(t, r.Register("test_counter", counter))
	assert.Error(t, r.Register("test_counter", counter))

	assert.True(t, r.Unregister("test_counter"))
	assert.False(t, r.Unregister("test_counter"))
}

func TestServerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Metrics().RecordDownload("ok", 10)

	// High port to keep clear of anything on the default 9090.
	srv := NewServer(19151, "", r)
	require.NoError(t, srv.Start())
	defer srv.Stop(context.Background())

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://127.0.0.1:19151/metrics")
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "semcat_catalog_downloads_total"))
}
