package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

var usdCustomer = domain.BucketKey{Party: domain.Customer(7), BaseCurrency: "USD"}

func TestObserveRebuild(t *testing.T) {
	m := NewRebuildMetrics(prometheus.NewRegistry())
	result := &reconcile.RebuildResult{
		Bucket:       usdCustomer,
		Matches:      make([]domain.Match, 3),
		OpenAdvances: 1,
	}

	m.ObserveRebuild(usdCustomer, result, 20*time.Millisecond, nil)
	m.ObserveRebuild(usdCustomer, result, 10*time.Millisecond, nil)
	m.ObserveRebuild(usdCustomer, nil, time.Millisecond, errors.New("deadlock detected"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("customer", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("customer", "failure")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.matches.WithLabelValues("customer")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewRebuildMetrics(reg)
	m.ObserveRebuild(usdCustomer, &reconcile.RebuildResult{Bucket: usdCustomer}, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `fxledger_bucket_rebuilds_total{outcome="success",party_type="customer"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
