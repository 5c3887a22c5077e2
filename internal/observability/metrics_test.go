package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.Transitions.WithLabelValues("execute_trade", "ok").Inc()
	m.Halted.Set(1)

	assert.Equal(t, 1.0, value(t, m.Transitions.WithLabelValues("execute_trade", "ok")))
	assert.Equal(t, 1.0, value(t, m.Halted))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_vault_transitions_total")
	assert.Contains(t, names, "test_vault_halted")
}

func TestRecordHelpers(t *testing.T) {
	before := value(t, DefaultMetrics.RiskEvaluations.WithLabelValues("rejected"))
	RecordRiskEvaluation(false, []string{"VaR 95%", "Stop loss"})
	assert.Equal(t, before+1, value(t, DefaultMetrics.RiskEvaluations.WithLabelValues("rejected")))
	assert.GreaterOrEqual(t, value(t, DefaultMetrics.CriterionFailures.WithLabelValues("Stop loss")), 1.0)

	SetHalted(true)
	assert.Equal(t, 1.0, value(t, DefaultMetrics.Halted))
	SetHalted(false)
	assert.Equal(t, 0.0, value(t, DefaultMetrics.Halted))

	errsBefore := value(t, DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "update"))
	RecordDBQuery("postgres", "update", 0.01, errors.New("boom"))
	RecordDBQuery("postgres", "update", 0.01, nil)
	assert.Equal(t, errsBefore+1, value(t, DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "update")))
}

func TestHandler(t *testing.T) {
	RecordSignalSubmitted()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "treasury_vault_vault_signals_submitted_total"))
}
