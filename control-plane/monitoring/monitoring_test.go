package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGatherAddsLabels(t *testing.T) {
	registry := NewRegistry(map[string]string{"env": "test"})
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})
	registry.MustRegister(counter)
	counter.Inc()

	families, err := registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, family := range families {
		for _, metric := range family.Metric {
			found := false
			for _, label := range metric.Label {
				if label.GetName() == "env" && label.GetValue() == "test" {
					found = true
					break
				}
			}
			assert.True(t, found, "metric %s lacks the env label", family.GetName())
		}
	}
}

func TestRegistryHandler(t *testing.T) {
	registry := NewRegistry(nil)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "fedsdn_test_total", Help: "x"})
	registry.MustRegister(counter)
	counter.Add(3)

	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fedsdn_test_total 3")
}
