package app

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doodba-operator/internal/config"
	"doodba-operator/internal/reconciler"
	"doodba-operator/internal/store/storetest"
)

func TestNewServices(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := storetest.NewMemoryStore(nil)

	services, err := newServices(s, nil, config.GetDefaultConfig(), registry)
	require.NoError(t, err)

	assert.Same(t, s, services.Store)
	assert.NotNil(t, services.Manager)
	assert.NotNil(t, services.Metrics)
	assert.Equal(t, prometheus.Gatherer(registry), services.Gatherer)
	assert.False(t, services.Manager.IsRunning())

	families, err := services.Gatherer.Gather()
	require.NoError(t, err)
	// Vectors without observations are not gathered yet.
	assert.Empty(t, families)

	services.Metrics.RecordPhaseTransition("", "Pending")
	families, err = services.Gatherer.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 1)
}

func TestNewServicesRegistersMetricsOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := newServices(storetest.NewMemoryStore(nil), nil, config.GetDefaultConfig(), registry)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = newServices(storetest.NewMemoryStore(nil), nil, config.GetDefaultConfig(), registry)
	})
}

func TestNewServicesFallsBackToDefaultGatherer(t *testing.T) {
	services, err := newServices(storetest.NewMemoryStore(nil), nil, config.GetDefaultConfig(), registererOnly{prometheus.NewRegistry()})
	require.NoError(t, err)

	assert.Equal(t, prometheus.DefaultGatherer, services.Gatherer)
	assert.Equal(t, 0, services.Manager.GetQueueLength())
	_, tracked := services.Manager.GetStatus(reconciler.ResourceTypeDoodba, "shop", "erp")
	assert.False(t, tracked)
}

// registererOnly hides the Gatherer side of a registry.
type registererOnly struct {
	prometheus.Registerer
}
