package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"doodba-operator/internal/config"
	"doodba-operator/internal/reconciler"
	"doodba-operator/internal/store"
	"doodba-operator/pkg/logging"
)

// Services holds the components the operator runs.
type Services struct {
	// Store is the object store every write goes through.
	Store store.Store

	// Manager runs reconcile passes for Doodbas.
	Manager *reconciler.Manager

	// Metrics are the reconciler metrics, registered with Gatherer.
	Metrics *reconciler.Metrics

	// Gatherer serves /metrics. It also carries the client-go and
	// controller-runtime metrics.
	Gatherer prometheus.Gatherer
}

// InitializeServices connects to the cluster and wires the reconcile
// pipeline: store, change detector, manager and the Doodba reconciler.
func InitializeServices(cfg *Config) (*Services, error) {
	restConfig, err := reconciler.GetRestConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
	}

	opCfg := *cfg.OperatorConfig
	s, err := store.NewKubernetesStore(restConfig, opCfg.FieldManager)
	if err != nil {
		return nil, err
	}
	detector := reconciler.NewKubernetesDetector(restConfig, opCfg.Namespace, opCfg.ResyncInterval)

	return newServices(s, detector, opCfg, ctrlmetrics.Registry)
}

// newServices wires the manager and reconciler around s. detector may be nil.
func newServices(s store.Store, detector reconciler.ChangeDetector, opCfg config.OperatorConfig, registry prometheus.Registerer) (*Services, error) {
	metrics := reconciler.NewMetrics(registry)

	manager := reconciler.NewManager(reconciler.ManagerConfig{
		WorkerCount:      opCfg.Workers,
		InitialBackoff:   opCfg.WaitInterval,
		MaxBackoff:       opCfg.MaxBackoff,
		ReconcileTimeout: opCfg.ReconcileTimeout,
	}, detector, metrics)

	doodbaReconciler := reconciler.NewDoodbaReconciler(s, metrics, reconciler.Intervals{
		Wait:         opCfg.WaitInterval,
		Resync:       opCfg.ResyncInterval,
		ErrorBackoff: opCfg.ErrorBackoff,
	})
	if err := manager.RegisterReconciler(doodbaReconciler); err != nil {
		return nil, fmt.Errorf("failed to register Doodba reconciler: %w", err)
	}

	gatherer, ok := registry.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}

	logging.Info("Bootstrap", "Initialized services with %d workers", opCfg.Workers)
	return &Services{
		Store:    s,
		Manager:  manager,
		Metrics:  metrics,
		Gatherer: gatherer,
	}, nil
}
