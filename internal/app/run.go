package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/config"
	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// ErrCRDNotQueryable is returned when Doodba resources cannot be listed,
// usually because the CRD is not installed.
var ErrCRDNotQueryable = errors.New("doodba resources cannot be listed")

const shutdownTimeout = 5 * time.Second

// VerifyCRD lists at most one Doodba in namespace to prove the CRD is
// installed and readable.
func VerifyCRD(ctx context.Context, s store.Store, namespace string) error {
	var list doodbav1.DoodbaList
	opts := []client.ListOption{client.Limit(1)}
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if err := s.List(ctx, &list, opts...); err != nil {
		return fmt.Errorf("%w: %v", ErrCRDNotQueryable, err)
	}
	return nil
}

// runOperator runs the manager, the metrics endpoint and the configuration
// watcher until ctx ends or one of them fails.
func runOperator(ctx context.Context, cfg *Config, services *Services) error {
	opCfg := *cfg.OperatorConfig

	if err := VerifyCRD(ctx, services.Store, opCfg.Namespace); err != nil {
		logging.Error("Operator", err, "Doodba CRD is not available, install it with 'doodba-operator crd | kubectl apply -f -'")
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := services.Manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reconcile manager: %w", err)
		}
		<-ctx.Done()
		logging.Info("Operator", "Shutting down reconcile manager")
		return services.Manager.Stop()
	})

	if opCfg.MetricsEnabled() {
		server := newMetricsServer(opCfg.MetricsBindAddress, services.Gatherer)
		g.Go(func() error {
			return serveMetrics(ctx, server)
		})
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err == nil {
			watcher := config.NewWatcher(cfg.ConfigPath, func(next config.OperatorConfig) {
				onConfigChange(cfg, next)
			})
			g.Go(func() error {
				return watcher.Run(ctx)
			})
		}
	}

	logging.Info("Operator", "Doodba operator started")
	if err := g.Wait(); err != nil {
		return err
	}
	logging.Info("Operator", "Doodba operator stopped")
	return nil
}

// onConfigChange applies the settings that can change without a restart.
// Only the log level is live; the rest needs a new process.
func onConfigChange(cfg *Config, next config.OperatorConfig) {
	if cfg.Debug {
		return
	}
	level, err := logging.ParseLevel(next.LogLevel)
	if err != nil {
		return
	}
	if level != logging.CurrentLevel() {
		logging.Info("Operator", "Log level changed to %s", level)
		logging.SetLevel(level)
	}
}

func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveMetrics runs server until ctx ends, then shuts it down gracefully.
func serveMetrics(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Operator", "Serving metrics on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	return nil
}
