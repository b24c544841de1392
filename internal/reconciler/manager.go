package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doodba-operator/pkg/logging"
)

// Manager coordinates all reconciliation activities.
//
// It manages:
//   - the change detector feeding requests
//   - resource-specific reconcilers
//   - the work queue and worker pool
//   - retries with exponential backoff
type Manager struct {
	mu sync.RWMutex

	config ManagerConfig

	// changeDetector detects resource changes; nil means requests only come
	// from TriggerReconcile
	changeDetector ChangeDetector

	// reconcilers maps resource types to their reconcilers
	reconcilers map[ResourceType]Reconciler

	// queue holds requests waiting for a worker
	queue ReconcileQueue

	// statusTracker tracks reconciliation status for each resource
	statusTracker map[string]*ReconcileStatus

	// changeChan receives change events from detectors
	changeChan chan ChangeEvent

	// metrics records reconcile outcomes; may be nil
	metrics *Metrics

	// ctx is the manager's context
	ctx context.Context

	// cancelFunc cancels the manager's context
	cancelFunc context.CancelFunc

	// wg tracks running workers
	wg sync.WaitGroup

	// running indicates if the manager is active
	running bool

	// stopped is set once Stop ran; a stopped manager cannot be restarted
	stopped bool
}

// NewManager creates a new reconciliation manager. detector may be nil.
func NewManager(config ManagerConfig, detector ChangeDetector, metrics *Metrics) *Manager {
	// Apply defaults
	if config.WorkerCount == 0 {
		config.WorkerCount = 2
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 5 * time.Minute
	}
	if config.ReconcileTimeout == 0 {
		config.ReconcileTimeout = 30 * time.Second
	}

	return &Manager{
		config:         config,
		changeDetector: detector,
		reconcilers:    make(map[ResourceType]Reconciler),
		queue:          newRequestQueue(),
		statusTracker:  make(map[string]*ReconcileStatus),
		changeChan:     make(chan ChangeEvent, 100),
		metrics:        metrics,
	}
}

// RegisterReconciler registers a reconciler for a specific resource type.
func (m *Manager) RegisterReconciler(reconciler Reconciler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resourceType := reconciler.GetResourceType()
	if _, exists := m.reconcilers[resourceType]; exists {
		return fmt.Errorf("reconciler for %s already registered", resourceType)
	}

	m.reconcilers[resourceType] = reconciler
	logging.Info("ReconcileManager", "Registered reconciler for %s", resourceType)

	if m.changeDetector != nil {
		if err := m.changeDetector.AddResourceType(resourceType); err != nil {
			return fmt.Errorf("failed to watch %s: %w", resourceType, err)
		}
	}

	return nil
}

// Start begins the reconciliation system. It returns once the change
// detector is running; workers keep going until Stop is called or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errors.New("reconcile manager already stopped")
	}
	if m.running {
		m.mu.Unlock()
		return nil
	}

	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	if m.changeDetector != nil {
		if err := m.changeDetector.Start(m.ctx, m.changeChan); err != nil {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			m.cancelFunc()
			return fmt.Errorf("failed to start change detector: %w", err)
		}
	}

	// Start event processor
	m.wg.Add(1)
	go m.processChangeEvents()

	// Start workers
	for i := 0; i < m.config.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	logging.Info("ReconcileManager", "Started with %d workers", m.config.WorkerCount)
	return nil
}

// processChangeEvents converts change events to reconcile requests.
func (m *Manager) processChangeEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-m.changeChan:
			if !ok {
				return
			}
			m.handleChangeEvent(event)
		}
	}
}

// handleChangeEvent processes a single change event.
func (m *Manager) handleChangeEvent(event ChangeEvent) {
	if !m.isRegistered(event.Type) {
		logging.Debug("ReconcileManager", "Skipping change event for unregistered resource type: %s %s/%s",
			event.Operation, event.Type, event.Name)
		return
	}

	logging.Debug("ReconcileManager", "Handling change event: %s %s %s/%s (source %s)",
		event.Operation, event.Type, event.Namespace, event.Name, event.Source)

	m.updateStatus(event.Type, event.Name, event.Namespace, StatePending, "")

	m.queue.Add(ReconcileRequest{
		Type:      event.Type,
		Name:      event.Name,
		Namespace: event.Namespace,
		Attempt:   1,
	})
}

// worker processes reconciliation requests from the queue.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	logging.Debug("ReconcileManager", "Worker %d started", id)

	for {
		req, ok := m.queue.Get(m.ctx)
		if !ok {
			logging.Debug("ReconcileManager", "Worker %d shutting down", id)
			return
		}

		m.processRequest(req)
		m.queue.Done(req)
	}
}

// processRequest handles a single reconciliation request.
func (m *Manager) processRequest(req ReconcileRequest) {
	m.mu.RLock()
	reconciler, ok := m.reconcilers[req.Type]
	timeout := m.config.ReconcileTimeout
	m.mu.RUnlock()

	if !ok {
		logging.Warn("ReconcileManager", "No reconciler for resource type: %s", req.Type)
		return
	}

	m.updateStatus(req.Type, req.Name, req.Namespace, StateReconciling, "")

	logging.Debug("ReconcileManager", "Reconciling %s %s/%s (attempt %d)",
		req.Type, req.Namespace, req.Name, req.Attempt)

	// An in-flight pass is allowed to finish when the manager stops; only
	// the timeout bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), timeout)
	defer cancel()

	start := time.Now()
	result := reconciler.Reconcile(ctx, req)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && result.Error == nil {
		result.Error = fmt.Errorf("reconciliation timed out after %v", timeout)
	}

	if m.metrics != nil {
		m.metrics.RecordReconcile(req.Type, result, time.Since(start))
	}

	switch {
	case result.Error != nil:
		m.handleReconcileError(req, result)
	case result.Requeue || result.RequeueAfter > 0:
		m.handleRequeue(req, result)
		m.updateStatus(req.Type, req.Name, req.Namespace, StateSynced, "")
	default:
		m.handleSuccess(req)
	}
}

// handleReconcileError requeues a failed request. A RequeueAfter set by the
// reconciler is used as is; otherwise the delay grows exponentially. Errors
// are always retried.
func (m *Manager) handleReconcileError(req ReconcileRequest, result ReconcileResult) {
	logging.Warn("ReconcileManager", "Reconciliation failed for %s %s/%s: %v",
		req.Type, req.Namespace, req.Name, result.Error)

	m.updateStatus(req.Type, req.Name, req.Namespace, StateError, SanitizeErrorMessage(result.Error.Error()))

	backoff := result.RequeueAfter
	if backoff <= 0 {
		backoff = m.calculateBackoff(req.Attempt)
	}

	req.Attempt++
	req.LastError = result.Error
	m.queue.AddAfter(req, backoff)

	logging.Debug("ReconcileManager", "Requeuing %s %s/%s after %v (attempt %d)",
		req.Type, req.Namespace, req.Name, backoff, req.Attempt)
}

// handleRequeue handles a successful reconciliation that needs requeueing.
func (m *Manager) handleRequeue(req ReconcileRequest, result ReconcileResult) {
	delay := result.RequeueAfter
	if delay == 0 {
		delay = m.config.InitialBackoff
	}

	req.Attempt = 1
	req.LastError = nil
	m.queue.AddAfter(req, delay)
	logging.Debug("ReconcileManager", "Requeuing %s %s/%s after %v",
		req.Type, req.Namespace, req.Name, delay)
}

// handleSuccess handles a successful reconciliation.
func (m *Manager) handleSuccess(req ReconcileRequest) {
	logging.Debug("ReconcileManager", "Successfully reconciled %s %s/%s", req.Type, req.Namespace, req.Name)
	m.updateStatus(req.Type, req.Name, req.Namespace, StateSynced, "")
}

// calculateBackoff computes exponential backoff: initial * 2^(attempt-1),
// capped at MaxBackoff.
func (m *Manager) calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := m.config.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= m.config.MaxBackoff {
			return m.config.MaxBackoff
		}
	}
	if backoff > m.config.MaxBackoff {
		backoff = m.config.MaxBackoff
	}
	return backoff
}

// updateStatus updates the reconciliation status for a resource.
func (m *Manager) updateStatus(resourceType ResourceType, name, namespace string, state ReconcileState, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statusKey(resourceType, name, namespace)
	status, ok := m.statusTracker[key]
	if !ok {
		status = &ReconcileStatus{
			ResourceType: resourceType,
			Name:         name,
			Namespace:    namespace,
		}
		m.statusTracker[key] = status
	}

	status.State = state
	status.LastError = errMsg

	switch state {
	case StateSynced:
		now := time.Now()
		status.LastReconcileTime = &now
		status.RetryCount = 0
	case StateError:
		status.RetryCount++
	}
}

// statusKey generates a unique key for status tracking.
func statusKey(resourceType ResourceType, name, namespace string) string {
	if namespace != "" {
		return string(resourceType) + "/" + namespace + "/" + name
	}
	return string(resourceType) + "/" + name
}

// Stop gracefully shuts down the reconciliation manager. Passes already
// running finish; queued and delayed requests are dropped.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.stopped = true
	m.mu.Unlock()

	logging.Info("ReconcileManager", "Stopping reconciliation manager...")

	if m.changeDetector != nil {
		if err := m.changeDetector.Stop(); err != nil {
			logging.Error("ReconcileManager", err, "Error stopping change detector")
		}
	}

	m.queue.Shutdown()

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.wg.Wait()

	logging.Info("ReconcileManager", "Reconciliation manager stopped")
	return nil
}

// GetStatus returns the reconciliation status for a resource.
func (m *Manager) GetStatus(resourceType ResourceType, name, namespace string) (*ReconcileStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statusTracker[statusKey(resourceType, name, namespace)]
	if !ok {
		return nil, false
	}
	copied := *status
	return &copied, true
}

// GetAllStatuses returns all reconciliation statuses.
func (m *Manager) GetAllStatuses() []ReconcileStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]ReconcileStatus, 0, len(m.statusTracker))
	for _, status := range m.statusTracker {
		statuses = append(statuses, *status)
	}
	return statuses
}

// TriggerReconcile manually triggers reconciliation for a resource.
func (m *Manager) TriggerReconcile(resourceType ResourceType, name, namespace string) {
	m.handleChangeEvent(ChangeEvent{
		Type:      resourceType,
		Name:      name,
		Namespace: namespace,
		Operation: OperationUpdate,
		Timestamp: time.Now(),
		Source:    SourceManual,
	})
}

// IsRunning returns whether the manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetQueueLength returns the current queue length.
func (m *Manager) GetQueueLength() int {
	return m.queue.Len()
}

func (m *Manager) isRegistered(resourceType ResourceType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.reconcilers[resourceType]
	return ok
}
