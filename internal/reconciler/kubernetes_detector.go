package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	toolscache "k8s.io/client-go/tools/cache"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/children"
	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// KubernetesDetector implements ChangeDetector using controller-runtime informers.
//
// It watches Doodba resources and the Jobs and Deployments they own. Events on
// owned objects are reported for the owning Doodba, so a finished hook Job or
// a Deployment deleted behind the operator's back triggers a pass. Informers
// resync every resyncPeriod, which re-emits an update for every cached object.
type KubernetesDetector struct {
	mu sync.RWMutex

	// restConfig is the Kubernetes REST configuration
	restConfig *rest.Config

	// namespace is the Kubernetes namespace to watch (empty for all namespaces)
	namespace string

	// resyncPeriod is the informer resync period; zero keeps the cache default
	resyncPeriod time.Duration

	// cache is the controller-runtime cache for watching resources
	cache cache.Cache

	// scheme is the runtime scheme with registered types
	scheme *runtime.Scheme

	// resourceTypes is the set of resource types being watched
	resourceTypes map[ResourceType]bool

	// changeChan is the channel to send change events to
	changeChan chan<- ChangeEvent

	// ctx is the detector's context
	ctx context.Context

	// cancelFunc cancels the detector's context
	cancelFunc context.CancelFunc

	// running indicates if the detector is active
	running bool

	// informerRegistrations tracks registered event handlers for cleanup
	informerRegistrations []toolscache.ResourceEventHandlerRegistration
}

// NewKubernetesDetector creates a new Kubernetes change detector.
//
// Args:
//   - restConfig: Kubernetes REST configuration for API access
//   - namespace: Namespace to watch (empty string watches all namespaces)
//   - resyncPeriod: how often informers replay their cache
func NewKubernetesDetector(restConfig *rest.Config, namespace string, resyncPeriod time.Duration) *KubernetesDetector {
	return &KubernetesDetector{
		restConfig:            restConfig,
		namespace:             namespace,
		resyncPeriod:          resyncPeriod,
		scheme:                store.NewScheme(),
		resourceTypes:         make(map[ResourceType]bool),
		informerRegistrations: make([]toolscache.ResourceEventHandlerRegistration, 0),
	}
}

// cacheOptions builds the cache configuration. Owned objects are only cached
// when they carry the operator's managed-by label.
func (d *KubernetesDetector) cacheOptions() cache.Options {
	managed := labels.SelectorFromSet(labels.Set{children.LabelManagedBy: children.ManagedBy})
	opts := cache.Options{
		Scheme: d.scheme,
		ByObject: map[client.Object]cache.ByObject{
			&batchv1.Job{}:       {Label: managed},
			&appsv1.Deployment{}: {Label: managed},
		},
	}
	if d.resyncPeriod > 0 {
		period := d.resyncPeriod
		opts.SyncPeriod = &period
	}
	if d.namespace != "" {
		opts.DefaultNamespaces = map[string]cache.Config{
			d.namespace: {},
		}
	}
	return opts
}

// Start begins watching for Kubernetes resource changes.
func (d *KubernetesDetector) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	d.ctx, d.cancelFunc = context.WithCancel(ctx)
	d.changeChan = changes
	d.running = true
	d.mu.Unlock()

	c, err := cache.New(d.restConfig, d.cacheOptions())
	if err != nil {
		d.fail()
		return fmt.Errorf("failed to create cache: %w", err)
	}

	d.mu.Lock()
	d.cache = c
	d.mu.Unlock()

	if err := d.setupInformers(); err != nil {
		d.fail()
		return fmt.Errorf("failed to setup informers: %w", err)
	}

	go func() {
		if err := c.Start(d.ctx); err != nil {
			logging.Error("KubernetesDetector", err, "Cache stopped with error")
		}
	}()

	if !c.WaitForCacheSync(d.ctx) {
		d.fail()
		return fmt.Errorf("failed to sync cache")
	}

	logging.Info("KubernetesDetector", "Started watching Kubernetes resources in namespace: %s", d.namespaceDisplay())
	return nil
}

func (d *KubernetesDetector) fail() {
	d.mu.Lock()
	d.running = false
	cancel := d.cancelFunc
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setupInformers creates informers for all registered resource types.
func (d *KubernetesDetector) setupInformers() error {
	d.mu.RLock()
	types := make([]ResourceType, 0, len(d.resourceTypes))
	for rt := range d.resourceTypes {
		types = append(types, rt)
	}
	d.mu.RUnlock()

	for _, rt := range types {
		if err := d.setupInformerForType(rt); err != nil {
			return err
		}
	}
	return nil
}

// setupInformerForType creates the informers serving a resource type: the
// resource itself and the kinds it owns.
func (d *KubernetesDetector) setupInformerForType(resourceType ResourceType) error {
	if resourceType != ResourceTypeDoodba {
		return fmt.Errorf("unsupported resource type: %s", resourceType)
	}

	if err := d.register(&doodbav1.Doodba{}, d.createEventHandler(resourceType)); err != nil {
		return err
	}
	for _, owned := range []client.Object{&batchv1.Job{}, &appsv1.Deployment{}} {
		if err := d.register(owned, d.createOwnedEventHandler(resourceType)); err != nil {
			return err
		}
	}

	logging.Debug("KubernetesDetector", "Setup informers for resource type: %s", resourceType)
	return nil
}

func (d *KubernetesDetector) register(obj client.Object, handler toolscache.ResourceEventHandler) error {
	informer, err := d.cache.GetInformer(d.ctx, obj)
	if err != nil {
		return fmt.Errorf("failed to get informer for %T: %w", obj, err)
	}

	registration, err := informer.AddEventHandler(handler)
	if err != nil {
		return fmt.Errorf("failed to add event handler for %T: %w", obj, err)
	}

	d.mu.Lock()
	d.informerRegistrations = append(d.informerRegistrations, registration)
	d.mu.Unlock()
	return nil
}

// createEventHandler creates a ResourceEventHandler for a specific resource type.
func (d *KubernetesDetector) createEventHandler(resourceType ResourceType) toolscache.ResourceEventHandler {
	return toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			d.handle(resourceType, OperationCreate, obj)
		},
		UpdateFunc: func(_, newObj interface{}) {
			d.handle(resourceType, OperationUpdate, newObj)
		},
		DeleteFunc: func(obj interface{}) {
			d.handle(resourceType, OperationDelete, obj)
		},
	}
}

// createOwnedEventHandler creates a handler that reports changes of owned
// objects as updates of their controlling owner.
func (d *KubernetesDetector) createOwnedEventHandler(resourceType ResourceType) toolscache.ResourceEventHandler {
	forward := func(obj interface{}) {
		d.handleOwned(resourceType, obj)
	}
	return toolscache.ResourceEventHandlerFuncs{
		AddFunc:    forward,
		UpdateFunc: func(_, newObj interface{}) { forward(newObj) },
		DeleteFunc: forward,
	}
}

func (d *KubernetesDetector) handle(resourceType ResourceType, op ChangeOperation, obj interface{}) {
	meta, ok := extractObjectMeta(obj)
	if !ok {
		logging.Warn("KubernetesDetector", "Failed to extract metadata from %s event", op)
		return
	}

	d.sendChangeEvent(ChangeEvent{
		Type:      resourceType,
		Name:      meta.name,
		Namespace: meta.namespace,
		Operation: op,
		Timestamp: time.Now(),
		Source:    SourceKubernetes,
	})
}

func (d *KubernetesDetector) handleOwned(resourceType ResourceType, obj interface{}) {
	owner, ok := controllingDoodba(obj)
	if !ok {
		return
	}

	d.sendChangeEvent(ChangeEvent{
		Type:      resourceType,
		Name:      owner.name,
		Namespace: owner.namespace,
		Operation: OperationUpdate,
		Timestamp: time.Now(),
		Source:    SourceOwned,
	})
}

// objectMeta holds extracted metadata from a Kubernetes object.
type objectMeta struct {
	name      string
	namespace string
}

// extractObjectMeta extracts name and namespace from a Kubernetes object.
// Tombstones of objects deleted while the watch was down are unwrapped.
func extractObjectMeta(obj interface{}) (objectMeta, bool) {
	if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
		obj = tombstone.Obj
	}
	if clientObj, ok := obj.(client.Object); ok {
		return objectMeta{
			name:      clientObj.GetName(),
			namespace: clientObj.GetNamespace(),
		}, true
	}
	return objectMeta{}, false
}

// controllingDoodba returns the Doodba controlling obj, if any.
func controllingDoodba(obj interface{}) (objectMeta, bool) {
	if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
		obj = tombstone.Obj
	}
	clientObj, ok := obj.(client.Object)
	if !ok {
		return objectMeta{}, false
	}
	ref := metav1.GetControllerOf(clientObj)
	if ref == nil || ref.Kind != doodbav1.Kind || ref.APIVersion != doodbav1.GroupVersion.String() {
		return objectMeta{}, false
	}
	return objectMeta{name: ref.Name, namespace: clientObj.GetNamespace()}, true
}

// sendChangeEvent sends a change event to the output channel.
func (d *KubernetesDetector) sendChangeEvent(event ChangeEvent) {
	d.mu.RLock()
	changeChan := d.changeChan
	running := d.running
	d.mu.RUnlock()

	if !running || changeChan == nil {
		return
	}

	select {
	case changeChan <- event:
		logging.Debug("KubernetesDetector", "Emitted change event: %s %s/%s/%s",
			event.Operation, event.Type, event.Namespace, event.Name)
	default:
		// The next resync delivers the change again.
		logging.Warn("KubernetesDetector", "Change event channel full, dropping event for %s/%s/%s",
			event.Type, event.Namespace, event.Name)
	}
}

// Stop gracefully stops the Kubernetes detector.
func (d *KubernetesDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false

	if d.cancelFunc != nil {
		d.cancelFunc()
	}

	// Registrations are removed together with the cache.
	d.informerRegistrations = nil

	logging.Info("KubernetesDetector", "Stopped Kubernetes detector")
	return nil
}

// GetSource returns the change source type.
func (d *KubernetesDetector) GetSource() ChangeSource {
	return SourceKubernetes
}

// AddResourceType adds a resource type to watch.
func (d *KubernetesDetector) AddResourceType(resourceType ResourceType) error {
	if resourceType != ResourceTypeDoodba {
		return fmt.Errorf("unsupported resource type: %s", resourceType)
	}

	d.mu.Lock()
	already := d.resourceTypes[resourceType]
	d.resourceTypes[resourceType] = true
	running := d.running
	c := d.cache
	d.mu.Unlock()

	if running && c != nil && !already {
		return d.setupInformerForType(resourceType)
	}
	return nil
}

// namespaceDisplay returns a display string for the namespace.
func (d *KubernetesDetector) namespaceDisplay() string {
	if d.namespace == "" {
		return "all namespaces"
	}
	return d.namespace
}

// GetRestConfig returns the REST config using controller-runtime's config
// detection (--kubeconfig, KUBECONFIG, in-cluster, ~/.kube/config).
func GetRestConfig() (*rest.Config, error) {
	return ctrl.GetConfig()
}
