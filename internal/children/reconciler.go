package children

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// maxParallelApplies bounds concurrent applies within one stage.
const maxParallelApplies = 4

// Reconciler creates, observes and applies the children of a Doodba.
type Reconciler struct {
	store store.Store
}

// NewReconciler creates a Reconciler writing through s.
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// GetJob returns the named Job of app, or nil when it does not exist.
func (r *Reconciler) GetJob(ctx context.Context, app *doodbav1.Doodba, name string) (*batchv1.Job, error) {
	job := &batchv1.Job{}
	err := r.store.Get(ctx, client.ObjectKey{Namespace: app.Namespace, Name: name}, job)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s/%s: %w", app.Namespace, name, err)
	}
	return job, nil
}

// Deployments returns the existing Deployments of app's enabled instances,
// keyed by instance name.
func (r *Reconciler) Deployments(ctx context.Context, app *doodbav1.Doodba) (map[string]*appsv1.Deployment, error) {
	out := make(map[string]*appsv1.Deployment)
	for _, instance := range app.EnabledInstances() {
		dep := &appsv1.Deployment{}
		name := app.InstanceName(instance.Name)
		err := r.store.Get(ctx, client.ObjectKey{Namespace: app.Namespace, Name: name}, dep)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get deployment %s/%s: %w", app.Namespace, name, err)
		}
		out[instance.Name] = dep
	}
	return out, nil
}

// EnsureJob creates job unless a Job of that name exists. It never updates
// an existing Job. It reports whether the Job was created by this call.
func (r *Reconciler) EnsureJob(ctx context.Context, job *batchv1.Job) (bool, error) {
	existing := &batchv1.Job{}
	err := r.store.Get(ctx, client.ObjectKeyFromObject(job), existing)
	if err == nil {
		return false, nil
	}
	if !store.IsNotFound(err) {
		return false, fmt.Errorf("failed to get job %s/%s: %w", job.Namespace, job.Name, err)
	}

	if err := r.store.Create(ctx, job); err != nil {
		if store.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create job %s/%s: %w", job.Namespace, job.Name, err)
	}
	logging.Info("Children", "Created job %s/%s", job.Namespace, job.Name)
	return true, nil
}

// DeleteJob deletes the named Job and its pods. A missing Job is not an error.
func (r *Reconciler) DeleteJob(ctx context.Context, app *doodbav1.Doodba, name string) error {
	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: app.Namespace}}
	err := r.store.Delete(ctx, job, client.PropagationPolicy(metav1.DeletePropagationBackground))
	if err != nil && !store.IsNotFound(err) {
		return fmt.Errorf("failed to delete job %s/%s: %w", app.Namespace, name, err)
	}
	logging.Info("Children", "Deleted job %s/%s", app.Namespace, name)
	return nil
}

// ApplyAll force-applies every steady-state object of app running image,
// then prunes the ones no longer declared. Stages run in order; objects
// within a stage are applied concurrently and the first failure aborts the
// call.
func (r *Reconciler) ApplyAll(ctx context.Context, app *doodbav1.Doodba, image string, replicas map[string]int32) error {
	stages := Steady(app, image, replicas)
	for _, stage := range stages {
		if err := r.applyStage(ctx, stage); err != nil {
			return err
		}
	}
	return r.prune(ctx, app, stages)
}

// prunable are the kinds whose objects exist once per instance or ingress
// rule and go away with them.
var prunable = []func() client.ObjectList{
	func() client.ObjectList { return &appsv1.DeploymentList{} },
	func() client.ObjectList { return &corev1.ServiceList{} },
	func() client.ObjectList { return &networkingv1.IngressList{} },
	func() client.ObjectList { return &corev1.SecretList{} },
}

// prune deletes objects controlled by app that are not part of stages,
// such as the Deployment of a disabled instance.
func (r *Reconciler) prune(ctx context.Context, app *doodbav1.Doodba, stages [][]client.Object) error {
	desired := make(map[string]struct{})
	for _, stage := range stages {
		for _, obj := range stage {
			desired[fmt.Sprintf("%T/%s", obj, obj.GetName())] = struct{}{}
		}
	}

	for _, newList := range prunable {
		list := newList()
		if err := r.store.List(ctx, list, client.InNamespace(app.Namespace), client.MatchingLabels(Labels(app))); err != nil {
			return fmt.Errorf("failed to list %T: %w", list, err)
		}
		items, err := meta.ExtractList(list)
		if err != nil {
			return err
		}
		for _, item := range items {
			obj, ok := item.(client.Object)
			if !ok || !metav1.IsControlledBy(obj, app) {
				continue
			}
			if _, keep := desired[fmt.Sprintf("%T/%s", obj, obj.GetName())]; keep {
				continue
			}
			err := r.store.Delete(ctx, obj, client.PropagationPolicy(metav1.DeletePropagationBackground))
			if err != nil && !store.IsNotFound(err) {
				return fmt.Errorf("failed to delete %T %s/%s: %w", obj, obj.GetNamespace(), obj.GetName(), err)
			}
			logging.Info("Children", "Pruned %T %s/%s", obj, obj.GetNamespace(), obj.GetName())
		}
	}
	return nil
}

// ApplyConfig force-applies the configuration stage of app on its own, so
// hook Jobs can start before any workload exists.
func (r *Reconciler) ApplyConfig(ctx context.Context, app *doodbav1.Doodba) error {
	return r.applyStage(ctx, Config(app))
}

// ScaleForUpgrade force-applies the Deployments of the instances in
// replicas with the given counts, leaving other instances alone.
func (r *Reconciler) ScaleForUpgrade(ctx context.Context, app *doodbav1.Doodba, image string, replicas map[string]int32) error {
	var deployments []client.Object
	for _, instance := range app.EnabledInstances() {
		n, ok := replicas[instance.Name]
		if !ok {
			continue
		}
		deployments = append(deployments, Deployment(app, instance, image, n))
	}
	return r.applyStage(ctx, deployments)
}

func (r *Reconciler) applyStage(ctx context.Context, objs []client.Object) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelApplies)
	for _, obj := range objs {
		g.Go(func() error {
			if err := r.store.Apply(gctx, obj); err != nil {
				return fmt.Errorf("failed to apply %T %s/%s: %w", obj, obj.GetNamespace(), obj.GetName(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
