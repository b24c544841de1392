package children

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/store"
	"doodba-operator/internal/store/storetest"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

func setup(t *testing.T) (*Reconciler, *storetest.MemoryStore, *doodbav1.Doodba) {
	t.Helper()
	s := storetest.NewMemoryStore(nil)
	app := testDoodba()
	app.UID = ""
	require.NoError(t, s.Create(context.Background(), app))
	return NewReconciler(s), s, app
}

func TestEnsureJobIsGetOrCreate(t *testing.T) {
	ctx := context.Background()
	r, s, app := setup(t)

	created, err := r.EnsureJob(ctx, BeforeCreateJob(app))
	require.NoError(t, err)
	assert.True(t, created)

	// A changed command does not touch the existing Job.
	app.Spec.BeforeCreate = "something-else"
	created, err = r.EnsureJob(ctx, BeforeCreateJob(app))
	require.NoError(t, err)
	assert.False(t, created)

	jobs := &batchv1.JobList{}
	require.NoError(t, s.List(ctx, jobs, client.InNamespace(app.Namespace)))
	require.Len(t, jobs.Items, 1)
	assert.Contains(t, jobs.Items[0].Spec.Template.Spec.Containers[0].Args[1], "click-odoo-initdb")
}

func TestGetJob(t *testing.T) {
	ctx := context.Background()
	r, _, app := setup(t)

	job, err := r.GetJob(ctx, app, app.BeforeCreateJobName())
	require.NoError(t, err)
	assert.Nil(t, job)

	_, err = r.EnsureJob(ctx, BeforeCreateJob(app))
	require.NoError(t, err)

	job, err = r.GetJob(ctx, app, app.BeforeCreateJobName())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobRunning, JobOutcome(job))
}

func TestDeleteJobIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	r, _, app := setup(t)

	require.NoError(t, r.DeleteJob(ctx, app, app.BeforeUpdateJobName()))

	_, err := r.EnsureJob(ctx, BeforeUpdateJob(app, app.ImageRef()))
	require.NoError(t, err)
	require.NoError(t, r.DeleteJob(ctx, app, app.BeforeUpdateJobName()))

	job, err := r.GetJob(ctx, app, app.BeforeUpdateJobName())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestApplyAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r, s, app := setup(t)

	require.NoError(t, r.ApplyAll(ctx, app, app.ImageRef(), DeclaredReplicas(app)))
	writes := s.Writes()

	require.NoError(t, r.ApplyAll(ctx, app, app.ImageRef(), DeclaredReplicas(app)))
	assert.Equal(t, writes, s.Writes(), "second apply must not mutate anything")

	deps, err := r.Deployments(ctx, app)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, int32(3), *deps["web"].Spec.Replicas)
	assert.Equal(t, int32(2), *deps["queue"].Spec.Replicas)

	for _, obj := range []client.Object{&corev1.ConfigMap{}, &corev1.PersistentVolumeClaim{}} {
		name := app.ConfigMapName()
		if _, ok := obj.(*corev1.PersistentVolumeClaim); ok {
			name = app.FilestoreClaimName()
		}
		require.NoError(t, s.Get(ctx, client.ObjectKey{Namespace: app.Namespace, Name: name}, obj))
	}
}

func TestScaleForUpgradeOnlyTouchesListedInstances(t *testing.T) {
	ctx := context.Background()
	r, _, app := setup(t)

	require.NoError(t, r.ApplyAll(ctx, app, "ghcr.io/acme/odoo:15.0", DeclaredReplicas(app)))
	require.NoError(t, r.ScaleForUpgrade(ctx, app, "ghcr.io/acme/odoo:15.0", map[string]int32{"queue": 0}))

	deps, err := r.Deployments(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, int32(3), *deps["web"].Spec.Replicas)
	assert.Equal(t, int32(0), *deps["queue"].Spec.Replicas)
	assert.Equal(t, "ghcr.io/acme/odoo:15.0", deps["queue"].Spec.Template.Spec.Containers[0].Image)
}

type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) Apply(ctx context.Context, obj client.Object) error {
	if _, ok := obj.(*appsv1.Deployment); ok {
		return f.err
	}
	return f.Store.Apply(ctx, obj)
}

func TestApplyAllStopsAtFirstFailingStage(t *testing.T) {
	ctx := context.Background()
	_, s, app := setup(t)
	boom := errors.New("boom")
	r := NewReconciler(&failingStore{Store: s, err: boom})

	err := r.ApplyAll(ctx, app, app.ImageRef(), DeclaredReplicas(app))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Exposure objects come after workloads and must not have been applied.
	err = s.Get(ctx, client.ObjectKey{Namespace: app.Namespace, Name: "shop-web"}, &corev1.Service{})
	assert.True(t, store.IsNotFound(err))
}

func TestApplyConfigCreatesHookDependencies(t *testing.T) {
	ctx := context.Background()
	r, s, app := setup(t)

	require.NoError(t, r.ApplyConfig(ctx, app))

	key := func(name string) client.ObjectKey { return client.ObjectKey{Namespace: app.Namespace, Name: name} }
	assert.NoError(t, s.Get(ctx, key(app.ConfigMapName()), &corev1.ConfigMap{}))
	assert.NoError(t, s.Get(ctx, key(app.FilestoreClaimName()), &corev1.PersistentVolumeClaim{}))
	assert.NoError(t, s.Get(ctx, key("shop-web"), &corev1.Secret{}))
	assert.NoError(t, s.Get(ctx, key("shop-queue"), &corev1.Secret{}))

	deps, err := r.Deployments(ctx, app)
	require.NoError(t, err)
	assert.Empty(t, deps, "workloads wait for the hook")
}

func TestApplyAllPrunesDisabledInstances(t *testing.T) {
	ctx := context.Background()
	r, s, app := setup(t)
	require.NoError(t, r.ApplyAll(ctx, app, app.ImageRef(), DeclaredReplicas(app)))

	// Not controlled by the Doodba, so never pruned.
	foreign := &appsv1.Deployment{}
	foreign.Name = "shop-legacy"
	foreign.Namespace = app.Namespace
	foreign.Labels = Labels(app)
	require.NoError(t, s.Create(ctx, foreign))

	app.Spec.Instances[1].Enabled = false
	app.Spec.Instances[0].Ingress = nil
	require.NoError(t, r.ApplyAll(ctx, app, app.ImageRef(), DeclaredReplicas(app)))

	key := func(name string) client.ObjectKey { return client.ObjectKey{Namespace: app.Namespace, Name: name} }
	assert.True(t, store.IsNotFound(s.Get(ctx, key("shop-queue"), &appsv1.Deployment{})))
	assert.True(t, store.IsNotFound(s.Get(ctx, key("shop-queue"), &corev1.Secret{})))
	assert.True(t, store.IsNotFound(s.Get(ctx, key("shop-web"), &networkingv1.Ingress{})))

	assert.NoError(t, s.Get(ctx, key("shop-web"), &appsv1.Deployment{}))
	assert.NoError(t, s.Get(ctx, key("shop-web"), &corev1.Service{}))
	assert.NoError(t, s.Get(ctx, key("shop-web"), &corev1.Secret{}))
	assert.NoError(t, s.Get(ctx, key("shop-legacy"), &appsv1.Deployment{}))
	assert.NoError(t, s.Get(ctx, key(app.ConfigMapName()), &corev1.ConfigMap{}))
}
