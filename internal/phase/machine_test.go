package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

const (
	oldImage = "odoo:16.0"
	newImage = "odoo:17.0"
)

func newApp(status *doodbav1.DoodbaStatus) *doodbav1.Doodba {
	return &doodbav1.Doodba{
		ObjectMeta: metav1.ObjectMeta{Name: "shop", Namespace: "erp", Generation: 3},
		Spec: doodbav1.DoodbaSpec{
			Image: "odoo",
			Tag:   "16.0",
			Instances: []doodbav1.Instance{
				{Name: "web", Enabled: true, Replicas: 3, ScaleDuringUpgrade: true,
					Ports: []corev1.ContainerPort{{ContainerPort: 8069}}},
				{Name: "queue", Enabled: true, Replicas: 2, ScaleDuringUpgrade: true},
			},
		},
		Status: status,
	}
}

func job(name string, condition batchv1.JobConditionType, target string) *batchv1.Job {
	j := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "erp"}}
	if target != "" {
		j.Annotations = map[string]string{doodbav1.TargetImageAnnotation: target}
	}
	if condition != "" {
		j.Status.Conditions = []batchv1.JobCondition{{Type: condition, Status: corev1.ConditionTrue}}
	}
	return j
}

func deployment(specReplicas, statusReplicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		Spec:   appsv1.DeploymentSpec{Replicas: ptr.To(specReplicas)},
		Status: appsv1.DeploymentStatus{Replicas: statusReplicas},
	}
}

func actionKinds(d Decision) []ActionKind {
	var out []ActionKind
	for _, a := range d.Actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestDecideNoStatusWithoutHookRunsInOnePass(t *testing.T) {
	app := newApp(nil)

	d := Decide(app, Observed{})

	require.NotNil(t, d.Initial)
	assert.Equal(t, doodbav1.PhasePending, d.Initial.Phase)
	assert.Equal(t, int64(3), d.Initial.ObservedGeneration)

	require.NotNil(t, d.Status)
	assert.Equal(t, doodbav1.PhaseRunning, d.Status.Phase)
	assert.True(t, d.Status.Ready)
	assert.Equal(t, oldImage, d.Status.LastAppliedImage)
	assert.Equal(t, []ActionKind{ApplyChildren}, actionKinds(d))
	assert.Equal(t, map[string]int32{"web": 3, "queue": 2}, d.Actions[0].Replicas)
	assert.Equal(t, Resync, d.Directive)
	assert.Equal(t, []Transition{
		{From: "", To: doodbav1.PhasePending},
		{From: doodbav1.PhasePending, To: doodbav1.PhaseRunning},
	}, d.Transitions)
}

func TestDecideNoStatusWithHookCreatesJob(t *testing.T) {
	app := newApp(nil)
	app.Spec.BeforeCreate = "migrate"

	d := Decide(app, Observed{})

	require.NotNil(t, d.Initial)
	require.NotNil(t, d.Status)
	assert.Equal(t, doodbav1.PhaseCreating, d.Status.Phase)
	assert.False(t, d.Status.Ready)
	require.NotNil(t, d.Status.BeforeCreateJob)
	assert.Equal(t, "shop-before-create", d.Status.BeforeCreateJob.Name)
	assert.Equal(t, []ActionKind{ApplyConfig, EnsureBeforeCreateJob}, actionKinds(d))
	assert.Equal(t, Await, d.Directive)
}

func TestDecideTransitions(t *testing.T) {
	tests := []struct {
		name      string
		status    doodbav1.DoodbaStatus
		mutate    func(*doodbav1.Doodba)
		observed  Observed
		phase     doodbav1.Phase
		actions   []ActionKind
		directive Directive
	}{
		{
			name:      "pending without hook goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhasePending},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "pending with hook creates job",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhasePending},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			phase:     doodbav1.PhaseCreating,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeCreateJob},
			directive: Await,
		},
		{
			name:      "pending with completed hook goes running without recreating",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhasePending},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobComplete, "")},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "pending with installed image re-derives through upgrading",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhasePending, LastAppliedImage: "odoo:15.0"},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "creating with running job awaits",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", "", "")},
			phase:     doodbav1.PhaseCreating,
			directive: Await,
		},
		{
			name:      "creating with missing job recreates it",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			phase:     doodbav1.PhaseCreating,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeCreateJob},
			directive: Await,
		},
		{
			name:      "creating with complete job goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobComplete, "")},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "creating with failed job goes failed",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobFailed, "")},
			phase:     doodbav1.PhaseFailed,
			directive: Await,
		},
		{
			name:      "creating without hook and without job goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "running without drift applies children",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning, Ready: true, LastAppliedImage: oldImage},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:   "running with drift and hook scales down",
			status: doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning, Ready: true, LastAppliedImage: "odoo:15.0"},
			mutate: func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed: Observed{Deployments: map[string]*appsv1.Deployment{
				"web": deployment(3, 3), "queue": deployment(2, 2),
			}},
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{ScaleForUpgrade},
			directive: RequeueSoon,
		},
		{
			name:   "upgrading while scale-down settles requeues",
			status: doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate: func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed: Observed{Deployments: map[string]*appsv1.Deployment{
				"web": deployment(1, 2), "queue": deployment(0, 0),
			}},
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{ScaleForUpgrade},
			directive: RequeueSoon,
		},
		{
			name:   "upgrading scaled down creates job",
			status: doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate: func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed: Observed{Deployments: map[string]*appsv1.Deployment{
				"web": deployment(1, 1), "queue": deployment(0, 0),
			}},
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeUpdateJob},
			directive: Await,
		},
		{
			name:      "upgrading with missing deployments creates job",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeUpdateJob},
			directive: Await,
		},
		{
			name:      "upgrading with running job awaits",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", "", oldImage)},
			phase:     doodbav1.PhaseUpgrading,
			directive: Await,
		},
		{
			name:      "upgrading with stale job deletes it",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobComplete, "odoo:15.0")},
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{DeleteBeforeUpdateJob},
			directive: RequeueSoon,
		},
		{
			name:      "upgrading with complete job goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobComplete, oldImage)},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "upgrading with failed job goes failed",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobFailed, oldImage)},
			phase:     doodbav1.PhaseFailed,
			directive: Await,
		},
		{
			name:      "upgrading without hook goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "failed create awaits while job exists",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseFailed},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobFailed, "")},
			phase:     doodbav1.PhaseFailed,
			directive: Await,
		},
		{
			name:      "failed create retries once job was deleted",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseFailed},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			phase:     doodbav1.PhaseCreating,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeCreateJob},
			directive: Await,
		},
		{
			name:      "failed upgrade awaits while job exists",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseFailed, LastAppliedImage: "odoo:15.0", TargetImage: oldImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobFailed, oldImage)},
			phase:     doodbav1.PhaseFailed,
			directive: Await,
		},
		{
			name:      "failed upgrade retargets on new image",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseFailed, LastAppliedImage: "odoo:15.0", TargetImage: "odoo:15.5"},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobFailed, "odoo:15.5")},
			phase:     doodbav1.PhaseUpgrading,
			actions:   []ActionKind{DeleteBeforeUpdateJob},
			directive: RequeueSoon,
		},
		{
			name:      "failed upgrade rolled back goes running",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseFailed, LastAppliedImage: oldImage, TargetImage: newImage},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeUpdate = "upgrade" },
			observed:  Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobFailed, newImage)},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "suspended resumes through pending",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseSuspended, LastAppliedImage: oldImage},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "suspended while creating resumes into running when job completed",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseSuspended},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			observed:  Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobComplete, "")},
			phase:     doodbav1.PhaseRunning,
			actions:   []ActionKind{ApplyChildren},
			directive: Resync,
		},
		{
			name:      "suspended while creating resumes into creating when job still needed",
			status:    doodbav1.DoodbaStatus{Phase: doodbav1.PhaseSuspended},
			mutate:    func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" },
			phase:     doodbav1.PhaseCreating,
			actions:   []ActionKind{ApplyConfig, EnsureBeforeCreateJob},
			directive: Await,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.status
			app := newApp(&status)
			if tt.mutate != nil {
				tt.mutate(app)
			}

			d := Decide(app, tt.observed)

			final := d.Final(app.Status)
			assert.Equal(t, tt.phase, final.Phase)
			assert.Equal(t, tt.actions, actionKinds(d))
			assert.Equal(t, tt.directive, d.Directive)
			assert.Nil(t, d.Initial, "initial status is only written when status is absent")
		})
	}
}

func TestEnteringRunningResetsUpgradeState(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{
		Phase:            doodbav1.PhaseUpgrading,
		LastAppliedImage: "odoo:15.0",
		TargetImage:      oldImage,
		BeforeUpdateJob:  &doodbav1.JobReference{Name: "shop-before-update"},
	})
	app.Spec.BeforeUpdate = "upgrade"

	d := Decide(app, Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobComplete, oldImage)})

	require.NotNil(t, d.Status)
	assert.Equal(t, doodbav1.DoodbaStatus{
		Phase:              doodbav1.PhaseRunning,
		Ready:              true,
		LastAppliedImage:   oldImage,
		ObservedGeneration: 3,
	}, *d.Status)
	assert.Equal(t, oldImage, d.Actions[0].Image)
}

func TestUpgradeKeepsInstalledImageWhileScaling(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning, Ready: true, LastAppliedImage: "odoo:15.0"})
	app.Spec.BeforeUpdate = "upgrade"

	d := Decide(app, Observed{Deployments: map[string]*appsv1.Deployment{"web": deployment(3, 3), "queue": deployment(2, 2)}})

	require.Len(t, d.Actions, 1)
	assert.Equal(t, "odoo:15.0", d.Actions[0].Image)
	assert.Equal(t, map[string]int32{"web": 1, "queue": 0}, d.Actions[0].Replicas)
	require.NotNil(t, d.Status)
	assert.Equal(t, oldImage, d.Status.TargetImage)
	assert.False(t, d.Status.Ready)
}

func TestBeforeUpdateJobTargetsNewImage(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: oldImage})
	app.Spec.BeforeUpdate = "upgrade"

	d := Decide(app, Observed{})

	require.Len(t, d.Actions, 2)
	assert.Equal(t, ApplyConfig, d.Actions[0].Kind)
	assert.Equal(t, EnsureBeforeUpdateJob, d.Actions[1].Kind)
	assert.Equal(t, oldImage, d.Actions[1].Image)
	require.NotNil(t, d.Status)
	require.NotNil(t, d.Status.BeforeUpdateJob)
	assert.Equal(t, "shop-before-update", d.Status.BeforeUpdateJob.Name)
}

func TestUpgradingRetargetsWhenImageChangesAgain(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{Phase: doodbav1.PhaseUpgrading, LastAppliedImage: "odoo:15.0", TargetImage: "odoo:15.5"})
	app.Spec.BeforeUpdate = "upgrade"

	d := Decide(app, Observed{BeforeUpdateJob: job("shop-before-update", "", "odoo:15.5")})

	assert.Equal(t, []ActionKind{DeleteBeforeUpdateJob}, actionKinds(d))
	require.NotNil(t, d.Status)
	assert.Equal(t, oldImage, d.Status.TargetImage)
	assert.Nil(t, d.Status.BeforeUpdateJob)
}

func TestUnknownPhaseIsNoOp(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{Phase: "Hibernating", Ready: true})

	d := Decide(app, Observed{})

	assert.Nil(t, d.Initial)
	assert.Nil(t, d.Status)
	assert.Empty(t, d.Actions)
	assert.Equal(t, Await, d.Directive)
	assert.Empty(t, d.Transitions)
}

func TestEmptyPhaseIsTreatedAsPending(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{})

	d := Decide(app, Observed{})

	require.NotNil(t, d.Status)
	assert.Equal(t, doodbav1.PhaseRunning, d.Status.Phase)
}

func TestObservedGenerationOnlyChangeIsWritten(t *testing.T) {
	app := newApp(&doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning, Ready: true, LastAppliedImage: oldImage, ObservedGeneration: 2})

	d := Decide(app, Observed{})

	require.NotNil(t, d.Status)
	assert.Equal(t, int64(3), d.Status.ObservedGeneration)
}

func TestDecideDoesNotMutateInput(t *testing.T) {
	status := &doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning, Ready: true, LastAppliedImage: "odoo:15.0"}
	app := newApp(status)
	before := app.DeepCopy()

	Decide(app, Observed{})

	assert.Equal(t, before, app)
}

func TestSuspendOverridesEveryPhase(t *testing.T) {
	for _, p := range doodbav1.Phases {
		t.Run(string(p), func(t *testing.T) {
			app := newApp(&doodbav1.DoodbaStatus{Phase: p, Ready: true, LastAppliedImage: "odoo:15.0"})
			app.Spec.Suspend = true
			app.Spec.BeforeCreate = "migrate"
			app.Spec.BeforeUpdate = "upgrade"

			d := Decide(app, Observed{BeforeUpdateJob: job("shop-before-update", batchv1.JobFailed, "odoo:15.0")})

			assert.Empty(t, d.Actions)
			assert.Equal(t, Await, d.Directive)
			final := d.Final(app.Status)
			assert.Equal(t, doodbav1.PhaseSuspended, final.Phase)
			assert.False(t, final.Ready)
			assert.Equal(t, "odoo:15.0", final.LastAppliedImage)
		})
	}
}

func TestSuspendWithoutStatus(t *testing.T) {
	app := newApp(nil)
	app.Spec.Suspend = true

	d := Decide(app, Observed{})

	require.NotNil(t, d.Initial)
	assert.Equal(t, doodbav1.PhasePending, d.Initial.Phase)
	require.NotNil(t, d.Status)
	assert.Equal(t, doodbav1.PhaseSuspended, d.Status.Phase)
	assert.Empty(t, d.Actions)
}

func TestDecideIsIdempotent(t *testing.T) {
	withHook := func(a *doodbav1.Doodba) { a.Spec.BeforeCreate = "migrate" }
	tests := []struct {
		name     string
		status   *doodbav1.DoodbaStatus
		mutate   func(*doodbav1.Doodba)
		observed Observed
	}{
		{name: "running", status: nil},
		{name: "creating", status: &doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating}, mutate: withHook,
			observed: Observed{BeforeCreateJob: job("shop-before-create", "", "")}},
		{name: "failed", status: &doodbav1.DoodbaStatus{Phase: doodbav1.PhaseCreating}, mutate: withHook,
			observed: Observed{BeforeCreateJob: job("shop-before-create", batchv1.JobFailed, "")}},
		{name: "suspended", status: &doodbav1.DoodbaStatus{Phase: doodbav1.PhaseRunning},
			mutate: func(a *doodbav1.Doodba) { a.Spec.Suspend = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(tt.status)
			if tt.mutate != nil {
				tt.mutate(app)
			}

			first := Decide(app, tt.observed)
			app.Status = first.Final(app.Status).DeepCopy()
			second := Decide(app, tt.observed)

			assert.Nil(t, second.Initial)
			assert.Nil(t, second.Status, "second pass must not write status")
			assert.Empty(t, second.Transitions)
			assert.Equal(t, actionKinds(first), actionKinds(second))
			assert.Equal(t, first.Directive, second.Directive)
		})
	}
}

func TestFailedIsOnlyReachedFromHookPhases(t *testing.T) {
	jobs := []*batchv1.Job{
		nil,
		job("hook", "", oldImage),
		job("hook", batchv1.JobComplete, oldImage),
		job("hook", batchv1.JobFailed, oldImage),
		job("hook", batchv1.JobFailed, "odoo:15.0"),
	}
	images := []string{"", oldImage, "odoo:15.0"}

	for _, p := range doodbav1.Phases {
		for _, createJob := range jobs {
			for _, updateJob := range jobs {
				for _, applied := range images {
					for _, target := range images {
						app := newApp(&doodbav1.DoodbaStatus{Phase: p, LastAppliedImage: applied, TargetImage: target})
						app.Spec.BeforeCreate = "migrate"
						app.Spec.BeforeUpdate = "upgrade"

						d := Decide(app, Observed{BeforeCreateJob: createJob, BeforeUpdateJob: updateJob})

						for _, tr := range d.Transitions {
							if tr.To != doodbav1.PhaseFailed {
								continue
							}
							assert.Contains(t, []doodbav1.Phase{doodbav1.PhaseCreating, doodbav1.PhaseUpgrading}, tr.From,
								"phase %s reached Failed from %s", p, tr.From)
						}
					}
				}
			}
		}
	}
}

func TestDirectiveString(t *testing.T) {
	assert.Equal(t, "Await", Await.String())
	assert.Equal(t, "RequeueSoon", RequeueSoon.String())
	assert.Equal(t, "Resync", Resync.String())
	assert.Equal(t, "Unknown", Directive(42).String())
}
