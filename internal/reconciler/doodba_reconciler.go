package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/children"
	"doodba-operator/internal/events"
	"doodba-operator/internal/finalizer"
	"doodba-operator/internal/phase"
	"doodba-operator/internal/status"
	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// Intervals are the delays a DoodbaReconciler asks the manager to wait
// before the next pass.
type Intervals struct {
	// Wait is used while a multi-step operation converges, e.g. a scale-down.
	Wait time.Duration

	// Resync is used once a Doodba is Running.
	Resync time.Duration

	// ErrorBackoff is used after a failed pass.
	ErrorBackoff time.Duration
}

// DefaultIntervals returns the intervals used when none are configured.
func DefaultIntervals() Intervals {
	return Intervals{
		Wait:         2 * time.Second,
		Resync:       5 * time.Minute,
		ErrorBackoff: 5 * time.Minute,
	}
}

func (i Intervals) withDefaults() Intervals {
	d := DefaultIntervals()
	if i.Wait <= 0 {
		i.Wait = d.Wait
	}
	if i.Resync <= 0 {
		i.Resync = d.Resync
	}
	if i.ErrorBackoff <= 0 {
		i.ErrorBackoff = d.ErrorBackoff
	}
	return i
}

// DoodbaReconciler reconciles Doodba resources.
//
// Each pass observes the hook Jobs and Deployments, lets the phase machine
// decide, then writes the initial status, performs the child actions and
// writes the resulting status, in that order. The pass stops at the first
// failing step.
type DoodbaReconciler struct {
	store      store.Store
	children   *children.Reconciler
	status     *status.Patcher
	finalizers *finalizer.Manager
	events     *events.EventGenerator
	metrics    *Metrics
	intervals  Intervals
}

// NewDoodbaReconciler creates a DoodbaReconciler working through s.
// metrics may be nil.
func NewDoodbaReconciler(s store.Store, metrics *Metrics, intervals Intervals) *DoodbaReconciler {
	return &DoodbaReconciler{
		store:      s,
		children:   children.NewReconciler(s),
		status:     status.NewPatcher(s),
		finalizers: finalizer.NewManager(s),
		events:     events.NewEventGenerator(s),
		metrics:    metrics,
		intervals:  intervals.withDefaults(),
	}
}

// GetResourceType returns the resource type this reconciler handles.
func (r *DoodbaReconciler) GetResourceType() ResourceType {
	return ResourceTypeDoodba
}

// Reconcile runs one pass for the Doodba named by req.
func (r *DoodbaReconciler) Reconcile(ctx context.Context, req ReconcileRequest) ReconcileResult {
	pass := uuid.NewString()[:8]

	app := &doodbav1.Doodba{}
	err := r.store.Get(ctx, client.ObjectKey{Namespace: req.Namespace, Name: req.Name}, app)
	if store.IsNotFound(err) {
		logging.Debug("Reconciler", "[%s] Doodba %s/%s not found, nothing to do", pass, req.Namespace, req.Name)
		return ReconcileResult{}
	}
	if err != nil {
		return r.failed(ctx, pass, nil, &ReconcileError{Step: StepObserve, Err: err})
	}

	logging.Debug("Reconciler", "[%s] Reconciling Doodba %s/%s in phase %s (attempt %d)",
		pass, app.Namespace, app.Name, app.CurrentPhase(), req.Attempt)

	directive := phase.Await
	err = r.finalizers.Run(ctx, app,
		func(ctx context.Context) error {
			d, err := r.apply(ctx, pass, app)
			directive = d
			return err
		},
		func(ctx context.Context) error {
			r.cleanup(ctx, pass, app)
			return nil
		},
	)
	if err != nil {
		return r.failed(ctx, pass, app, err)
	}

	switch directive {
	case phase.RequeueSoon:
		return ReconcileResult{RequeueAfter: r.intervals.Wait}
	case phase.Resync:
		return ReconcileResult{RequeueAfter: r.intervals.Resync}
	default:
		return ReconcileResult{}
	}
}

// apply runs the phase pipeline for a live Doodba.
func (r *DoodbaReconciler) apply(ctx context.Context, pass string, app *doodbav1.Doodba) (phase.Directive, error) {
	current := app.CurrentPhase()
	// Entering Running within this pass overwrites it.
	var installed string
	if app.Status != nil {
		installed = app.Status.LastAppliedImage
	}

	observed, err := r.observe(ctx, app)
	if err != nil {
		return phase.Await, &ReconcileError{Phase: current, Step: StepObserve, Err: err}
	}

	d := phase.Decide(app, observed)

	if d.Initial != nil {
		if err := r.writeStatus(ctx, app, d.Initial); err != nil {
			return phase.Await, &ReconcileError{Phase: current, Step: StepInitialStatus, Err: err}
		}
	}

	for _, action := range d.Actions {
		if err := r.execute(ctx, pass, app, action); err != nil {
			return phase.Await, &ReconcileError{Phase: app.CurrentPhase(), Step: string(action.Kind), Err: err}
		}
	}

	if d.Status != nil {
		if err := r.writeStatus(ctx, app, d.Status); err != nil {
			return phase.Await, &ReconcileError{Phase: app.CurrentPhase(), Step: StepStatus, Err: err}
		}
	}

	for _, t := range d.Transitions {
		r.transitioned(ctx, pass, app, t, installed)
	}

	logging.Debug("Reconciler", "[%s] Doodba %s/%s is %s, next: %s",
		pass, app.Namespace, app.Name, app.CurrentPhase(), d.Directive)
	return d.Directive, nil
}

func (r *DoodbaReconciler) observe(ctx context.Context, app *doodbav1.Doodba) (phase.Observed, error) {
	var observed phase.Observed
	var err error

	if observed.BeforeCreateJob, err = r.children.GetJob(ctx, app, app.BeforeCreateJobName()); err != nil {
		return observed, err
	}
	if observed.BeforeUpdateJob, err = r.children.GetJob(ctx, app, app.BeforeUpdateJobName()); err != nil {
		return observed, err
	}
	if observed.Deployments, err = r.children.Deployments(ctx, app); err != nil {
		return observed, err
	}
	return observed, nil
}

func (r *DoodbaReconciler) execute(ctx context.Context, pass string, app *doodbav1.Doodba, action phase.Action) error {
	logging.Debug("Reconciler", "[%s] %s for %s/%s", pass, action.Kind, app.Namespace, app.Name)

	switch action.Kind {
	case phase.ApplyConfig:
		return r.children.ApplyConfig(ctx, app)
	case phase.EnsureBeforeCreateJob:
		return r.ensureJob(ctx, app, children.BeforeCreateJob(app), "")
	case phase.EnsureBeforeUpdateJob:
		return r.ensureJob(ctx, app, children.BeforeUpdateJob(app, action.Image), action.Image)
	case phase.DeleteBeforeUpdateJob:
		name := app.BeforeUpdateJobName()
		if err := r.children.DeleteJob(ctx, app, name); err != nil {
			return err
		}
		r.record(ctx, app, events.ReasonJobDeleted, events.EventData{Job: name})
		return nil
	case phase.ScaleForUpgrade:
		return r.children.ScaleForUpgrade(ctx, app, action.Image, action.Replicas)
	case phase.ApplyChildren:
		return r.children.ApplyAll(ctx, app, action.Image, action.Replicas)
	default:
		logging.Warn("Reconciler", "[%s] Ignoring unknown action %s", pass, action.Kind)
		return nil
	}
}

func (r *DoodbaReconciler) ensureJob(ctx context.Context, app *doodbav1.Doodba, job *batchv1.Job, image string) error {
	created, err := r.children.EnsureJob(ctx, job)
	if err != nil {
		return err
	}
	if created {
		r.record(ctx, app, events.ReasonJobCreated, events.EventData{Job: job.Name, Image: image})
	}
	return nil
}

func (r *DoodbaReconciler) writeStatus(ctx context.Context, app *doodbav1.Doodba, st *doodbav1.DoodbaStatus) error {
	if err := r.status.Apply(ctx, app, st); err != nil {
		if r.metrics != nil {
			r.metrics.RecordStatusSyncFailure(ResourceTypeDoodba, app.Namespace+"/"+app.Name, err.Error())
		}
		return err
	}
	return nil
}

func (r *DoodbaReconciler) transitioned(ctx context.Context, pass string, app *doodbav1.Doodba, t phase.Transition, installed string) {
	logging.Info("Reconciler", "[%s] Doodba %s/%s moved from %s to %s",
		pass, app.Namespace, app.Name, displayPhase(t.From), t.To)

	if r.metrics != nil {
		r.metrics.RecordPhaseTransition(string(t.From), string(t.To))
	}
	r.record(ctx, app, events.ReasonPhaseChanged, events.EventData{From: string(t.From), To: string(t.To)})

	if t.To == doodbav1.PhaseFailed {
		job := app.BeforeCreateJobName()
		if t.From == doodbav1.PhaseUpgrading {
			job = app.BeforeUpdateJobName()
		}
		r.record(ctx, app, events.ReasonHookFailed, events.EventData{Job: job})
	}

	if t.To == doodbav1.PhaseUpgrading && isDowngrade(installed, app.ImageRef()) {
		logging.Warn("Reconciler", "[%s] Doodba %s/%s is moving to the older image %s",
			pass, app.Namespace, app.Name, app.ImageRef())
		r.record(ctx, app, events.ReasonImageDowngrade, events.EventData{
			Image:         app.ImageRef(),
			PreviousImage: installed,
		})
	}
}

// cleanup runs once the Doodba is being deleted. Owned children are removed
// by the garbage collector, so there is nothing to tear down here.
func (r *DoodbaReconciler) cleanup(ctx context.Context, pass string, app *doodbav1.Doodba) {
	logging.Info("Reconciler", "[%s] Doodba %s/%s is being deleted", pass, app.Namespace, app.Name)
	r.record(ctx, app, events.ReasonDeleted, events.EventData{})
}

func (r *DoodbaReconciler) failed(ctx context.Context, pass string, app *doodbav1.Doodba, err error) ReconcileResult {
	if app != nil {
		logging.Error("Reconciler", err, "[%s] Reconcile of Doodba %s/%s failed", pass, app.Namespace, app.Name)
		var fe *finalizer.Error
		if !errors.As(err, &fe) || !store.IsNotFound(fe.Err) {
			r.record(ctx, app, events.ReasonReconcileFailed, events.EventData{Error: SanitizeErrorMessage(err.Error())})
		}
	} else {
		logging.Error("Reconciler", err, "[%s] Reconcile failed", pass)
	}

	return ReconcileResult{
		Error:        err,
		Requeue:      true,
		RequeueAfter: r.intervals.ErrorBackoff,
	}
}

// record emits an event. Events are informational; failing to record one
// does not fail the pass.
func (r *DoodbaReconciler) record(ctx context.Context, app *doodbav1.Doodba, reason events.EventReason, data events.EventData) {
	if err := r.events.DoodbaEvent(ctx, app, reason, data); err != nil {
		logging.Warn("Reconciler", "Failed to record %s event for %s/%s: %v", reason, app.Namespace, app.Name, err)
	}
}

func displayPhase(p doodbav1.Phase) string {
	if p == "" {
		return "<none>"
	}
	return string(p)
}
