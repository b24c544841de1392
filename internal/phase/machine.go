package phase

import (
	"k8s.io/apimachinery/pkg/api/equality"

	"doodba-operator/internal/children"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// maxSteps bounds the transitions followed within one decision.
const maxSteps = 8

// DefaultStatus is the status written on the first pass.
func DefaultStatus(app *doodbav1.Doodba) *doodbav1.DoodbaStatus {
	return &doodbav1.DoodbaStatus{
		Phase:              doodbav1.PhasePending,
		ObservedGeneration: app.Generation,
	}
}

// Decide computes the next status, actions and directive for app.
func Decide(app *doodbav1.Doodba, observed Observed) Decision {
	var d Decision

	var status *doodbav1.DoodbaStatus
	if app.Status == nil {
		status = DefaultStatus(app)
		d.Initial = status.DeepCopy()
		d.Transitions = append(d.Transitions, Transition{To: doodbav1.PhasePending})
	} else {
		status = app.Status.DeepCopy()
	}
	baseline := status.DeepCopy()

	if status.Phase == "" {
		status.Phase = doodbav1.PhasePending
	}
	if !status.Phase.Known() {
		d.Directive = Await
		return d
	}

	m := &machine{
		app:      app,
		observed: observed,
		image:    app.ImageRef(),
		status:   status,
		decision: &d,
	}
	for step := 0; ; step++ {
		if step == maxSteps {
			d.Directive = RequeueSoon
			break
		}
		if !m.step() {
			break
		}
	}

	status.ObservedGeneration = app.Generation
	if !equality.Semantic.DeepEqual(status, baseline) {
		d.Status = status
	}
	return d
}

type machine struct {
	app      *doodbav1.Doodba
	observed Observed
	image    string
	status   *doodbav1.DoodbaStatus
	decision *Decision
}

// step evaluates the current phase once. It returns true when it moved to a
// phase that should be evaluated again in the same decision.
func (m *machine) step() bool {
	if m.app.Spec.Suspend {
		m.suspend()
		return false
	}

	switch m.status.Phase {
	case doodbav1.PhaseSuspended:
		m.enterPending()
		return true
	case doodbav1.PhasePending:
		return m.pending()
	case doodbav1.PhaseCreating:
		return m.creating()
	case doodbav1.PhaseUpgrading:
		return m.upgrading()
	case doodbav1.PhaseRunning:
		return m.running()
	case doodbav1.PhaseFailed:
		return m.failed()
	default:
		m.await()
		return false
	}
}

func (m *machine) suspend() {
	m.transition(doodbav1.PhaseSuspended)
	m.status.Ready = false
	m.await()
}

func (m *machine) pending() bool {
	st := m.status

	// Installed before: the hook has run, re-derive from the installed image.
	if st.LastAppliedImage != "" {
		if st.LastAppliedImage != m.image {
			m.enterUpgrading()
		} else {
			m.enterRunning()
		}
		return true
	}

	if m.app.Spec.BeforeCreate == "" {
		m.enterRunning()
		return true
	}

	if job := m.observed.BeforeCreateJob; job != nil && children.JobOutcome(job) == children.JobComplete {
		m.enterRunning()
		return true
	}

	m.ensureJob(EnsureBeforeCreateJob, m.image)
	m.transition(doodbav1.PhaseCreating)
	st.Ready = false
	st.BeforeCreateJob = &doodbav1.JobReference{Name: m.app.BeforeCreateJobName()}
	m.await()
	return false
}

func (m *machine) creating() bool {
	job := m.observed.BeforeCreateJob
	if job == nil {
		if m.app.Spec.BeforeCreate == "" {
			m.enterRunning()
			return true
		}
		m.ensureJob(EnsureBeforeCreateJob, m.image)
		m.status.BeforeCreateJob = &doodbav1.JobReference{Name: m.app.BeforeCreateJobName()}
		m.await()
		return false
	}

	switch children.JobOutcome(job) {
	case children.JobComplete:
		m.enterRunning()
		return true
	case children.JobFailed:
		m.enterFailed()
		return false
	default:
		m.await()
		return false
	}
}

func (m *machine) upgrading() bool {
	st := m.status
	if st.TargetImage != m.image {
		st.TargetImage = m.image
	}
	st.Ready = false

	if m.app.Spec.BeforeUpdate == "" {
		m.enterRunning()
		return true
	}

	job := m.observed.BeforeUpdateJob
	if job != nil && children.JobTargetImage(job) != st.TargetImage {
		m.act(Action{Kind: DeleteBeforeUpdateJob})
		st.BeforeUpdateJob = nil
		m.decision.Directive = RequeueSoon
		return false
	}

	if job != nil {
		st.BeforeUpdateJob = &doodbav1.JobReference{Name: job.Name}
		switch children.JobOutcome(job) {
		case children.JobComplete:
			m.enterRunning()
			return true
		case children.JobFailed:
			m.enterFailed()
			return false
		default:
			m.await()
			return false
		}
	}

	if pending := m.scaleDownPending(); len(pending) > 0 {
		m.act(Action{Kind: ScaleForUpgrade, Image: m.installedImage(), Replicas: pending})
		m.decision.Directive = RequeueSoon
		return false
	}

	m.ensureJob(EnsureBeforeUpdateJob, st.TargetImage)
	st.BeforeUpdateJob = &doodbav1.JobReference{Name: m.app.BeforeUpdateJobName()}
	m.await()
	return false
}

func (m *machine) running() bool {
	st := m.status
	if st.LastAppliedImage != "" && st.LastAppliedImage != m.image {
		m.enterUpgrading()
		return true
	}

	// A Running status without an installed image is adopted as is.
	st.LastAppliedImage = m.image
	st.Ready = true
	m.act(Action{Kind: ApplyChildren, Image: m.image, Replicas: children.DeclaredReplicas(m.app)})
	m.decision.Directive = Resync
	return false
}

func (m *machine) failed() bool {
	st := m.status
	st.Ready = false

	if st.TargetImage != "" {
		switch {
		case m.image == st.LastAppliedImage:
			// Rolled back to the installed image; nothing to migrate.
			m.enterRunning()
			return true
		case m.image != st.TargetImage:
			m.enterUpgrading()
			return true
		case m.observed.BeforeUpdateJob == nil:
			m.enterUpgrading()
			return true
		}
		m.await()
		return false
	}

	if m.observed.BeforeCreateJob == nil {
		m.enterPending()
		return true
	}
	m.await()
	return false
}

// scaleDownPending returns the upgrade replica counts of instances whose
// Deployment has not scaled down to them yet. Missing Deployments count as
// scaled down.
func (m *machine) scaleDownPending() map[string]int32 {
	pending := make(map[string]int32)
	for name, target := range children.UpgradeReplicas(m.app) {
		dep, ok := m.observed.Deployments[name]
		if !ok || dep == nil {
			continue
		}
		desired := int32(1)
		if dep.Spec.Replicas != nil {
			desired = *dep.Spec.Replicas
		}
		if desired > target || dep.Status.Replicas > target {
			pending[name] = target
		}
	}
	return pending
}

// installedImage is the image Deployments keep while an upgrade is in progress.
func (m *machine) installedImage() string {
	if m.status.LastAppliedImage != "" {
		return m.status.LastAppliedImage
	}
	return m.image
}

func (m *machine) enterPending() {
	m.transition(doodbav1.PhasePending)
	m.status.Ready = false
	m.status.BeforeCreateJob = nil
	m.status.BeforeUpdateJob = nil
}

func (m *machine) enterUpgrading() {
	m.transition(doodbav1.PhaseUpgrading)
	m.status.Ready = false
	m.status.TargetImage = m.image
	m.status.BeforeUpdateJob = nil
}

func (m *machine) enterRunning() {
	m.transition(doodbav1.PhaseRunning)
	m.status.Ready = true
	m.status.LastAppliedImage = m.image
	m.status.TargetImage = ""
	m.status.BeforeCreateJob = nil
	m.status.BeforeUpdateJob = nil
}

func (m *machine) enterFailed() {
	m.transition(doodbav1.PhaseFailed)
	m.status.Ready = false
	m.await()
}

func (m *machine) transition(to doodbav1.Phase) {
	if m.status.Phase == to {
		return
	}
	m.decision.Transitions = append(m.decision.Transitions, Transition{From: m.status.Phase, To: to})
	m.status.Phase = to
}

// ensureJob creates a hook Job after the objects its pod mounts and reads.
func (m *machine) ensureJob(kind ActionKind, image string) {
	m.act(Action{Kind: ApplyConfig})
	m.act(Action{Kind: kind, Image: image})
}

func (m *machine) act(a Action) {
	m.decision.Actions = append(m.decision.Actions, a)
}

func (m *machine) await() {
	m.decision.Directive = Await
}
