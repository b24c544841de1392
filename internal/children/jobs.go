package children

import (
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// Hook components, also used as container names.
const (
	ComponentBeforeCreate = "before-create"
	ComponentBeforeUpdate = "before-update"
)

// JobState is the observed outcome of a hook Job.
type JobState string

const (
	JobRunning  JobState = "Running"
	JobComplete JobState = "Complete"
	JobFailed   JobState = "Failed"
)

// JobOutcome reads the Job's conditions. Complete=True wins over Failed=True;
// a Job with neither is still running.
func JobOutcome(job *batchv1.Job) JobState {
	failed := false
	for _, c := range job.Status.Conditions {
		if c.Status != corev1.ConditionTrue {
			continue
		}
		switch c.Type {
		case batchv1.JobComplete:
			return JobComplete
		case batchv1.JobFailed:
			failed = true
		}
	}
	if failed {
		return JobFailed
	}
	return JobRunning
}

// BeforeCreateJob builds the Job running spec.beforeCreate with the current image.
func BeforeCreateJob(app *doodbav1.Doodba) *batchv1.Job {
	return hookJob(app, app.BeforeCreateJobName(), ComponentBeforeCreate, app.Spec.BeforeCreate, app.ImageRef())
}

// BeforeUpdateJob builds the Job running spec.beforeUpdate with targetImage,
// the image being upgraded to. The Job is annotated with targetImage so a
// Job left over from an earlier upgrade can be told apart.
func BeforeUpdateJob(app *doodbav1.Doodba, targetImage string) *batchv1.Job {
	job := hookJob(app, app.BeforeUpdateJobName(), ComponentBeforeUpdate, app.Spec.BeforeUpdate, targetImage)
	job.Annotations = map[string]string{doodbav1.TargetImageAnnotation: targetImage}
	return job
}

// JobTargetImage returns the image a before-update Job was created for.
func JobTargetImage(job *batchv1.Job) string {
	return job.Annotations[doodbav1.TargetImageAnnotation]
}

func hookJob(app *doodbav1.Doodba, name, component, command, image string) *batchv1.Job {
	c := container(app, component, image, nil)
	c.Command = []string{"/bin/bash"}
	c.Args = []string{"-c", HookScript(command)}

	meta := objectMeta(app, name, component)
	return &batchv1.Job{
		ObjectMeta: meta,
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				ObjectMeta: podMeta(meta.Labels, nil),
				Spec:       podSpec(app, c, nil),
			},
		},
	}
}
