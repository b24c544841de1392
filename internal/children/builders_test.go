package children

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

func assertOwned(t *testing.T, app *doodbav1.Doodba, obj metav1.Object) {
	t.Helper()
	refs := obj.GetOwnerReferences()
	require.Len(t, refs, 1, "%s should have one owner reference", obj.GetName())
	assert.Equal(t, doodbav1.Kind, refs[0].Kind)
	assert.Equal(t, "doodba.glo.systems/v1", refs[0].APIVersion)
	assert.Equal(t, app.Name, refs[0].Name)
	assert.Equal(t, app.UID, refs[0].UID)
	require.NotNil(t, refs[0].Controller)
	assert.True(t, *refs[0].Controller)
	require.NotNil(t, refs[0].BlockOwnerDeletion)
	assert.True(t, *refs[0].BlockOwnerDeletion)

	assert.Equal(t, "doodba", obj.GetLabels()[LabelName])
	assert.Equal(t, app.Name, obj.GetLabels()[LabelInstance])
	assert.Equal(t, "doodba-operator", obj.GetLabels()[LabelManagedBy])
	assert.Equal(t, app.Namespace, obj.GetNamespace())
}

func TestJobOutcome(t *testing.T) {
	tests := []struct {
		name       string
		conditions []batchv1.JobCondition
		expected   JobState
	}{
		{"no conditions", nil, JobRunning},
		{"complete", []batchv1.JobCondition{{Type: batchv1.JobComplete, Status: corev1.ConditionTrue}}, JobComplete},
		{"failed", []batchv1.JobCondition{{Type: batchv1.JobFailed, Status: corev1.ConditionTrue}}, JobFailed},
		{"complete false", []batchv1.JobCondition{{Type: batchv1.JobComplete, Status: corev1.ConditionFalse}}, JobRunning},
		{"suspended", []batchv1.JobCondition{{Type: batchv1.JobSuspended, Status: corev1.ConditionTrue}}, JobRunning},
		{"failed then complete", []batchv1.JobCondition{
			{Type: batchv1.JobFailed, Status: corev1.ConditionTrue},
			{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
		}, JobComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &batchv1.Job{Status: batchv1.JobStatus{Conditions: tt.conditions}}
			assert.Equal(t, tt.expected, JobOutcome(job))
		})
	}
}

func TestBeforeCreateJob(t *testing.T) {
	app := testDoodba()
	job := BeforeCreateJob(app)

	assert.Equal(t, "shop-before-create", job.Name)
	assertOwned(t, app, job)
	assert.Equal(t, ComponentBeforeCreate, job.Labels[LabelComponent])

	pod := job.Spec.Template.Spec
	assert.Equal(t, corev1.RestartPolicyNever, pod.RestartPolicy)
	require.Len(t, pod.Containers, 1)
	c := pod.Containers[0]
	assert.Equal(t, "ghcr.io/acme/odoo:16.0", c.Image)
	assert.Equal(t, corev1.PullIfNotPresent, c.ImagePullPolicy)
	assert.Equal(t, []string{"/bin/bash"}, c.Command)
	require.Len(t, c.Args, 2)
	assert.Equal(t, "-c", c.Args[0])
	assert.Equal(t, "set -e\n/opt/odoo/common/entrypoint\nclick-odoo-initdb\n", c.Args[1])

	// Hooks get the filestore but no instance configuration.
	require.Len(t, pod.Volumes, 1)
	assert.Equal(t, "shop-filestore", pod.Volumes[0].PersistentVolumeClaim.ClaimName)
}

func TestBeforeUpdateJobCarriesTargetImage(t *testing.T) {
	app := testDoodba()
	job := BeforeUpdateJob(app, "ghcr.io/acme/odoo:17.0")

	assert.Equal(t, "shop-before-update", job.Name)
	assertOwned(t, app, job)
	assert.Equal(t, "ghcr.io/acme/odoo:17.0", JobTargetImage(job))
	assert.Equal(t, "ghcr.io/acme/odoo:17.0", job.Spec.Template.Spec.Containers[0].Image)
	assert.Contains(t, job.Spec.Template.Spec.Containers[0].Args[1], "click-odoo-update")
}

func TestContainerEnv(t *testing.T) {
	app := testDoodba()
	app.Spec.ExtraEnv = []corev1.EnvVar{{Name: "GLOBAL", Value: "1"}}
	app.Spec.Config.AdminPassword = &corev1.SecretKeySelector{
		LocalObjectReference: corev1.LocalObjectReference{Name: "admin"},
		Key:                  "pw",
	}
	web := app.Spec.Instances[0]
	web.ExtraEnv = []corev1.EnvVar{{Name: "LOCAL", Value: "2"}}

	vars := map[string]corev1.EnvVar{}
	var order []string
	for _, e := range env(app, &web) {
		vars[e.Name] = e
		order = append(order, e.Name)
	}

	assert.Equal(t, "pg", vars["PGHOST"].ValueFrom.ConfigMapKeyRef.Name)
	assert.Equal(t, "pg-creds", vars["PGPASSWORD"].ValueFrom.SecretKeyRef.Name)
	assert.NotContains(t, vars, "PGPORT")
	assert.NotContains(t, vars, "PGUSER")
	assert.Equal(t, "shop-config", vars[EnvPGDatabase].ValueFrom.ConfigMapKeyRef.Name)
	assert.Equal(t, "admin", vars["ADMIN_PASSWORD"].ValueFrom.SecretKeyRef.Name)
	assert.Equal(t, "GLOBAL", order[len(order)-2])
	assert.Equal(t, "LOCAL", order[len(order)-1])
}

func TestConfigMap(t *testing.T) {
	app := testDoodba()
	cm := ConfigMap(app)

	assert.Equal(t, "shop-config", cm.Name)
	assertOwned(t, app, cm)
	assert.Equal(t, "shop", cm.Data[EnvPGDatabase])
	assert.Equal(t, "true", cm.Data[EnvProxyMode])
	assert.Equal(t, "all", cm.Data[EnvWithoutDemo])
	assert.Equal(t, "false", cm.Data[EnvListDB])
	assert.Equal(t, "^shop$", cm.Data[EnvDBFilter])
}

func TestSecretRendersOdooConf(t *testing.T) {
	app := testDoodba()
	secret := Secret(app, app.Spec.Instances[0])

	assert.Equal(t, "shop-web", secret.Name)
	assertOwned(t, app, secret)
	conf := string(secret.Data[odooConfKey])
	assert.Equal(t, "[options]\nlist_db = false\nwithout_demo = all\ndbfilter = ^shop$\nproxy_mode = true\nworkers = 4\n", conf)

	queue := Secret(app, app.Spec.Instances[1])
	assert.Contains(t, string(queue.Data[odooConfKey]), "proxy_mode = false")
}

func TestOdooConfWithoutConfig(t *testing.T) {
	app := testDoodba()
	app.Spec.Config = nil
	assert.Equal(t, "[options]\nproxy_mode = false\n", OdooConf(app, doodbav1.Instance{Name: "worker"}))
}

func TestFilestoreClaim(t *testing.T) {
	app := testDoodba()
	pvc := FilestoreClaim(app)
	require.NotNil(t, pvc)

	assert.Equal(t, "shop-filestore", pvc.Name)
	assertOwned(t, app, pvc)
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany}, pvc.Spec.AccessModes)
	size := pvc.Spec.Resources.Requests[corev1.ResourceStorage]
	assert.Equal(t, "5Gi", size.String())

	app.Spec.Filestore.ExistingClaim = "legacy"
	assert.Nil(t, FilestoreClaim(app))
}

func TestDeployment(t *testing.T) {
	app := testDoodba()
	web := app.Spec.Instances[0]
	dep := Deployment(app, web, "ghcr.io/acme/odoo:15.0", 1)

	assert.Equal(t, "shop-web", dep.Name)
	assertOwned(t, app, dep)
	require.NotNil(t, dep.Spec.Replicas)
	assert.Equal(t, int32(1), *dep.Spec.Replicas)
	assert.Equal(t, map[string]string{LabelName: "doodba", LabelInstance: "shop", LabelComponent: "web"}, dep.Spec.Selector.MatchLabels)
	for k, v := range dep.Spec.Selector.MatchLabels {
		assert.Equal(t, v, dep.Spec.Template.Labels[k], "pod labels must match the selector")
	}

	c := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "ghcr.io/acme/odoo:15.0", c.Image)
	assert.Nil(t, c.Command)
	assert.Equal(t, int32(8069), c.Ports[0].ContainerPort)
	assert.NotEmpty(t, dep.Spec.Template.Annotations[ConfigChecksumAnnotation])

	var mounts []string
	for _, m := range c.VolumeMounts {
		mounts = append(mounts, m.MountPath)
	}
	assert.Contains(t, mounts, "/var/lib/odoo")
	assert.Contains(t, mounts, "/opt/odoo/custom/conf.d/99-operator.conf")
}

func TestDeploymentCommandOverride(t *testing.T) {
	app := testDoodba()
	dep := Deployment(app, app.Spec.Instances[1], app.ImageRef(), 2)

	c := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, []string{Entrypoint}, c.Command)
	assert.Equal(t, []string{"/bin/bash", "-c", "odoo --workers=0 --load=queue_job"}, c.Args)
}

func TestDeploymentChecksumFollowsConfig(t *testing.T) {
	app := testDoodba()
	before := Deployment(app, app.Spec.Instances[0], app.ImageRef(), 3)

	app.Spec.Instances[0].ExtraConfig = "workers = 8\n"
	after := Deployment(app, app.Spec.Instances[0], app.ImageRef(), 3)

	assert.NotEqual(t,
		before.Spec.Template.Annotations[ConfigChecksumAnnotation],
		after.Spec.Template.Annotations[ConfigChecksumAnnotation])
}

func TestServiceAndIngress(t *testing.T) {
	app := testDoodba()
	web := app.Spec.Instances[0]

	svc := Service(app, web)
	require.NotNil(t, svc)
	assertOwned(t, app, svc)
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, "http", svc.Spec.Ports[0].Name)
	assert.Equal(t, corev1.ProtocolTCP, svc.Spec.Ports[0].Protocol)

	assert.Nil(t, Service(app, app.Spec.Instances[1]), "instances without ports get no Service")

	ings := Ingresses(app, web)
	require.Len(t, ings, 1, "disabled ingress rules are skipped")
	ing := ings[0]
	assert.Equal(t, "shop-web", ing.Name)
	assertOwned(t, app, ing)
	require.Len(t, ing.Spec.Rules, 1)
	assert.Equal(t, "shop.example.com", ing.Spec.Rules[0].Host)
	path := ing.Spec.Rules[0].HTTP.Paths[0]
	assert.Equal(t, networkingv1.PathTypePrefix, *path.PathType)
	assert.Equal(t, "shop-web", path.Backend.Service.Name)
	assert.Equal(t, int32(8069), path.Backend.Service.Port.Number)
}

func TestReplicaPolicies(t *testing.T) {
	app := testDoodba()

	assert.Equal(t, map[string]int32{"web": 3, "queue": 2}, DeclaredReplicas(app))
	assert.Equal(t, map[string]int32{"web": 1, "queue": 0}, UpgradeReplicas(app))

	app.Spec.Instances[0].Replicas = 0
	app.Spec.Instances[1].ScaleDuringUpgrade = false
	assert.Equal(t, map[string]int32{"web": 0}, UpgradeReplicas(app))
}

func TestSteadyStages(t *testing.T) {
	app := testDoodba()
	stages := Steady(app, app.ImageRef(), map[string]int32{"web": 1})
	require.Len(t, stages, 3)

	names := func(objs []client.Object) []string {
		var out []string
		for _, o := range objs {
			out = append(out, o.GetName())
		}
		return out
	}
	assert.Equal(t, []string{"shop-filestore", "shop-config", "shop-web", "shop-queue"}, names(stages[0]))
	assert.Equal(t, []string{"shop-web", "shop-queue"}, names(stages[1]))
	assert.Equal(t, []string{"shop-web", "shop-web"}, names(stages[2]))

	web := stages[1][0].(*appsv1.Deployment)
	queue := stages[1][1].(*appsv1.Deployment)
	assert.Equal(t, int32(1), *web.Spec.Replicas)
	assert.Equal(t, int32(2), *queue.Spec.Replicas, "instances missing from the map use their declared count")
}

func TestBuildersAreDeterministic(t *testing.T) {
	app := testDoodba()
	assert.Equal(t, Steady(app, app.ImageRef(), DeclaredReplicas(app)), Steady(app, app.ImageRef(), DeclaredReplicas(app)))
	assert.Equal(t, BeforeCreateJob(app), BeforeCreateJob(app))
}
