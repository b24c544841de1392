package children

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

const (
	filestoreVolume    = "filestore"
	filestoreMountPath = "/var/lib/odoo"
	configVolume       = "odoo-conf"
	configMountPath    = "/opt/odoo/custom/conf.d/99-operator.conf"
	odooConfKey        = "odoo.conf"
)

// Keys of the generated ConfigMap.
const (
	EnvPGDatabase  = "PGDATABASE"
	EnvProxyMode   = "PROXY_MODE"
	EnvWithoutDemo = "WITHOUT_DEMO"
	EnvListDB      = "LIST_DB"
	EnvDBFilter    = "DB_FILTER"
)

// env returns the environment shared by every container of app.
func env(app *doodbav1.Doodba, instance *doodbav1.Instance) []corev1.EnvVar {
	db := app.Spec.Database
	var out []corev1.EnvVar

	if db.Host != nil {
		out = append(out, envFromConfigMap("PGHOST", *db.Host))
	}
	if db.Port != nil {
		out = append(out, envFromConfigMap("PGPORT", *db.Port))
	}
	if db.Username != nil {
		out = append(out, envFromSecret("PGUSER", *db.Username))
	}
	if db.Password != nil {
		out = append(out, envFromSecret("PGPASSWORD", *db.Password))
	}

	cm := app.ConfigMapName()
	for _, key := range []string{EnvPGDatabase, EnvProxyMode, EnvWithoutDemo, EnvListDB, EnvDBFilter} {
		out = append(out, envFromConfigMap(key, corev1.ConfigMapKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: cm},
			Key:                  key,
		}))
	}

	if app.Spec.Config != nil && app.Spec.Config.AdminPassword != nil {
		out = append(out, envFromSecret("ADMIN_PASSWORD", *app.Spec.Config.AdminPassword))
	}

	out = append(out, app.Spec.ExtraEnv...)
	if instance != nil {
		out = append(out, instance.ExtraEnv...)
	}
	return out
}

func envFromConfigMap(name string, sel corev1.ConfigMapKeySelector) corev1.EnvVar {
	return corev1.EnvVar{
		Name:      name,
		ValueFrom: &corev1.EnvVarSource{ConfigMapKeyRef: sel.DeepCopy()},
	}
}

func envFromSecret(name string, sel corev1.SecretKeySelector) corev1.EnvVar {
	return corev1.EnvVar{
		Name:      name,
		ValueFrom: &corev1.EnvVarSource{SecretKeyRef: sel.DeepCopy()},
	}
}

// volumes returns the pod volumes. The instance config volume is only
// present for instance pods.
func volumes(app *doodbav1.Doodba, instance *doodbav1.Instance) []corev1.Volume {
	out := []corev1.Volume{{
		Name: filestoreVolume,
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: app.FilestoreClaimName(),
			},
		},
	}}
	if instance != nil {
		out = append(out, corev1.Volume{
			Name: configVolume,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: app.InstanceName(instance.Name)},
			},
		})
	}
	for _, v := range app.Spec.ExtraVolumes {
		out = append(out, *v.DeepCopy())
	}
	return out
}

func volumeMounts(app *doodbav1.Doodba, instance *doodbav1.Instance) []corev1.VolumeMount {
	out := []corev1.VolumeMount{{
		Name:      filestoreVolume,
		MountPath: filestoreMountPath,
	}}
	if instance != nil {
		out = append(out, corev1.VolumeMount{
			Name:      configVolume,
			MountPath: configMountPath,
			SubPath:   odooConfKey,
			ReadOnly:  true,
		})
	}
	for _, m := range app.Spec.ExtraVolumeMounts {
		out = append(out, *m.DeepCopy())
	}
	return out
}

// container builds the Odoo container running image.
func container(app *doodbav1.Doodba, name, image string, instance *doodbav1.Instance) corev1.Container {
	c := corev1.Container{
		Name:            name,
		Image:           image,
		ImagePullPolicy: app.PullPolicy(),
		Env:             env(app, instance),
		VolumeMounts:    volumeMounts(app, instance),
	}
	if instance == nil {
		return c
	}

	if instance.Command != "" {
		c.Command = []string{Entrypoint}
		c.Args = []string{"/bin/bash", "-c", instance.Command}
	}
	if len(instance.Ports) > 0 {
		c.Ports = append([]corev1.ContainerPort(nil), instance.Ports...)
	}
	if instance.SecurityContext != nil {
		c.SecurityContext = instance.SecurityContext.DeepCopy()
	}
	if s := instance.Scheduling; s != nil && s.Resources != nil {
		c.Resources = *s.Resources.DeepCopy()
	}
	return c
}

// podSpec builds the pod spec for an instance, or for a hook when instance is nil.
func podSpec(app *doodbav1.Doodba, c corev1.Container, instance *doodbav1.Instance) corev1.PodSpec {
	spec := corev1.PodSpec{
		Containers: []corev1.Container{c},
		Volumes:    volumes(app, instance),
	}
	if instance == nil {
		spec.RestartPolicy = corev1.RestartPolicyNever
		return spec
	}

	if instance.PodSecurityContext != nil {
		spec.SecurityContext = instance.PodSecurityContext.DeepCopy()
	}
	if s := instance.Scheduling; s != nil {
		spec.NodeSelector = mergeMaps(s.NodeSelector)
		if s.Affinity != nil {
			spec.Affinity = s.Affinity.DeepCopy()
		}
	}
	return spec
}

func portName(p corev1.ContainerPort) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("port-%d", p.ContainerPort)
}
