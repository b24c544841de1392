package children

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// ConfigChecksumAnnotation rolls instance pods when their odoo.conf changes.
const ConfigChecksumAnnotation = "doodba.glo.systems/config-checksum"

const componentConfig = "config"

var defaultFilestoreSize = resource.MustParse("10Gi")

func podMeta(labels, annotations map[string]string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Labels:      mergeMaps(labels),
		Annotations: mergeMaps(annotations),
	}
}

// ConfigMap builds <name>-config with the non-secret Odoo environment.
func ConfigMap(app *doodbav1.Doodba) *corev1.ConfigMap {
	data := map[string]string{
		EnvPGDatabase:  app.Spec.Database.Database,
		EnvProxyMode:   strconv.FormatBool(anyIngress(app)),
		EnvWithoutDemo: "false",
		EnvListDB:      "false",
		EnvDBFilter:    "",
	}
	if cfg := app.Spec.Config; cfg != nil {
		if cfg.WithoutDemo {
			data[EnvWithoutDemo] = "all"
		}
		data[EnvListDB] = strconv.FormatBool(cfg.ListDatabase)
		data[EnvDBFilter] = cfg.DBFilter
	}
	return &corev1.ConfigMap{
		ObjectMeta: objectMeta(app, app.ConfigMapName(), componentConfig),
		Data:       data,
	}
}

// Secret builds <name>-<instance> holding the rendered odoo.conf.
func Secret(app *doodbav1.Doodba, instance doodbav1.Instance) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: objectMeta(app, app.InstanceName(instance.Name), instance.Name),
		Type:       corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			odooConfKey: []byte(OdooConf(app, instance)),
		},
	}
}

// FilestoreClaim builds <name>-filestore, or returns nil when the Doodba
// references an existing claim.
func FilestoreClaim(app *doodbav1.Doodba) *corev1.PersistentVolumeClaim {
	fs := app.Spec.Filestore
	if fs.ExistingClaim != "" {
		return nil
	}

	modes := fs.AccessModes
	if len(modes) == 0 {
		modes = []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany}
	}
	size := defaultFilestoreSize.DeepCopy()
	if fs.Size != nil {
		size = fs.Size.DeepCopy()
	}

	meta := objectMeta(app, app.FilestoreClaimName(), filestoreVolume)
	meta.Annotations = mergeMaps(fs.Annotations)
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: meta,
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      append([]corev1.PersistentVolumeAccessMode(nil), modes...),
			StorageClassName: fs.StorageClassName,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: size},
			},
		},
	}
}

// Deployment builds <name>-<instance> running image with the given replica count.
func Deployment(app *doodbav1.Doodba, instance doodbav1.Instance, image string, replicas int32) *appsv1.Deployment {
	c := container(app, "odoo", image, &instance)

	annotations := mergeMaps(instance.PodAnnotations, map[string]string{
		ConfigChecksumAnnotation: checksum(OdooConf(app, instance)),
	})

	return &appsv1.Deployment{
		ObjectMeta: objectMeta(app, app.InstanceName(instance.Name), instance.Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels(app, instance.Name)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: podMeta(ComponentLabels(app, instance.Name), annotations),
				Spec:       podSpec(app, c, &instance),
			},
		},
	}
}

// Service builds <name>-<instance>, or returns nil when the instance declares no ports.
func Service(app *doodbav1.Doodba, instance doodbav1.Instance) *corev1.Service {
	if len(instance.Ports) == 0 {
		return nil
	}

	ports := make([]corev1.ServicePort, 0, len(instance.Ports))
	for _, p := range instance.Ports {
		protocol := p.Protocol
		if protocol == "" {
			protocol = corev1.ProtocolTCP
		}
		ports = append(ports, corev1.ServicePort{
			Name:       portName(p),
			Port:       p.ContainerPort,
			TargetPort: intstr.FromInt32(p.ContainerPort),
			Protocol:   protocol,
		})
	}

	return &corev1.Service{
		ObjectMeta: objectMeta(app, app.InstanceName(instance.Name), instance.Name),
		Spec: corev1.ServiceSpec{
			Selector: selectorLabels(app, instance.Name),
			Ports:    ports,
		},
	}
}

// Ingresses builds one Ingress per enabled ingress rule of the instance.
// The first is named <name>-<instance>, later ones get an index suffix.
func Ingresses(app *doodbav1.Doodba, instance doodbav1.Instance) []*networkingv1.Ingress {
	rules := enabledIngress(instance)
	if len(rules) == 0 || len(instance.Ports) == 0 {
		return nil
	}

	service := app.InstanceName(instance.Name)
	out := make([]*networkingv1.Ingress, 0, len(rules))
	for i, ing := range rules {
		name := service
		if i > 0 {
			name = service + "-" + strconv.Itoa(i)
		}

		backend := networkingv1.IngressBackend{
			Service: &networkingv1.IngressServiceBackend{
				Name: service,
				Port: networkingv1.ServiceBackendPort{Number: ing.Port},
			},
		}
		var httpRules []networkingv1.IngressRule
		for _, host := range ing.Hosts {
			httpRules = append(httpRules, networkingv1.IngressRule{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: ptr.To(networkingv1.PathTypePrefix),
							Backend:  backend,
						}},
					},
				},
			})
		}

		meta := objectMeta(app, name, instance.Name)
		meta.Annotations = mergeMaps(ing.Annotations)
		out = append(out, &networkingv1.Ingress{
			ObjectMeta: meta,
			Spec: networkingv1.IngressSpec{
				IngressClassName: ing.IngressClassName,
				Rules:            httpRules,
			},
		})
	}
	return out
}

// DeclaredReplicas maps each enabled instance to its declared replica count.
func DeclaredReplicas(app *doodbav1.Doodba) map[string]int32 {
	out := make(map[string]int32)
	for _, i := range app.EnabledInstances() {
		out[i.Name] = i.Replicas
	}
	return out
}

// UpgradeReplicas maps each enabled instance that scales during upgrades to
// its upgrade replica count: instances serving ports keep at most one
// replica, workers without ports are stopped.
func UpgradeReplicas(app *doodbav1.Doodba) map[string]int32 {
	out := make(map[string]int32)
	for _, i := range app.EnabledInstances() {
		if !i.ScaleDuringUpgrade {
			continue
		}
		target := int32(0)
		if len(i.Ports) > 0 {
			target = min(i.Replicas, 1)
		}
		out[i.Name] = target
	}
	return out
}

// Steady builds every steady-state object of app running image, in apply
// order: storage and configuration, then workloads, then exposure.
func Steady(app *doodbav1.Doodba, image string, replicas map[string]int32) [][]client.Object {
	var workloads, exposure []client.Object

	for _, instance := range app.EnabledInstances() {
		n, ok := replicas[instance.Name]
		if !ok {
			n = instance.Replicas
		}
		workloads = append(workloads, Deployment(app, instance, image, n))

		if svc := Service(app, instance); svc != nil {
			exposure = append(exposure, svc)
		}
		for _, ing := range Ingresses(app, instance) {
			exposure = append(exposure, ing)
		}
	}
	return [][]client.Object{Config(app), workloads, exposure}
}

// Config builds the filestore claim, the ConfigMap and the instance Secrets
// of app. Hook Jobs and Deployments both depend on them.
func Config(app *doodbav1.Doodba) []client.Object {
	var objs []client.Object
	if pvc := FilestoreClaim(app); pvc != nil {
		objs = append(objs, pvc)
	}
	objs = append(objs, ConfigMap(app))
	for _, instance := range app.EnabledInstances() {
		objs = append(objs, Secret(app, instance))
	}
	return objs
}

func enabledIngress(instance doodbav1.Instance) []doodbav1.InstanceIngress {
	var out []doodbav1.InstanceIngress
	for _, ing := range instance.Ingress {
		if ing.Enabled {
			out = append(out, ing)
		}
	}
	return out
}

func anyIngress(app *doodbav1.Doodba) bool {
	for _, i := range app.EnabledInstances() {
		if len(enabledIngress(i)) > 0 {
			return true
		}
	}
	return false
}

func checksum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
