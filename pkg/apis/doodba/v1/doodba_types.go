package v1

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DoodbaSpec defines the desired state of Doodba
type DoodbaSpec struct {
	// Image is the container image repository to run.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Image string `json:"image"`

	// Tag is the image tag to run.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Tag string `json:"tag"`

	// ImagePullPolicy defaults to IfNotPresent.
	// +kubebuilder:validation:Enum=Always;Never;IfNotPresent
	ImagePullPolicy corev1.PullPolicy `json:"imagePullPolicy,omitempty"`

	// Database describes how to reach the PostgreSQL database.
	Database Database `json:"database"`

	// Filestore describes the persistent volume holding the Odoo filestore.
	Filestore FileStore `json:"filestore"`

	// ExtraVolumes are added to every pod.
	ExtraVolumes []corev1.Volume `json:"extraVolumes,omitempty"`

	// ExtraVolumeMounts are added to every container.
	ExtraVolumeMounts []corev1.VolumeMount `json:"extraVolumeMounts,omitempty"`

	// ExtraEnv is added to every container.
	ExtraEnv []corev1.EnvVar `json:"extraEnv,omitempty"`

	// Config holds Odoo server options.
	Config *OdooConfig `json:"config,omitempty"`

	// Suspend pauses reconciliation of child resources.
	// +kubebuilder:default=false
	Suspend bool `json:"suspend,omitempty"`

	// Instances are the deployments to run, in order.
	Instances []Instance `json:"instances,omitempty"`

	// BeforeCreate is run as a Job before the first start (i.e. init a database using click-odoo).
	BeforeCreate string `json:"beforeCreate,omitempty"`

	// BeforeUpdate is run as a Job before a new image is rolled out (i.e. upgrade a database using click-odoo).
	BeforeUpdate string `json:"beforeUpdate,omitempty"`
}

// Database holds the database connection descriptors.
type Database struct {
	Host     *corev1.ConfigMapKeySelector `json:"host,omitempty"`
	Port     *corev1.ConfigMapKeySelector `json:"port,omitempty"`
	Username *corev1.SecretKeySelector    `json:"username,omitempty"`
	Password *corev1.SecretKeySelector    `json:"password,omitempty"`
	Database string                       `json:"database,omitempty"`
}

// FileStore describes the filestore volume.
type FileStore struct {
	// AccessModes defaults to ReadWriteMany.
	AccessModes []corev1.PersistentVolumeAccessMode `json:"accessModes,omitempty"`

	// Size of the claim created by the operator.
	Size *resource.Quantity `json:"size,omitempty"`

	// StorageClassName of the claim created by the operator.
	StorageClassName *string `json:"storageClassName,omitempty"`

	// ExistingClaim uses a claim managed elsewhere instead of creating one.
	ExistingClaim string `json:"existingClaim,omitempty"`

	// Annotations are set on the claim created by the operator.
	Annotations map[string]string `json:"annotations,omitempty"`
}

// OdooConfig holds Odoo server options.
type OdooConfig struct {
	WithoutDemo   bool                      `json:"withoutDemo,omitempty"`
	ListDatabase  bool                      `json:"listDatabase,omitempty"`
	DBFilter      string                    `json:"dbFilter,omitempty"`
	AdminPassword *corev1.SecretKeySelector `json:"adminPassword,omitempty"`
}

// Instance is one deployment of the installation, e.g. web or queue workers.
type Instance struct {
	// Enabled instances get child resources; disabled ones are skipped.
	Enabled bool `json:"enabled"`

	// Name is appended to the Doodba name to form child resource names.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern="^[a-z0-9]([-a-z0-9]*[a-z0-9])?$"
	Name string `json:"name"`

	// ExtraConfig is appended to the rendered odoo.conf of this instance.
	ExtraConfig string `json:"extraConfig,omitempty"`

	// Replicas is the declared replica count while Running.
	// +kubebuilder:validation:Minimum=0
	Replicas int32 `json:"replicas"`

	ExtraEnv           []corev1.EnvVar            `json:"extraEnv,omitempty"`
	SecurityContext    *corev1.SecurityContext    `json:"securityContext,omitempty"`
	PodSecurityContext *corev1.PodSecurityContext `json:"podSecurityContext,omitempty"`
	PodAnnotations     map[string]string          `json:"podAnnotations,omitempty"`
	Scheduling         *Scheduling                `json:"scheduling,omitempty"`

	// ScaleDuringUpgrade scales this instance down while the before-update Job runs.
	ScaleDuringUpgrade bool `json:"scaleDuringUpgrade,omitempty"`

	// Ports to expose; a Service is created when any are declared.
	Ports []corev1.ContainerPort `json:"ports,omitempty"`

	// Ingress rules for this instance.
	Ingress []InstanceIngress `json:"ingress,omitempty"`

	// Command runs instead of the image entrypoint.
	Command string `json:"command,omitempty"`
}

// InstanceIngress exposes an instance port on a set of hosts.
type InstanceIngress struct {
	Enabled          bool              `json:"enabled"`
	Hosts            []string          `json:"hosts"`
	Port             int32             `json:"port"`
	IngressClassName *string           `json:"ingressClassName,omitempty"`
	Annotations      map[string]string `json:"annotations,omitempty"`
}

// Scheduling holds pod scheduling hints.
type Scheduling struct {
	Resources    *corev1.ResourceRequirements `json:"resources,omitempty"`
	NodeSelector map[string]string            `json:"nodeSelector,omitempty"`
	Affinity     *corev1.Affinity             `json:"affinity,omitempty"`
}

// JobReference names a hook Job owned by the Doodba.
type JobReference struct {
	Name string `json:"name"`
}

// DoodbaStatus defines the observed state of Doodba
type DoodbaStatus struct {
	// Phase is the lifecycle phase. Only the operator sets it.
	Phase Phase `json:"phase,omitempty"`

	// Ready reports whether the installation serves traffic.
	Ready bool `json:"ready"`

	// BeforeCreateJob references the active before-create Job.
	BeforeCreateJob *JobReference `json:"beforeCreateJob,omitempty"`

	// BeforeUpdateJob references the active before-update Job.
	BeforeUpdateJob *JobReference `json:"beforeUpdateJob,omitempty"`

	// LastAppliedImage is the image reference that is installed.
	LastAppliedImage string `json:"lastAppliedImage,omitempty"`

	// TargetImage is the image reference the current or last failed upgrade is for.
	TargetImage string `json:"targetImage,omitempty"`

	// ObservedGeneration is the metadata.generation the status was computed from.
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:resource:shortName=doodba
//+kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
//+kubebuilder:printcolumn:name="Ready",type="boolean",JSONPath=".status.ready"
//+kubebuilder:printcolumn:name="Image",type="string",JSONPath=".status.lastAppliedImage"
//+kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// Doodba is the Schema for the doodbas API
type Doodba struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DoodbaSpec `json:"spec,omitempty"`

	// Status is nil until the operator has reconciled the object once.
	Status *DoodbaStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// DoodbaList contains a list of Doodba
type DoodbaList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Doodba `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Doodba{}, &DoodbaList{})
}

// ImageRef returns the full image reference, image:tag.
func (d *Doodba) ImageRef() string {
	if d.Spec.Tag == "" {
		return d.Spec.Image
	}
	return d.Spec.Image + ":" + d.Spec.Tag
}

// PullPolicy returns the configured pull policy or IfNotPresent.
func (d *Doodba) PullPolicy() corev1.PullPolicy {
	if d.Spec.ImagePullPolicy == "" {
		return corev1.PullIfNotPresent
	}
	return d.Spec.ImagePullPolicy
}

// BeforeCreateJobName is the name of the before-create hook Job.
func (d *Doodba) BeforeCreateJobName() string {
	return d.Name + "-before-create"
}

// BeforeUpdateJobName is the name of the before-update hook Job.
func (d *Doodba) BeforeUpdateJobName() string {
	return d.Name + "-before-update"
}

// ConfigMapName is the name of the environment ConfigMap.
func (d *Doodba) ConfigMapName() string {
	return d.Name + "-config"
}

// FilestoreClaimName is the claim the filestore is mounted from.
func (d *Doodba) FilestoreClaimName() string {
	if d.Spec.Filestore.ExistingClaim != "" {
		return d.Spec.Filestore.ExistingClaim
	}
	return d.Name + "-filestore"
}

// InstanceName is the name shared by the Deployment, Service, Secret and Ingress of an instance.
func (d *Doodba) InstanceName(instance string) string {
	return d.Name + "-" + instance
}

// EnabledInstances returns the enabled instances in declaration order.
func (d *Doodba) EnabledInstances() []Instance {
	out := make([]Instance, 0, len(d.Spec.Instances))
	for _, i := range d.Spec.Instances {
		if i.Enabled {
			out = append(out, i)
		}
	}
	return out
}

// CurrentPhase returns the phase from status, or the empty phase when status is absent.
func (d *Doodba) CurrentPhase() Phase {
	if d.Status == nil {
		return ""
	}
	return d.Status.Phase
}
