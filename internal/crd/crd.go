// Package crd builds the CustomResourceDefinition of the Doodba kind.
package crd

import (
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// Name is the metadata.name of the CRD.
var Name = doodbav1.Plural + "." + doodbav1.GroupVersion.Group

// Build returns the Doodba CustomResourceDefinition.
func Build() *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{Name: Name},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: doodbav1.GroupVersion.Group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Kind:       doodbav1.Kind,
				ListKind:   doodbav1.Kind + "List",
				Plural:     doodbav1.Plural,
				Singular:   "doodba",
				ShortNames: []string{"doodba"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{{
				Name:    doodbav1.GroupVersion.Version,
				Served:  true,
				Storage: true,
				Subresources: &apiextensionsv1.CustomResourceSubresources{
					Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
				},
				AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
					{Name: "Phase", Type: "string", JSONPath: ".status.phase"},
					{Name: "Ready", Type: "boolean", JSONPath: ".status.ready"},
					{Name: "Image", Type: "string", JSONPath: ".status.lastAppliedImage"},
					{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
				},
				Schema: &apiextensionsv1.CustomResourceValidation{
					OpenAPIV3Schema: ptr.To(rootSchema()),
				},
			}},
		},
	}
}

// YAML returns the CRD as a YAML document.
func YAML() ([]byte, error) {
	out, err := yaml.Marshal(Build())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CRD: %w", err)
	}
	return out, nil
}

func rootSchema() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: "Doodba is an Odoo installation managed by the operator.",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"apiVersion": str(""),
			"kind":       str(""),
			"metadata":   {Type: "object"},
			"spec":       specSchema(),
			"status":     statusSchema(),
		},
	}
}

func specSchema() apiextensionsv1.JSONSchemaProps {
	image := str("Container image repository to run.")
	image.MinLength = ptr.To[int64](1)
	tag := str("Image tag to run.")
	tag.MinLength = ptr.To[int64](1)
	pullPolicy := str("Defaults to IfNotPresent.")
	pullPolicy.Enum = enum("Always", "Never", "IfNotPresent")

	return object("Desired state of the Doodba.", map[string]apiextensionsv1.JSONSchemaProps{
		"image":           image,
		"tag":             tag,
		"imagePullPolicy": pullPolicy,
		"database": object("PostgreSQL connection descriptors.", map[string]apiextensionsv1.JSONSchemaProps{
			"host":     preserved("ConfigMap key holding the database host."),
			"port":     preserved("ConfigMap key holding the database port."),
			"username": preserved("Secret key holding the database user."),
			"password": preserved("Secret key holding the database password."),
			"database": str("Database name."),
		}),
		"filestore": object("Volume holding the Odoo filestore.", map[string]apiextensionsv1.JSONSchemaProps{
			"accessModes":      arrayOf("Defaults to ReadWriteMany.", str("")),
			"size":             {XIntOrString: true, AnyOf: []apiextensionsv1.JSONSchemaProps{{Type: "integer"}, {Type: "string"}}},
			"storageClassName": str(""),
			"existingClaim":    str("Claim managed elsewhere to use instead of creating one."),
			"annotations":      stringMap("Annotations of the created claim."),
		}),
		"extraVolumes":      arrayOf("Added to every pod.", preserved("")),
		"extraVolumeMounts": arrayOf("Added to every container.", preserved("")),
		"extraEnv":          arrayOf("Added to every container.", preserved("")),
		"config": object("Odoo server options.", map[string]apiextensionsv1.JSONSchemaProps{
			"withoutDemo":   boolean(""),
			"listDatabase":  boolean(""),
			"dbFilter":      str(""),
			"adminPassword": preserved("Secret key holding the master password."),
		}),
		"suspend":      withDefault(boolean("Pauses reconciliation of child resources."), "false"),
		"instances":    arrayOf("Deployments to run, in order.", instanceSchema()),
		"beforeCreate": str("Command run as a Job before the first start."),
		"beforeUpdate": str("Command run as a Job before a new image is rolled out."),
	}, "image", "tag")
}

func instanceSchema() apiextensionsv1.JSONSchemaProps {
	name := str("Appended to the Doodba name to form child resource names.")
	name.Pattern = "^[a-z0-9]([-a-z0-9]*[a-z0-9])?$"
	replicas := apiextensionsv1.JSONSchemaProps{
		Type:        "integer",
		Format:      "int32",
		Minimum:     ptr.To[float64](0),
		Description: "Declared replica count while Running.",
	}

	return object("", map[string]apiextensionsv1.JSONSchemaProps{
		"enabled":            boolean(""),
		"name":               name,
		"extraConfig":        str("Appended to the rendered odoo.conf."),
		"replicas":           replicas,
		"extraEnv":           arrayOf("", preserved("")),
		"securityContext":    preserved(""),
		"podSecurityContext": preserved(""),
		"podAnnotations":     stringMap(""),
		"scheduling":         preserved("Resources, node selector and affinity."),
		"scaleDuringUpgrade": boolean("Scale down while the before-update Job runs."),
		"ports":              arrayOf("Ports to expose.", preserved("")),
		"ingress": arrayOf("", object("", map[string]apiextensionsv1.JSONSchemaProps{
			"enabled":          boolean(""),
			"hosts":            arrayOf("", str("")),
			"port":             {Type: "integer", Format: "int32"},
			"ingressClassName": str(""),
			"annotations":      stringMap(""),
		}, "enabled", "hosts", "port")),
		"command": str("Runs instead of the image entrypoint."),
	}, "enabled", "name", "replicas")
}

func statusSchema() apiextensionsv1.JSONSchemaProps {
	phase := str("Lifecycle phase.")
	phase.Enum = enum(
		string(doodbav1.PhasePending),
		string(doodbav1.PhaseCreating),
		string(doodbav1.PhaseRunning),
		string(doodbav1.PhaseUpgrading),
		string(doodbav1.PhaseFailed),
		string(doodbav1.PhaseSuspended),
	)
	jobRef := object("", map[string]apiextensionsv1.JSONSchemaProps{"name": str("")}, "name")

	return object("Observed state of the Doodba.", map[string]apiextensionsv1.JSONSchemaProps{
		"phase":              phase,
		"ready":              boolean("Whether the installation serves traffic."),
		"beforeCreateJob":    jobRef,
		"beforeUpdateJob":    jobRef,
		"lastAppliedImage":   str("Installed image reference."),
		"targetImage":        str("Image reference of the current or last failed upgrade."),
		"observedGeneration": {Type: "integer", Format: "int64"},
	})
}

func object(description string, props map[string]apiextensionsv1.JSONSchemaProps, required ...string) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: description,
		Properties:  props,
		Required:    required,
	}
}

func str(description string) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "string", Description: description}
}

func boolean(description string) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "boolean", Description: description}
}

func arrayOf(description string, items apiextensionsv1.JSONSchemaProps) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:        "array",
		Description: description,
		Items:       &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &items},
	}
}

func stringMap(description string) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: description,
		AdditionalProperties: &apiextensionsv1.JSONSchemaPropsOrBool{
			Allows: true,
			Schema: &apiextensionsv1.JSONSchemaProps{Type: "string"},
		},
	}
}

// preserved is an object whose content is validated by the API types it is
// copied into rather than by the CRD.
func preserved(description string) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:                   "object",
		Description:            description,
		XPreserveUnknownFields: ptr.To(true),
	}
}

func withDefault(p apiextensionsv1.JSONSchemaProps, raw string) apiextensionsv1.JSONSchemaProps {
	p.Default = &apiextensionsv1.JSON{Raw: []byte(raw)}
	return p
}

func enum(values ...string) []apiextensionsv1.JSON {
	out := make([]apiextensionsv1.JSON, 0, len(values))
	for _, v := range values {
		out = append(out, apiextensionsv1.JSON{Raw: []byte(`"` + v + `"`)})
	}
	return out
}
