package children

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

const (
	LabelName      = "app.kubernetes.io/name"
	LabelInstance  = "app.kubernetes.io/instance"
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelComponent = "app.kubernetes.io/component"

	appName = "doodba"
)

// ManagedBy is the managed-by label value on every owned object.
const ManagedBy = "doodba-operator"

// Labels returns the labels shared by every object owned by app.
func Labels(app *doodbav1.Doodba) map[string]string {
	return map[string]string{
		LabelName:      appName,
		LabelInstance:  app.Name,
		LabelManagedBy: ManagedBy,
	}
}

// ComponentLabels returns Labels plus the component label.
func ComponentLabels(app *doodbav1.Doodba, component string) map[string]string {
	l := Labels(app)
	l[LabelComponent] = component
	return l
}

// selectorLabels is the immutable subset used in Deployment selectors.
func selectorLabels(app *doodbav1.Doodba, component string) map[string]string {
	return map[string]string{
		LabelName:      appName,
		LabelInstance:  app.Name,
		LabelComponent: component,
	}
}

// ownerReference points back at app by kind, name and UID.
func ownerReference(app *doodbav1.Doodba) metav1.OwnerReference {
	return *metav1.NewControllerRef(app, doodbav1.GroupVersion.WithKind(doodbav1.Kind))
}

func objectMeta(app *doodbav1.Doodba, name, component string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:            name,
		Namespace:       app.Namespace,
		Labels:          ComponentLabels(app, component),
		OwnerReferences: []metav1.OwnerReference{ownerReference(app)},
	}
}

func mergeMaps(maps ...map[string]string) map[string]string {
	var out map[string]string
	for _, m := range maps {
		for k, v := range m {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}
