package v1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

var (
	// GroupVersion is group version used to register these objects.
	GroupVersion = schema.GroupVersion{Group: "doodba.glo.systems", Version: "v1"}

	// SchemeBuilder is used to add go types to the GroupVersionKind scheme.
	SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

	// AddToScheme adds the types in this group-version to the given scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

const (
	// Kind is the kind of the Doodba resource.
	Kind = "Doodba"

	// Plural is the resource name used in API paths.
	Plural = "doodbas"

	// Finalizer guards Doodba deletion until the operator has cleaned up.
	// Only the operator adds or removes it.
	Finalizer = "doodba.glo.systems"

	// TargetImageAnnotation records on a before-update Job the image it migrates to.
	TargetImageAnnotation = "doodba.glo.systems/target-image"
)
