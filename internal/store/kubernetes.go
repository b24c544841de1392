package store

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// kubernetesStore implements Store on top of a controller-runtime client.
type kubernetesStore struct {
	client       client.Client
	fieldManager string
}

// NewKubernetesStore creates a Store talking to the cluster described by config.
func NewKubernetesStore(config *rest.Config, fieldManager string) (Store, error) {
	c, err := client.New(config, client.Options{
		Scheme: NewScheme(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return NewStoreForClient(c, fieldManager), nil
}

// NewStoreForClient wraps an existing client, e.g. a cache-backed one.
func NewStoreForClient(c client.Client, fieldManager string) Store {
	if fieldManager == "" {
		fieldManager = DefaultFieldManager
	}
	return &kubernetesStore{client: c, fieldManager: fieldManager}
}

func (k *kubernetesStore) Get(ctx context.Context, key client.ObjectKey, obj client.Object) error {
	return k.client.Get(ctx, key, obj)
}

func (k *kubernetesStore) List(ctx context.Context, list client.ObjectList, opts ...client.ListOption) error {
	return k.client.List(ctx, list, opts...)
}

func (k *kubernetesStore) Create(ctx context.Context, obj client.Object) error {
	return k.client.Create(ctx, obj, client.FieldOwner(k.fieldManager))
}

func (k *kubernetesStore) Apply(ctx context.Context, obj client.Object) error {
	data, err := k.applyDocument(obj, false)
	if err != nil {
		return err
	}
	return k.client.Patch(ctx, obj, client.RawPatch(types.ApplyPatchType, data),
		client.ForceOwnership, client.FieldOwner(k.fieldManager))
}

func (k *kubernetesStore) ApplyStatus(ctx context.Context, obj client.Object) error {
	data, err := k.applyDocument(obj, true)
	if err != nil {
		return err
	}
	return k.client.Status().Patch(ctx, obj, client.RawPatch(types.ApplyPatchType, data),
		client.ForceOwnership, client.FieldOwner(k.fieldManager))
}

func (k *kubernetesStore) Update(ctx context.Context, obj client.Object) error {
	return k.client.Update(ctx, obj, client.FieldOwner(k.fieldManager))
}

func (k *kubernetesStore) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	return k.client.Delete(ctx, obj, opts...)
}

// applyDocument renders obj as an apply configuration. Server-populated
// metadata is dropped so the patch only asserts fields this manager owns.
// For status applies only identity and status are sent.
func (k *kubernetesStore) applyDocument(obj client.Object, statusOnly bool) ([]byte, error) {
	gvk, err := apiutil.GVKForObject(obj, k.client.Scheme())
	if err != nil {
		return nil, err
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s %s/%s: %w", gvk.Kind, obj.GetNamespace(), obj.GetName(), err)
	}
	u := &unstructured.Unstructured{Object: content}
	u.SetGroupVersionKind(gvk)

	doc := applyShape(u, statusOnly)
	data, err := json.Marshal(doc.Object)
	if err != nil {
		return nil, fmt.Errorf("failed to encode apply patch for %s %s/%s: %w", gvk.Kind, obj.GetNamespace(), obj.GetName(), err)
	}
	return data, nil
}

// applyShape strips u down to what an apply request should carry.
func applyShape(u *unstructured.Unstructured, statusOnly bool) *unstructured.Unstructured {
	out := &unstructured.Unstructured{Object: map[string]interface{}{}}
	out.SetGroupVersionKind(u.GroupVersionKind())
	out.SetName(u.GetName())
	out.SetNamespace(u.GetNamespace())

	if statusOnly {
		if status, ok := u.Object["status"]; ok {
			out.Object["status"] = status
		}
		return out
	}

	out.SetLabels(u.GetLabels())
	out.SetAnnotations(u.GetAnnotations())
	out.SetOwnerReferences(u.GetOwnerReferences())
	for key, value := range u.Object {
		switch key {
		case "apiVersion", "kind", "metadata", "status":
			continue
		}
		out.Object[key] = value
	}
	return out
}
