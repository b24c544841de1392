// Package storetest provides an in-process store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"

	"doodba-operator/internal/store"
)

type memoryKey struct {
	gvk       schema.GroupVersionKind
	namespace string
	name      string
}

// MemoryStore is an in-process store.Store.
//
// Objects are held in unstructured form. Applies that do not change an
// object leave its resourceVersion untouched. Deleting an object that still
// carries finalizers only sets its deletionTimestamp; the object is removed
// once an Update drops the last finalizer. Removing an object deletes every
// object whose owner references point at its UID.
type MemoryStore struct {
	mu      sync.Mutex
	scheme  *runtime.Scheme
	objects map[memoryKey]*unstructured.Unstructured
	version int64
	writes  int
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore. A nil scheme means store.NewScheme().
func NewMemoryStore(scheme *runtime.Scheme) *MemoryStore {
	if scheme == nil {
		scheme = store.NewScheme()
	}
	return &MemoryStore{
		scheme:  scheme,
		objects: make(map[memoryKey]*unstructured.Unstructured),
	}
}

// Writes returns how many mutations the store has committed.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) Get(_ context.Context, key client.ObjectKey, obj client.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.keyFor(obj, key.Namespace, key.Name)
	if err != nil {
		return err
	}
	stored, ok := m.objects[k]
	if !ok {
		return notFound(k)
	}
	return m.decode(stored, obj)
}

func (m *MemoryStore) List(_ context.Context, list client.ObjectList, opts ...client.ListOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	listOpts := (&client.ListOptions{}).ApplyOptions(opts)
	listGVK, err := apiutil.GVKForObject(list, m.scheme)
	if err != nil {
		return err
	}
	itemGVK := listGVK.GroupVersion().WithKind(strings.TrimSuffix(listGVK.Kind, "List"))

	keys := make([]memoryKey, 0)
	for k, u := range m.objects {
		if k.gvk != itemGVK {
			continue
		}
		if listOpts.Namespace != "" && k.namespace != listOpts.Namespace {
			continue
		}
		if listOpts.LabelSelector != nil && !listOpts.LabelSelector.Matches(labels.Set(u.GetLabels())) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].namespace != keys[j].namespace {
			return keys[i].namespace < keys[j].namespace
		}
		return keys[i].name < keys[j].name
	})
	if listOpts.Limit > 0 && int64(len(keys)) > listOpts.Limit {
		keys = keys[:listOpts.Limit]
	}

	items := make([]runtime.Object, 0, len(keys))
	for _, k := range keys {
		item, err := m.scheme.New(itemGVK)
		if err != nil {
			return err
		}
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(m.objects[k].DeepCopy().Object, item); err != nil {
			return err
		}
		items = append(items, item)
	}
	return meta.SetList(list, items)
}

func (m *MemoryStore) Create(_ context.Context, obj client.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj.GetName() == "" && obj.GetGenerateName() != "" {
		obj.SetName(obj.GetGenerateName() + uuid.NewString()[:5])
	}
	k, err := m.keyFor(obj, obj.GetNamespace(), obj.GetName())
	if err != nil {
		return err
	}
	if k.name == "" {
		return apierrors.NewBadRequest("name or generateName is required")
	}
	if _, exists := m.objects[k]; exists {
		return apierrors.NewAlreadyExists(groupResource(k.gvk), k.name)
	}

	u, err := m.encode(obj, k.gvk)
	if err != nil {
		return err
	}
	u.SetUID(types.UID(uuid.NewString()))
	u.SetGeneration(1)
	u.SetCreationTimestamp(metav1.NewTime(time.Now().Truncate(time.Second)))
	u.SetDeletionTimestamp(nil)
	u.SetResourceVersion(m.nextVersion())
	m.objects[k] = u
	m.writes++

	return m.decode(u, obj)
}

func (m *MemoryStore) Apply(ctx context.Context, obj client.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.keyFor(obj, obj.GetNamespace(), obj.GetName())
	if err != nil {
		return err
	}
	applied, err := m.encode(obj, k.gvk)
	if err != nil {
		return err
	}
	unstructured.RemoveNestedField(applied.Object, "status")
	applied.SetLabels(applied.GetLabels())
	applied.SetAnnotations(applied.GetAnnotations())
	applied.SetOwnerReferences(applied.GetOwnerReferences())

	stored, ok := m.objects[k]
	if !ok {
		applied.SetUID(types.UID(uuid.NewString()))
		applied.SetGeneration(1)
		applied.SetCreationTimestamp(metav1.NewTime(time.Now().Truncate(time.Second)))
		applied.SetFinalizers(nil)
		applied.SetDeletionTimestamp(nil)
		applied.SetResourceVersion(m.nextVersion())
		m.objects[k] = applied
		m.writes++
		return m.decode(applied, obj)
	}

	next := stored.DeepCopy()
	for key := range next.Object {
		switch key {
		case "apiVersion", "kind", "metadata", "status":
			continue
		}
		if _, keep := applied.Object[key]; !keep {
			delete(next.Object, key)
		}
	}
	for key, value := range applied.Object {
		switch key {
		case "apiVersion", "kind", "metadata", "status":
			continue
		}
		next.Object[key] = value
	}
	next.SetLabels(applied.GetLabels())
	next.SetAnnotations(applied.GetAnnotations())
	next.SetOwnerReferences(applied.GetOwnerReferences())

	m.commit(k, stored, next)
	return m.decode(m.objects[k], obj)
}

func (m *MemoryStore) ApplyStatus(_ context.Context, obj client.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.keyFor(obj, obj.GetNamespace(), obj.GetName())
	if err != nil {
		return err
	}
	stored, ok := m.objects[k]
	if !ok {
		return notFound(k)
	}
	applied, err := m.encode(obj, k.gvk)
	if err != nil {
		return err
	}

	next := stored.DeepCopy()
	if status, found := applied.Object["status"]; found {
		next.Object["status"] = status
	} else {
		delete(next.Object, "status")
	}

	m.commit(k, stored, next)
	return m.decode(m.objects[k], obj)
}

func (m *MemoryStore) Update(_ context.Context, obj client.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.keyFor(obj, obj.GetNamespace(), obj.GetName())
	if err != nil {
		return err
	}
	stored, ok := m.objects[k]
	if !ok {
		return notFound(k)
	}
	if rv := obj.GetResourceVersion(); rv != "" && rv != stored.GetResourceVersion() {
		return apierrors.NewConflict(groupResource(k.gvk), k.name,
			fmt.Errorf("the object has been modified; please apply your changes to the latest version and try again"))
	}

	next, err := m.encode(obj, k.gvk)
	if err != nil {
		return err
	}
	if status, found := stored.Object["status"]; found {
		next.Object["status"] = status
	} else {
		delete(next.Object, "status")
	}
	next.SetUID(stored.GetUID())
	next.SetCreationTimestamp(stored.GetCreationTimestamp())
	next.SetDeletionTimestamp(stored.GetDeletionTimestamp())
	next.SetGeneration(stored.GetGeneration())
	next.SetResourceVersion(stored.GetResourceVersion())

	if next.GetDeletionTimestamp() != nil && len(next.GetFinalizers()) == 0 {
		m.remove(k)
		return m.decode(next, obj)
	}

	m.commit(k, stored, next)
	return m.decode(m.objects[k], obj)
}

func (m *MemoryStore) Delete(_ context.Context, obj client.Object, _ ...client.DeleteOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.keyFor(obj, obj.GetNamespace(), obj.GetName())
	if err != nil {
		return err
	}
	if _, ok := m.objects[k]; !ok {
		return notFound(k)
	}
	m.deleteLocked(k)
	return nil
}

func (m *MemoryStore) deleteLocked(k memoryKey) {
	stored, ok := m.objects[k]
	if !ok {
		return
	}
	if len(stored.GetFinalizers()) > 0 {
		if stored.GetDeletionTimestamp() == nil {
			next := stored.DeepCopy()
			now := metav1.NewTime(time.Now().Truncate(time.Second))
			next.SetDeletionTimestamp(&now)
			next.SetResourceVersion(m.nextVersion())
			m.objects[k] = next
			m.writes++
		}
		return
	}
	m.remove(k)
}

// remove drops k and garbage-collects its dependents.
func (m *MemoryStore) remove(k memoryKey) {
	stored, ok := m.objects[k]
	if !ok {
		return
	}
	delete(m.objects, k)
	m.writes++

	uid := stored.GetUID()
	var dependents []memoryKey
	for ck, child := range m.objects {
		if ck.namespace != k.namespace {
			continue
		}
		for _, ref := range child.GetOwnerReferences() {
			if ref.UID == uid {
				dependents = append(dependents, ck)
				break
			}
		}
	}
	for _, ck := range dependents {
		m.deleteLocked(ck)
	}
}

// commit stores next if it differs from stored, bumping resourceVersion and,
// when anything outside metadata and status changed, generation.
func (m *MemoryStore) commit(k memoryKey, stored, next *unstructured.Unstructured) {
	if equality.Semantic.DeepEqual(stored.Object, next.Object) {
		return
	}
	if !equality.Semantic.DeepEqual(specOf(stored), specOf(next)) {
		next.SetGeneration(stored.GetGeneration() + 1)
	}
	next.SetResourceVersion(m.nextVersion())
	m.objects[k] = next
	m.writes++
}

func specOf(u *unstructured.Unstructured) map[string]interface{} {
	out := make(map[string]interface{}, len(u.Object))
	for key, value := range u.Object {
		switch key {
		case "metadata", "status":
			continue
		}
		out[key] = value
	}
	return out
}

func (m *MemoryStore) nextVersion() string {
	m.version++
	return strconv.FormatInt(m.version, 10)
}

func (m *MemoryStore) keyFor(obj runtime.Object, namespace, name string) (memoryKey, error) {
	gvk, err := apiutil.GVKForObject(obj, m.scheme)
	if err != nil {
		return memoryKey{}, err
	}
	return memoryKey{gvk: gvk, namespace: namespace, name: name}, nil
}

func (m *MemoryStore) encode(obj client.Object, gvk schema.GroupVersionKind) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s %s/%s: %w", gvk.Kind, obj.GetNamespace(), obj.GetName(), err)
	}
	u := &unstructured.Unstructured{Object: runtime.DeepCopyJSON(content)}
	u.SetGroupVersionKind(gvk)
	unstructured.RemoveNestedField(u.Object, "metadata", "managedFields")
	return u, nil
}

// decode overwrites obj with the content of u.
func (m *MemoryStore) decode(u *unstructured.Unstructured, obj client.Object) error {
	fresh, err := m.scheme.New(u.GroupVersionKind())
	if err != nil {
		return err
	}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.DeepCopy().Object, fresh); err != nil {
		return err
	}
	dst := reflect.ValueOf(obj)
	src := reflect.ValueOf(fresh)
	if dst.Type() != src.Type() {
		return fmt.Errorf("cannot decode %s into %T", u.GroupVersionKind().Kind, obj)
	}
	dst.Elem().Set(src.Elem())
	return nil
}

func groupResource(gvk schema.GroupVersionKind) schema.GroupResource {
	return schema.GroupResource{Group: gvk.Group, Resource: strings.ToLower(gvk.Kind) + "s"}
}

func notFound(k memoryKey) error {
	return apierrors.NewNotFound(groupResource(k.gvk), k.name)
}
