/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package workload

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// stackGVR is the dynamic-client GroupVersionResource for the Stack CRD
// (zalando.org/v1).
var stackGVR = schema.GroupVersionResource{Group: "zalando.org", Version: "v1", Resource: "stacks"}

var stackSetGVR = schema.GroupVersionResource{Group: "zalando.org", Version: "v1", Resource: "stacksets"}

// Clients bundles the three client handles the adapter needs: a typed
// clientset for the built-in kinds, a dynamic client for the Stack/StackSet
// CRDs, and a discovery client to probe whether the cluster serves those
// CRDs.
type Clients struct {
	Typed     kubernetes.Interface
	Dynamic   dynamic.Interface
	Discovery discovery.DiscoveryInterface
}

// ListDeployments lists Deployments in namespace ("" lists all namespaces).
func ListDeployments(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	list, err := c.Typed.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}
	out := make([]*Workload, 0, len(list.Items))
	for i := range list.Items {
		d := &list.Items[i]
		w := fromObjectMeta(KindDeployment, "apps/v1", d.ObjectMeta)
		replicas := 1
		if d.Spec.Replicas != nil {
			replicas = int(*d.Spec.Replicas)
		}
		w.Target = NewDeploymentTarget(replicas)
		out = append(out, &w)
	}
	return out, nil
}

// ListStatefulSets lists StatefulSets in namespace ("" lists all namespaces).
func ListStatefulSets(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	list, err := c.Typed.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing statefulsets: %w", err)
	}
	out := make([]*Workload, 0, len(list.Items))
	for i := range list.Items {
		s := &list.Items[i]
		w := fromObjectMeta(KindStatefulSet, "apps/v1", s.ObjectMeta)
		replicas := 1
		if s.Spec.Replicas != nil {
			replicas = int(*s.Spec.Replicas)
		}
		w.Target = NewStatefulSetTarget(replicas)
		out = append(out, &w)
	}
	return out, nil
}

// ListCronJobs lists CronJobs in namespace ("" lists all namespaces).
func ListCronJobs(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	list, err := c.Typed.BatchV1().CronJobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing cronjobs: %w", err)
	}
	out := make([]*Workload, 0, len(list.Items))
	for i := range list.Items {
		cj := &list.Items[i]
		w := fromObjectMeta(KindCronJob, "batch/v1", cj.ObjectMeta)
		w.Target = NewCronJobTarget(cj.Spec.Suspend != nil && *cj.Spec.Suspend)
		out = append(out, &w)
	}
	return out, nil
}

// ListHorizontalPodAutoscalers lists HPAs in namespace ("" lists all
// namespaces) using the autoscaling/v2 API.
func ListHorizontalPodAutoscalers(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	list, err := c.Typed.AutoscalingV2().HorizontalPodAutoscalers(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing horizontalpodautoscalers: %w", err)
	}
	out := make([]*Workload, 0, len(list.Items))
	for i := range list.Items {
		h := &list.Items[i]
		w := fromObjectMeta(KindHorizontalPodAutoscaler, "autoscaling/v2", h.ObjectMeta)
		minReplicas := 1
		if h.Spec.MinReplicas != nil {
			minReplicas = int(*h.Spec.MinReplicas)
		}
		w.Target = NewHorizontalPodAutoscalerTarget(minReplicas)
		out = append(out, &w)
	}
	return out, nil
}

// ListStacks lists zalando.org/v1 Stack resources through the dynamic
// client. If the CRD isn't installed on the cluster, it returns an empty
// list rather than an error.
func ListStacks(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	return listStackLike(ctx, c, namespace, stackGVR, KindStack)
}

// ListStackSets lists zalando.org/v1 StackSet resources, tolerating a
// missing CRD the same way ListStacks does.
func ListStackSets(ctx context.Context, c Clients, namespace string) ([]*Workload, error) {
	return listStackLike(ctx, c, namespace, stackSetGVR, KindStackSet)
}

func listStackLike(ctx context.Context, c Clients, namespace string, gvr schema.GroupVersionResource, kind string) ([]*Workload, error) {
	if served, err := stackAPIServed(c, gvr.Resource); err == nil && !served {
		return nil, nil
	}

	var (
		list *unstructured.UnstructuredList
		err  error
	)
	if namespace == "" {
		list, err = c.Dynamic.Resource(gvr).Namespace(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	} else {
		list, err = c.Dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	}
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	out := make([]*Workload, 0, len(list.Items))
	for i := range list.Items {
		obj := &list.Items[i]
		w := fromObjectMeta(kind, StackAPIVersion, objectMetaFromUnstructured(obj))

		specReplicas, hasSpecReplicas, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
		var specPtr *int
		if hasSpecReplicas {
			v := int(specReplicas)
			specPtr = &v
		}

		maxReplicas, hasMax := nestedMaxReplicas(obj.Object)

		w.Target = NewStackTarget(specPtr, maxReplicas, hasMax)
		out = append(out, &w)
	}
	return out, nil
}

// stackAPIServed probes the discovery API for the zalando.org/v1 group
// version and the named resource within it, so a cluster without the Stack
// CRDs installed never sees a 404-per-tick from the dynamic list. A nil
// discovery client (fake-backed tests) is treated as "served" and the
// dynamic list's own NotFound tolerance takes over.
func stackAPIServed(c Clients, resource string) (bool, error) {
	if c.Discovery == nil {
		return true, nil
	}
	resources, err := c.Discovery.ServerResourcesForGroupVersion(StackAPIVersion)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, r := range resources.APIResources {
		if r.Name == resource {
			return true, nil
		}
	}
	return false, nil
}

// nestedMaxReplicas reads autoscaler.maxReplicas, falling back to
// horizontalPodAutoscaler.maxReplicas.
func nestedMaxReplicas(obj map[string]interface{}) (int, bool) {
	if v, found, _ := unstructured.NestedInt64(obj, "spec", "autoscaler", "maxReplicas"); found {
		return int(v), true
	}
	if v, found, _ := unstructured.NestedInt64(obj, "spec", "horizontalPodAutoscaler", "maxReplicas"); found {
		return int(v), true
	}
	return 0, false
}

func objectMetaFromUnstructured(obj *unstructured.Unstructured) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:              obj.GetName(),
		Namespace:         obj.GetNamespace(),
		UID:               obj.GetUID(),
		ResourceVersion:   obj.GetResourceVersion(),
		CreationTimestamp: obj.GetCreationTimestamp(),
		Annotations:       obj.GetAnnotations(),
		OwnerReferences:   obj.GetOwnerReferences(),
	}
}

// ListNamespace fetches a single NamespaceRecord.
func ListNamespace(ctx context.Context, c Clients, name string) (*NamespaceRecord, error) {
	ns, err := c.Typed.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting namespace %s: %w", name, err)
	}
	return &NamespaceRecord{Name: ns.Name, Annotations: ns.Annotations}, nil
}

// RunningPodAnnotation returns the value of key for every non-terminal pod
// in namespace, keyed by "namespace/name". Pods in phase Succeeded or
// Failed are skipped.
func RunningPodAnnotation(ctx context.Context, c Clients, namespace string, key string) (map[string]string, error) {
	list, err := c.Typed.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}
	out := map[string]string{}
	for i := range list.Items {
		p := &list.Items[i]
		if p.Status.Phase == corev1.PodSucceeded || p.Status.Phase == corev1.PodFailed {
			continue
		}
		if v, ok := p.Annotations[key]; ok {
			out[p.Namespace+"/"+p.Name] = v
		}
	}
	return out, nil
}

// ApplyPatch applies patch to the workload, dispatching to the typed
// clientset for the four built-in kinds (as a strategic merge patch) and to
// the dynamic client (by GVR) for Stack/StackSet. Custom resources do not
// support strategic merge, so those are sent as a JSON merge patch; the same
// body works for both, and a null field is removed either way.
func ApplyPatch(ctx context.Context, c Clients, w *Workload, patch Patch) error {
	body, err := patch.StrategicMergeBody()
	if err != nil {
		return fmt.Errorf("encoding patch for %s %s/%s: %w", w.Kind, w.Namespace, w.Name, err)
	}

	switch w.Kind {
	case KindDeployment:
		_, err = c.Typed.AppsV1().Deployments(w.Namespace).Patch(ctx, w.Name, types.StrategicMergePatchType, body, metav1.PatchOptions{})
	case KindStatefulSet:
		_, err = c.Typed.AppsV1().StatefulSets(w.Namespace).Patch(ctx, w.Name, types.StrategicMergePatchType, body, metav1.PatchOptions{})
	case KindCronJob:
		_, err = c.Typed.BatchV1().CronJobs(w.Namespace).Patch(ctx, w.Name, types.StrategicMergePatchType, body, metav1.PatchOptions{})
	case KindHorizontalPodAutoscaler:
		_, err = c.Typed.AutoscalingV2().HorizontalPodAutoscalers(w.Namespace).Patch(ctx, w.Name, types.StrategicMergePatchType, body, metav1.PatchOptions{})
	case KindStack:
		_, err = c.Dynamic.Resource(stackGVR).Namespace(w.Namespace).Patch(ctx, w.Name, types.MergePatchType, body, metav1.PatchOptions{})
	case KindStackSet:
		_, err = c.Dynamic.Resource(stackSetGVR).Namespace(w.Namespace).Patch(ctx, w.Name, types.MergePatchType, body, metav1.PatchOptions{})
	default:
		return fmt.Errorf("unsupported workload kind %q", w.Kind)
	}
	if err != nil {
		return fmt.Errorf("patching %s %s/%s: %w", w.Kind, w.Namespace, w.Name, err)
	}
	return nil
}
