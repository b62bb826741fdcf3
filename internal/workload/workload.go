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

// Package workload unifies read/write access to the scalable resource kinds
// the downscaler manages (Deployment, StatefulSet, Stack, StackSet, CronJob,
// HorizontalPodAutoscaler) behind one ScaleTarget interface.
package workload

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// OwnerReference is the subset of metav1.OwnerReference the engine inspects
// to detect Deployments managed by a Stack.
type OwnerReference struct {
	APIVersion string
	Kind       string
}

// Workload is the abstract record the engine manipulates, carrying identity,
// annotations, owner references and a handle to the kind-specific ScaleTarget.
type Workload struct {
	Kind              string
	Namespace         string
	Name              string
	APIVersion        string
	UID               string
	ResourceVersion   string
	CreationTimestamp time.Time
	Annotations       map[string]string
	OwnerReferences   []OwnerReference
	Target            ScaleTarget
}

// Annotation returns the value for key and whether it was present.
func (w *Workload) Annotation(key string) (string, bool) {
	if w.Annotations == nil {
		return "", false
	}
	v, ok := w.Annotations[key]
	return v, ok
}

// NamespaceRecord is the read-only namespace object the policy resolver
// consults for namespace-level annotation overrides.
type NamespaceRecord struct {
	Name        string
	Annotations map[string]string
}

// Annotation returns the value for key and whether it was present.
func (n *NamespaceRecord) Annotation(key string) (string, bool) {
	if n.Annotations == nil {
		return "", false
	}
	v, ok := n.Annotations[key]
	return v, ok
}

// fromObjectMeta is a convenience constructor helper used by the per-kind
// listers to build a Workload's identity fields from a metav1.ObjectMeta.
func fromObjectMeta(kind, apiVersion string, meta metav1.ObjectMeta) Workload {
	owners := make([]OwnerReference, 0, len(meta.OwnerReferences))
	for _, o := range meta.OwnerReferences {
		owners = append(owners, OwnerReference{APIVersion: o.APIVersion, Kind: o.Kind})
	}
	return Workload{
		Kind:              kind,
		Namespace:         meta.Namespace,
		Name:              meta.Name,
		APIVersion:        apiVersion,
		UID:               string(meta.UID),
		ResourceVersion:   meta.ResourceVersion,
		CreationTimestamp: meta.CreationTimestamp.Time,
		Annotations:       meta.Annotations,
		OwnerReferences:   owners,
	}
}
