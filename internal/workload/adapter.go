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

// Kind name constants for the five (plus one supplemental) resource kinds
// the adapter understands.
const (
	KindDeployment              = "Deployment"
	KindStatefulSet             = "StatefulSet"
	KindStack                   = "Stack"
	KindStackSet                = "StackSet"
	KindCronJob                 = "CronJob"
	KindHorizontalPodAutoscaler = "HorizontalPodAutoscaler"
)

// StackAPIVersion is the apiVersion carried by Stack/StackSet resources,
// used both for the dynamic-client GVR and for detecting Deployments owned
// by a Stack.
const StackAPIVersion = "zalando.org/v1"

// ScaleTarget is the one seam where kind-specific field access happens. One
// implementation exists per workload kind; the decider in internal/reconcile
// never inspects a kind directly.
type ScaleTarget interface {
	// Kind returns the workload kind this target was built for.
	Kind() string

	// GetScale returns the resource's current effective replica count. For
	// CronJob this is derived (suspended -> 0, else -> 1).
	GetScale() int

	// ScaleDownPatch builds the patch that sets the resource to n replicas
	// during a scale-down, recording the prior replica count in the
	// original-replicas annotation.
	ScaleDownPatch(n int, priorReplicas int) Patch

	// ScaleUpPatch builds the patch that restores the resource to n
	// replicas during a scale-up, clearing the original-replicas
	// annotation.
	ScaleUpPatch(n int) Patch
}

// IsStackManagedDeployment reports whether a Deployment carries an owner
// reference pointing at a Stack. The decider treats these as always
// excluded: the Stack itself is the scalable unit.
func IsStackManagedDeployment(w *Workload) bool {
	if w.Kind != KindDeployment {
		return false
	}
	for _, owner := range w.OwnerReferences {
		if owner.APIVersion == StackAPIVersion && owner.Kind == KindStack {
			return true
		}
	}
	return false
}
