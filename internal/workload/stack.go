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

// stackTarget implements ScaleTarget for the zalando.org/v1 Stack and
// StackSet resources (managed through the dynamic client, see
// internal/workload/lister.go), whose effective replica count falls back
// through
// spec.replicas -> autoscaler.maxReplicas -> horizontalPodAutoscaler.maxReplicas
// when spec.replicas is unset. Kind reports KindStack for both.
type stackTarget struct {
	specReplicas   *int
	maxReplicas    int
	hasMaxReplicas bool
}

// NewStackTarget builds the ScaleTarget for a Stack. specReplicas is nil
// when spec.replicas is unset on the object; maxReplicas/hasMaxReplicas
// carry the HPA sub-spec's maxReplicas when present.
func NewStackTarget(specReplicas *int, maxReplicas int, hasMaxReplicas bool) ScaleTarget {
	return &stackTarget{specReplicas: specReplicas, maxReplicas: maxReplicas, hasMaxReplicas: hasMaxReplicas}
}

func (t *stackTarget) Kind() string { return KindStack }

func (t *stackTarget) GetScale() int {
	if t.specReplicas != nil {
		return *t.specReplicas
	}
	if t.hasMaxReplicas {
		return t.maxReplicas
	}
	return 0
}

func (t *stackTarget) ScaleDownPatch(n int, priorReplicas int) Patch {
	return Patch{
		Spec: SpecPatch{Field: "replicas", IntValue: n},
		Annotation: AnnotationOp{
			Key:   AnnotationOriginalReplicas,
			Value: itoa(priorReplicas),
		},
	}
}

// ScaleUpPatch restores the Stack. When the target replica count equals the
// autoscaler's maxReplicas, spec.replicas is cleared (strategic-merge null)
// rather than set, letting the HPA sub-spec resume ownership of scale.
func (t *stackTarget) ScaleUpPatch(n int) Patch {
	if t.hasMaxReplicas && n == t.maxReplicas {
		return Patch{
			Spec:       SpecPatch{Field: "replicas", Remove: true},
			Annotation: AnnotationOp{Key: AnnotationOriginalReplicas, Remove: true},
		}
	}
	return Patch{
		Spec:       SpecPatch{Field: "replicas", IntValue: n},
		Annotation: AnnotationOp{Key: AnnotationOriginalReplicas, Remove: true},
	}
}
