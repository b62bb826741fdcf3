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

// horizontalPodAutoscalerTarget implements ScaleTarget for an HPA, whose
// "scale" is spec.minReplicas.
type horizontalPodAutoscalerTarget struct {
	minReplicas int
}

// NewHorizontalPodAutoscalerTarget builds the ScaleTarget for an HPA given
// its current spec.minReplicas.
func NewHorizontalPodAutoscalerTarget(minReplicas int) ScaleTarget {
	return &horizontalPodAutoscalerTarget{minReplicas: minReplicas}
}

func (t *horizontalPodAutoscalerTarget) Kind() string { return KindHorizontalPodAutoscaler }

func (t *horizontalPodAutoscalerTarget) GetScale() int { return t.minReplicas }

func (t *horizontalPodAutoscalerTarget) ScaleDownPatch(n int, priorReplicas int) Patch {
	return Patch{
		Spec: SpecPatch{Field: "minReplicas", IntValue: n},
		Annotation: AnnotationOp{
			Key:   AnnotationOriginalReplicas,
			Value: itoa(priorReplicas),
		},
	}
}

func (t *horizontalPodAutoscalerTarget) ScaleUpPatch(n int) Patch {
	return Patch{
		Spec:       SpecPatch{Field: "minReplicas", IntValue: n},
		Annotation: AnnotationOp{Key: AnnotationOriginalReplicas, Remove: true},
	}
}
