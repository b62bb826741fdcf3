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

// replicaTarget implements ScaleTarget for the two kinds whose scale lives
// directly at spec.replicas and whose write path is "set the integer":
// Deployment and StatefulSet.
type replicaTarget struct {
	kind     string
	replicas int
}

// NewDeploymentTarget builds the ScaleTarget for a Deployment given its
// current spec.replicas.
func NewDeploymentTarget(replicas int) ScaleTarget {
	return &replicaTarget{kind: KindDeployment, replicas: replicas}
}

// NewStatefulSetTarget builds the ScaleTarget for a StatefulSet given its
// current spec.replicas.
func NewStatefulSetTarget(replicas int) ScaleTarget {
	return &replicaTarget{kind: KindStatefulSet, replicas: replicas}
}

func (t *replicaTarget) Kind() string { return t.kind }

func (t *replicaTarget) GetScale() int { return t.replicas }

func (t *replicaTarget) ScaleDownPatch(n int, priorReplicas int) Patch {
	return Patch{
		Spec: SpecPatch{Field: "replicas", IntValue: n},
		Annotation: AnnotationOp{
			Key:   AnnotationOriginalReplicas,
			Value: itoa(priorReplicas),
		},
	}
}

func (t *replicaTarget) ScaleUpPatch(n int) Patch {
	return Patch{
		Spec:       SpecPatch{Field: "replicas", IntValue: n},
		Annotation: AnnotationOp{Key: AnnotationOriginalReplicas, Remove: true},
	}
}
