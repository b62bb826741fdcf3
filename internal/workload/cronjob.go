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

// cronJobTarget implements ScaleTarget for CronJob, whose "scale" is derived
// from spec.suspend: suspended -> 0, not suspended -> 1.
type cronJobTarget struct {
	suspended bool
}

// NewCronJobTarget builds the ScaleTarget for a CronJob given its current
// spec.suspend value.
func NewCronJobTarget(suspended bool) ScaleTarget {
	return &cronJobTarget{suspended: suspended}
}

func (t *cronJobTarget) Kind() string { return KindCronJob }

func (t *cronJobTarget) GetScale() int {
	if t.suspended {
		return 0
	}
	return 1
}

func (t *cronJobTarget) ScaleDownPatch(n int, priorReplicas int) Patch {
	return Patch{
		Spec: SpecPatch{Field: "suspend", IsBool: true, BoolValue: true},
		Annotation: AnnotationOp{
			Key:   AnnotationOriginalReplicas,
			Value: itoa(priorReplicas),
		},
	}
}

// ScaleUpPatch unsuspends the CronJob and clears startingDeadlineSeconds so
// a schedule missed during downtime fires immediately rather than waiting
// out its next natural tick.
func (t *cronJobTarget) ScaleUpPatch(n int) Patch {
	return Patch{
		Spec:            SpecPatch{Field: "suspend", IsBool: true, BoolValue: false},
		Annotation:      AnnotationOp{Key: AnnotationOriginalReplicas, Remove: true},
		ExtraSpecFields: map[string]interface{}{"startingDeadlineSeconds": 0},
	}
}
