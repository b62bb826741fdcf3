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

import "encoding/json"

// AnnotationOp distinguishes "set this annotation" from "remove it", so the
// rendered patch body can express a strategic-merge null for removal rather
// than conflating an empty string with deletion.
type AnnotationOp struct {
	Key    string
	Value  string
	Remove bool
}

// SpecPatch is a kind-agnostic description of the spec-level field change a
// ScaleTarget wants applied (a replica count, a suspend flag, or a
// strategic-merge-null removal of spec.replicas for the Stack/HPA
// fallback case).
type SpecPatch struct {
	// Field is the JSON field name under "spec" being changed
	// ("replicas", "minReplicas", "suspend").
	Field string
	// IntValue is used when Remove is false and Field is an integer field.
	IntValue int
	// BoolValue is used when Field is "suspend".
	BoolValue bool
	IsBool    bool
	// Remove renders the field as an explicit JSON null, which a strategic
	// merge patch interprets as "delete this field server-side".
	Remove bool
}

// Patch is the full atomic change to apply to one workload: the spec-level
// scale change plus the original-replicas annotation update, built and sent
// together in one request.
type Patch struct {
	Spec       SpecPatch
	Annotation AnnotationOp
	// ExtraSpecFields carries kind-specific extras that ride along with the
	// main spec patch (e.g. CronJob's startingDeadlineSeconds reset on
	// scale-up).
	ExtraSpecFields map[string]interface{}
}

// StrategicMergeBody renders the patch as a strategic-merge-patch JSON body:
// {"spec": {...}, "metadata": {"annotations": {...}}}.
func (p Patch) StrategicMergeBody() ([]byte, error) {
	specFields := map[string]interface{}{}
	for k, v := range p.ExtraSpecFields {
		specFields[k] = v
	}

	if p.Spec.Remove {
		specFields[p.Spec.Field] = nil
	} else if p.Spec.IsBool {
		specFields[p.Spec.Field] = p.Spec.BoolValue
	} else {
		specFields[p.Spec.Field] = p.Spec.IntValue
	}

	annotations := map[string]interface{}{}
	if p.Annotation.Remove {
		annotations[p.Annotation.Key] = nil
	} else {
		annotations[p.Annotation.Key] = p.Annotation.Value
	}

	body := map[string]interface{}{
		"spec": specFields,
		"metadata": map[string]interface{}{
			"annotations": annotations,
		},
	}
	return json.Marshal(body)
}
