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

import "testing"

func TestReplicaTargetScaleDownAndUp(t *testing.T) {
	target := NewDeploymentTarget(5)
	if target.Kind() != KindDeployment {
		t.Fatalf("Kind() = %q, want %q", target.Kind(), KindDeployment)
	}
	if target.GetScale() != 5 {
		t.Fatalf("GetScale() = %d, want 5", target.GetScale())
	}

	down := target.ScaleDownPatch(0, 5)
	if down.Spec.Field != "replicas" || down.Spec.IntValue != 0 {
		t.Fatalf("unexpected scale-down patch: %+v", down.Spec)
	}
	if down.Annotation.Value != "5" || down.Annotation.Remove {
		t.Fatalf("unexpected scale-down annotation: %+v", down.Annotation)
	}

	up := target.ScaleUpPatch(5)
	if up.Spec.Field != "replicas" || up.Spec.IntValue != 5 {
		t.Fatalf("unexpected scale-up patch: %+v", up.Spec)
	}
	if !up.Annotation.Remove {
		t.Fatalf("expected scale-up to remove original-replicas annotation")
	}
}

func TestStatefulSetTargetKind(t *testing.T) {
	target := NewStatefulSetTarget(2)
	if target.Kind() != KindStatefulSet {
		t.Fatalf("Kind() = %q, want %q", target.Kind(), KindStatefulSet)
	}
}

func TestCronJobTargetDerivesScaleFromSuspend(t *testing.T) {
	suspended := NewCronJobTarget(true)
	if suspended.GetScale() != 0 {
		t.Fatalf("suspended GetScale() = %d, want 0", suspended.GetScale())
	}

	running := NewCronJobTarget(false)
	if running.GetScale() != 1 {
		t.Fatalf("running GetScale() = %d, want 1", running.GetScale())
	}

	down := running.ScaleDownPatch(0, 1)
	if !down.Spec.IsBool || !down.Spec.BoolValue {
		t.Fatalf("expected scale-down to suspend, got %+v", down.Spec)
	}

	up := suspended.ScaleUpPatch(1)
	if !up.Spec.IsBool || up.Spec.BoolValue {
		t.Fatalf("expected scale-up to unsuspend, got %+v", up.Spec)
	}
	if up.ExtraSpecFields["startingDeadlineSeconds"] != 0 {
		t.Fatalf("expected startingDeadlineSeconds reset on scale-up, got %+v", up.ExtraSpecFields)
	}
}

func TestHorizontalPodAutoscalerTargetUsesMinReplicas(t *testing.T) {
	target := NewHorizontalPodAutoscalerTarget(3)
	if target.Kind() != KindHorizontalPodAutoscaler {
		t.Fatalf("Kind() = %q", target.Kind())
	}
	if target.GetScale() != 3 {
		t.Fatalf("GetScale() = %d, want 3", target.GetScale())
	}
	down := target.ScaleDownPatch(1, 3)
	if down.Spec.Field != "minReplicas" || down.Spec.IntValue != 1 {
		t.Fatalf("unexpected patch: %+v", down.Spec)
	}
}

func TestStackTargetFallsBackThroughReplicaSources(t *testing.T) {
	explicit := 4
	withSpecReplicas := NewStackTarget(&explicit, 10, true)
	if withSpecReplicas.GetScale() != 4 {
		t.Fatalf("GetScale() = %d, want 4 (spec.replicas wins)", withSpecReplicas.GetScale())
	}

	fallsBackToMax := NewStackTarget(nil, 10, true)
	if fallsBackToMax.GetScale() != 10 {
		t.Fatalf("GetScale() = %d, want 10 (autoscaler maxReplicas fallback)", fallsBackToMax.GetScale())
	}

	noSourceAtAll := NewStackTarget(nil, 0, false)
	if noSourceAtAll.GetScale() != 0 {
		t.Fatalf("GetScale() = %d, want 0 when nothing is set", noSourceAtAll.GetScale())
	}
}

func TestStackTargetScaleUpClearsReplicasWhenRestoringToMax(t *testing.T) {
	target := NewStackTarget(nil, 4, true)
	up := target.ScaleUpPatch(4)
	if !up.Spec.Remove {
		t.Fatalf("expected spec.replicas to be cleared when restoring to autoscaler max, got %+v", up.Spec)
	}
	if !up.Annotation.Remove {
		t.Fatalf("expected original-replicas annotation cleared")
	}
}

func TestStackTargetScaleUpSetsExplicitReplicasWhenBelowMax(t *testing.T) {
	target := NewStackTarget(nil, 10, true)
	up := target.ScaleUpPatch(3)
	if up.Spec.Remove {
		t.Fatalf("did not expect spec.replicas removal when restoring below autoscaler max")
	}
	if up.Spec.IntValue != 3 {
		t.Fatalf("spec.replicas = %d, want 3", up.Spec.IntValue)
	}
}

func TestStackTargetScaleUpSetsExplicitReplicasWhenNoAutoscaler(t *testing.T) {
	target := NewStackTarget(nil, 0, false)
	up := target.ScaleUpPatch(2)
	if up.Spec.Remove {
		t.Fatalf("did not expect spec.replicas removal with no autoscaler sub-spec present")
	}
	if up.Spec.IntValue != 2 {
		t.Fatalf("spec.replicas = %d, want 2", up.Spec.IntValue)
	}
}

func TestIsStackManagedDeploymentDetectsOwner(t *testing.T) {
	w := &Workload{
		Kind: KindDeployment,
		OwnerReferences: []OwnerReference{
			{APIVersion: StackAPIVersion, Kind: KindStack},
		},
	}
	if !IsStackManagedDeployment(w) {
		t.Fatalf("expected Stack-owned Deployment to be detected")
	}
}

func TestIsStackManagedDeploymentIgnoresOtherOwners(t *testing.T) {
	w := &Workload{
		Kind: KindDeployment,
		OwnerReferences: []OwnerReference{
			{APIVersion: "apps/v1", Kind: "ReplicaSet"},
		},
	}
	if IsStackManagedDeployment(w) {
		t.Fatalf("did not expect a ReplicaSet owner to be treated as Stack-managed")
	}
}

func TestIsStackManagedDeploymentIgnoresNonDeploymentKinds(t *testing.T) {
	w := &Workload{
		Kind: KindStatefulSet,
		OwnerReferences: []OwnerReference{
			{APIVersion: StackAPIVersion, Kind: KindStack},
		},
	}
	if IsStackManagedDeployment(w) {
		t.Fatalf("IsStackManagedDeployment should only apply to Deployment kind")
	}
}
