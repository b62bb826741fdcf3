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

// Package policy resolves the effective, per-workload PolicyContext from
// cluster-wide defaults and the downscaler/* annotations carried on a
// NamespaceRecord and a Workload.
package policy

import "github.com/cloudshift-oss/downscaler/internal/timespec"

// PolicyContext is the derived, per-workload bundle of settings the decider
// acts on.
type PolicyContext struct {
	UpscalePeriod            *timespec.Spec
	DownscalePeriod          *timespec.Spec
	DefaultUptime            *timespec.Spec
	DefaultDowntime          *timespec.Spec
	ForcedUptime             bool
	DowntimeReplicas         int
	GracePeriodSeconds       int
	DeploymentTimeAnnotation string
	DryRun                   bool
	EnableEvents             bool
}
