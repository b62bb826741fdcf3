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

package policy

import (
	"fmt"
	"time"

	"github.com/cloudshift-oss/downscaler/internal/timespec"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// Annotated is satisfied by both *workload.Workload and
// *workload.NamespaceRecord, letting Resolve apply the same override logic
// at either scope.
type Annotated interface {
	Annotation(key string) (string, bool)
}

// Resolve merges namespace- then workload-level downscaler/* annotations
// onto defaults, lowest precedence first: command-line defaults ->
// namespace annotations -> workload annotations.
// ns or w may be nil to skip that scope (namespace resolution itself calls
// Resolve with w == nil).
func Resolve(defaults PolicyContext, now time.Time, ns Annotated, w Annotated) (PolicyContext, error) {
	ctx := defaults
	if ns != nil {
		if err := applyOverrides(&ctx, ns, now, true); err != nil {
			return ctx, err
		}
	}
	if w != nil {
		if err := applyOverrides(&ctx, w, now, false); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func applyOverrides(ctx *PolicyContext, a Annotated, now time.Time, namespaceScope bool) error {
	if spec, err := overrideTimeSpec(a, workload.AnnotationUpscalePeriod); err != nil {
		return err
	} else if spec != nil {
		ctx.UpscalePeriod = spec
	}
	if spec, err := overrideTimeSpec(a, workload.AnnotationDownscalePeriod); err != nil {
		return err
	} else if spec != nil {
		ctx.DownscalePeriod = spec
	}
	if spec, err := overrideTimeSpec(a, workload.AnnotationUptime); err != nil {
		return err
	} else if spec != nil {
		ctx.DefaultUptime = spec
	}
	if spec, err := overrideTimeSpec(a, workload.AnnotationDowntime); err != nil {
		return err
	} else if spec != nil {
		ctx.DefaultDowntime = spec
	}

	if v, ok := a.Annotation(workload.AnnotationDowntimeReplicas); ok {
		n, err := ParseDowntimeReplicas(v)
		if err != nil {
			return err
		}
		ctx.DowntimeReplicas = n
	}

	// force-uptime is honored only from namespace annotations (and the
	// pod-level scan in internal/reconcile); a workload-level value is
	// ignored rather than letting it flip a cluster-wide forced signal off.
	if namespaceScope {
		if v, ok := a.Annotation(workload.AnnotationForceUptime); ok {
			forced, err := ParseForceUptime(v, true, now)
			if err != nil {
				return err
			}
			ctx.ForcedUptime = forced
		}
	}

	return nil
}

func overrideTimeSpec(a Annotated, key string) (*timespec.Spec, error) {
	v, ok := a.Annotation(key)
	if !ok {
		return nil, nil
	}
	spec, err := timespec.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("policy: %s: %w", key, err)
	}
	return spec, nil
}
