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

// Package reconcile implements the downscaler's single-threaded tick loop:
// the decider (this file), the per-tick namespace policy cache, and the
// driver that lists, groups, decides and patches.
package reconcile

import (
	"context"
	"strconv"
	"strings"
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/cloudshift-oss/downscaler/internal/policy"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// ActionKind distinguishes the three outcomes the decider can produce.
type ActionKind int

const (
	NoOp ActionKind = iota
	ScaleDown
	ScaleUp
)

func (k ActionKind) String() string {
	switch k {
	case ScaleDown:
		return "ScaleDown"
	case ScaleUp:
		return "ScaleUp"
	default:
		return "NoOp"
	}
}

// Reason labels why the decider landed on its action, used for logging and
// (when enabled) event messages.
type Reason string

const (
	ReasonExcluded       Reason = "excluded"
	ReasonForced         Reason = "forced"
	ReasonIgnoredOverlap Reason = "ignored"
	ReasonGracePeriod    Reason = "grace-period"
	ReasonNoTransition   Reason = "no-transition"
	ReasonScaledDown     Reason = "scaled-down"
	ReasonScaledUp       Reason = "scaled-up"
)

// Action is the decider's verdict for one workload: what to do, the target
// replica count when acting, and why.
type Action struct {
	Kind   ActionKind
	Target int
	Reason Reason
	Detail string
}

// Decide computes the scale action for one workload. now is the single
// clock value captured for the whole tick; namespaceExcluded carries the
// namespace-level exclusion flag computed once per namespace. ctx supplies
// the logger that annotation-parse warnings are reported through.
func Decide(ctx context.Context, w *workload.Workload, pol policy.PolicyContext, now time.Time, namespaceExcluded bool) (Action, error) {
	warn := annotationWarner(ctx, w)
	excluded := namespaceExcluded || policy.IsExcluded(w, now, warn) || workload.IsStackManagedDeployment(w)

	// Layer the workload's own downscaler/* annotations over the already
	// namespace-resolved context, completing the defaults <- namespace <-
	// workload precedence chain at decide time.
	pol, err := policy.Resolve(pol, now, nil, w)
	if err != nil {
		return Action{}, err
	}

	var original *int
	if v, ok := w.Annotation(workload.AnnotationOriginalReplicas); ok {
		n, err := parseOriginalReplicas(v)
		if err == nil {
			original = &n
		}
	}

	downtimeReplicas := pol.DowntimeReplicas

	if excluded && original == nil {
		return Action{Kind: NoOp, Reason: ReasonExcluded}, nil
	}

	isUptime, ignore := evaluateWindow(pol, now, pol.ForcedUptime, excluded, original)

	replicas := w.Target.GetScale()

	switch {
	case !ignore && isUptime && replicas == downtimeReplicas && original != nil && *original > 0:
		return Action{Kind: ScaleUp, Target: *original, Reason: ReasonScaledUp}, nil

	case !ignore && !isUptime && replicas > 0 && replicas > downtimeReplicas:
		if withinGracePeriod(w, pol, now) {
			return Action{Kind: NoOp, Reason: ReasonGracePeriod}, nil
		}
		return Action{Kind: ScaleDown, Target: downtimeReplicas, Reason: ReasonScaledDown}, nil

	default:
		if ignore {
			return Action{Kind: NoOp, Reason: ReasonIgnoredOverlap}, nil
		}
		return Action{Kind: NoOp, Reason: ReasonNoTransition}, nil
	}
}

// annotationWarner builds the warn callback IsExcluded uses for a malformed
// exclude-until value: warned, not excluded.
func annotationWarner(ctx context.Context, w *workload.Workload) func(string) {
	log := logf.FromContext(ctx)
	return func(msg string) {
		log.Info(msg, "kind", w.Kind, "namespace", w.Namespace, "name", w.Name)
	}
}

// evaluateWindow picks the (isUptime, ignore) pair:
// forced/restore-after-exclude first, then the one-shot upscale/downscale
// periods, then the recurring uptime/downtime windows. Overlapping one-shot
// periods are a user error and yield ignore rather than thrashing.
func evaluateWindow(pol policy.PolicyContext, now time.Time, forcedUptime bool, excluded bool, original *int) (isUptime bool, ignore bool) {
	if forcedUptime || (excluded && original != nil) {
		return true, false
	}

	upscaleNever := pol.UpscalePeriod == nil || pol.UpscalePeriod.IsNever()
	downscaleNever := pol.DownscalePeriod == nil || pol.DownscalePeriod.IsNever()

	if !upscaleNever || !downscaleNever {
		upMatch := pol.UpscalePeriod != nil && pol.UpscalePeriod.Matches(now)
		downMatch := pol.DownscalePeriod != nil && pol.DownscalePeriod.Matches(now)
		switch {
		case upMatch && downMatch:
			return false, true
		case upMatch:
			return true, false
		case downMatch:
			return false, false
		default:
			return false, true
		}
	}

	uptimeMatch := pol.DefaultUptime != nil && pol.DefaultUptime.Matches(now)
	downtimeMatch := pol.DefaultDowntime != nil && pol.DefaultDowntime.Matches(now)
	return uptimeMatch && !downtimeMatch, false
}

func withinGracePeriod(w *workload.Workload, pol policy.PolicyContext, now time.Time) bool {
	updateTime := w.CreationTimestamp
	if pol.DeploymentTimeAnnotation != "" {
		if v, ok := w.Annotation(pol.DeploymentTimeAnnotation); ok {
			if t, err := policy.ParseTimestamp(v); err == nil && t.After(updateTime) {
				updateTime = t
			}
		}
	}
	return now.Sub(updateTime).Seconds() <= float64(pol.GracePeriodSeconds)
}

func parseOriginalReplicas(v string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v))
}
