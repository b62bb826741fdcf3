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

package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/cloudshift-oss/downscaler/internal/policy"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// Options bundles the tick-invariant configuration the driver needs: cluster
// defaults, which kinds to reconcile, and the exclusion lists. A Driver is
// rebuilt only when configuration changes; the NamespaceCache it uses
// internally is recreated every tick.
type Options struct {
	Defaults                 policy.PolicyContext
	IncludeKinds             []string
	Namespace                string
	ExcludeNamespacePatterns []*regexp.Regexp
	ExcludeNames             map[string]map[string]struct{}
	DryRun                   bool
}

// EventEmitter is the subset of internal/observability.EventRecorder the
// driver needs. Declaring the interface at the consumer keeps reconcile free
// of an import-time dependency on observability.
type EventEmitter interface {
	RecordScaleDown(w *workload.Workload, from, to int, reason string)
	RecordScaleUp(w *workload.Workload, from, to int, reason string)
	RecordFailure(w *workload.Workload, err error)
}

// MetricsSink is the subset of internal/observability.Metrics the driver
// reports tick-level counters and scale actions to.
type MetricsSink interface {
	ObserveTick(duration time.Duration, seen, patched, failed int)
	ObserveScaleAction(kind, direction string)
}

// Driver runs one reconcile tick across every configured kind.
type Driver struct {
	Clients workload.Clients
	Options Options
	Events  EventEmitter // nil when enable-events is false
	Metrics MetricsSink  // nil when metrics are disabled
}

// Tick runs exactly one reconcile pass against now, the single clock value
// captured for every decision made during the pass. Namespaces are walked
// in sorted order so dry-run diffs are reproducible.
func (d *Driver) Tick(ctx context.Context, now time.Time) error {
	log := logf.FromContext(ctx)
	start := time.Now()

	podForced, err := d.computeForcedUptime(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: computing pod-level forced uptime: %w", err)
	}

	byNamespace := map[string][]*workload.Workload{}
	seen := 0

	for _, kind := range d.Options.IncludeKinds {
		items, err := listKind(ctx, d.Clients, kind, d.Options.Namespace)
		if err != nil {
			log.Error(err, "failed to list workloads, skipping kind this tick", "kind", kind)
			continue
		}
		for _, w := range items {
			if d.isNameExcluded(kind, w.Name) {
				continue
			}
			byNamespace[w.Namespace] = append(byNamespace[w.Namespace], w)
			seen++
		}
	}

	namespaces := make([]string, 0, len(byNamespace))
	for ns := range byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	nsCache := NewNamespaceCache()
	patched, failed := 0, 0

	for _, ns := range namespaces {
		if d.isNamespaceExcludedByPattern(ns) {
			continue
		}

		record, err := workload.ListNamespace(ctx, d.Clients, ns)
		if err != nil {
			log.Error(err, "failed to fetch namespace", "namespace", ns)
			continue
		}

		nsCtx, nsExcluded, err := nsCache.Resolve(ctx, record, d.Options.Defaults, now)
		if err != nil {
			log.Error(err, "failed to resolve namespace policy", "namespace", ns)
			continue
		}
		nsCtx.ForcedUptime = nsCtx.ForcedUptime || podForced

		items := byNamespace[ns]
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

		for _, w := range items {
			acted, err := d.reconcileOne(ctx, w, nsCtx, now, nsExcluded)
			if err != nil {
				failed++
				log.Error(err, "failed to process workload", "kind", w.Kind, "namespace", w.Namespace, "name", w.Name)
				if d.Events != nil {
					d.Events.RecordFailure(w, err)
				}
				continue
			}
			if acted {
				patched++
			}
		}
	}

	if d.Metrics != nil {
		d.Metrics.ObserveTick(time.Since(start), seen, patched, failed)
	}
	return nil
}

// reconcileOne decides and, if warranted, applies one workload's action. It
// reports whether a patch was (or, under dry-run, would have been) applied.
func (d *Driver) reconcileOne(ctx context.Context, w *workload.Workload, ctxPolicy policy.PolicyContext, now time.Time, nsExcluded bool) (bool, error) {
	log := logf.FromContext(ctx)

	action, err := Decide(ctx, w, ctxPolicy, now, nsExcluded)
	if err != nil {
		return false, err
	}

	switch action.Kind {
	case ScaleDown:
		before := w.Target.GetScale()
		patch := w.Target.ScaleDownPatch(action.Target, before)
		if err := d.apply(ctx, w, patch); err != nil {
			return false, err
		}
		log.Info("scaled down", "kind", w.Kind, "namespace", w.Namespace, "name", w.Name, "from", before, "to", action.Target)
		if d.Metrics != nil {
			d.Metrics.ObserveScaleAction(w.Kind, "down")
		}
		if d.Events != nil {
			d.Events.RecordScaleDown(w, before, action.Target, string(action.Reason))
		}
		return true, nil

	case ScaleUp:
		before := w.Target.GetScale()
		patch := w.Target.ScaleUpPatch(action.Target)
		if err := d.apply(ctx, w, patch); err != nil {
			return false, err
		}
		log.Info("scaled up", "kind", w.Kind, "namespace", w.Namespace, "name", w.Name, "from", before, "to", action.Target)
		if d.Metrics != nil {
			d.Metrics.ObserveScaleAction(w.Kind, "up")
		}
		if d.Events != nil {
			d.Events.RecordScaleUp(w, before, action.Target, string(action.Reason))
		}
		return true, nil

	default:
		log.V(1).Info("no-op", "kind", w.Kind, "namespace", w.Namespace, "name", w.Name, "reason", string(action.Reason))
		return false, nil
	}
}

func (d *Driver) apply(ctx context.Context, w *workload.Workload, patch workload.Patch) error {
	if d.Options.DryRun {
		logf.FromContext(ctx).Info("dry-run: would patch", "kind", w.Kind, "namespace", w.Namespace, "name", w.Name)
		return nil
	}
	return workload.ApplyPatch(ctx, d.Clients, w, patch)
}

// computeForcedUptime scans pods once per tick: any running pod
// (cluster-wide, or scoped to Options.Namespace) carrying
// downscaler/force-uptime=true forces every workload into uptime this tick.
func (d *Driver) computeForcedUptime(ctx context.Context) (bool, error) {
	byPod, err := workload.RunningPodAnnotation(ctx, d.Clients, d.Options.Namespace, workload.AnnotationForceUptime)
	if err != nil {
		return false, err
	}
	for _, v := range byPod {
		if forced, err := policy.ParseForceUptime(v, false, time.Time{}); err == nil && forced {
			return true, nil
		}
	}
	return false, nil
}

func (d *Driver) isNameExcluded(kind, name string) bool {
	if d.Options.ExcludeNames == nil {
		return false
	}
	set, ok := d.Options.ExcludeNames[kind]
	if !ok {
		return false
	}
	_, excluded := set[name]
	return excluded
}

func (d *Driver) isNamespaceExcludedByPattern(namespace string) bool {
	for _, pattern := range d.Options.ExcludeNamespacePatterns {
		if pattern.MatchString(namespace) {
			return true
		}
	}
	return false
}

func listKind(ctx context.Context, c workload.Clients, kind, namespace string) ([]*workload.Workload, error) {
	switch kind {
	case workload.KindDeployment:
		return workload.ListDeployments(ctx, c, namespace)
	case workload.KindStatefulSet:
		return workload.ListStatefulSets(ctx, c, namespace)
	case workload.KindCronJob:
		return workload.ListCronJobs(ctx, c, namespace)
	case workload.KindHorizontalPodAutoscaler:
		return workload.ListHorizontalPodAutoscalers(ctx, c, namespace)
	case workload.KindStack:
		return workload.ListStacks(ctx, c, namespace)
	case workload.KindStackSet:
		return workload.ListStackSets(ctx, c, namespace)
	default:
		return nil, fmt.Errorf("reconcile: unknown workload kind %q", kind)
	}
}
