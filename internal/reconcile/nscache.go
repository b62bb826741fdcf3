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
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/cloudshift-oss/downscaler/internal/policy"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// namespacePolicy bundles the two things the driver needs once per
// namespace per tick: the resolved PolicyContext and the namespace-level
// exclusion flag.
type namespacePolicy struct {
	ctx      policy.PolicyContext
	excluded bool
}

// NamespaceCache memoizes namespace-level policy resolution for a single
// tick. A fresh NamespaceCache is created at the start of every tick, since
// cluster-side namespace annotations can change between ticks.
type NamespaceCache struct {
	entries map[string]namespacePolicy
}

// NewNamespaceCache returns an empty cache, meant to be created once per
// tick.
func NewNamespaceCache() *NamespaceCache {
	return &NamespaceCache{entries: make(map[string]namespacePolicy)}
}

// Resolve returns the namespace's PolicyContext and exclusion flag,
// computing and memoizing it on first access within this tick.
func (c *NamespaceCache) Resolve(ctx context.Context, ns *workload.NamespaceRecord, defaults policy.PolicyContext, now time.Time) (policy.PolicyContext, bool, error) {
	if entry, ok := c.entries[ns.Name]; ok {
		return entry.ctx, entry.excluded, nil
	}

	resolved, err := policy.Resolve(defaults, now, ns, nil)
	if err != nil {
		return policy.PolicyContext{}, false, err
	}
	log := logf.FromContext(ctx)
	excluded := policy.IsExcluded(ns, now, func(msg string) {
		log.Info(msg, "namespace", ns.Name)
	})

	c.entries[ns.Name] = namespacePolicy{ctx: resolved, excluded: excluded}
	return resolved, excluded, nil
}
