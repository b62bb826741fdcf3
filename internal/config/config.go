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

// Package config binds the downscaler's command-line flags to an
// OperatorConfig and derives the reconcile options (kind set, exclusion
// lists, policy defaults) the driver consumes.
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudshift-oss/downscaler/internal/policy"
	"github.com/cloudshift-oss/downscaler/internal/reconcile"
	"github.com/cloudshift-oss/downscaler/internal/timespec"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// OperatorConfig holds the downscaler's global configuration, parsed from
// command-line flags.
type OperatorConfig struct {
	DryRun       bool
	Once         bool
	Debug        bool
	Interval     time.Duration
	Namespace    string
	EnableEvents bool

	IncludeResources string

	GracePeriod time.Duration

	UpscalePeriod   string
	DownscalePeriod string
	DefaultUptime   string
	DefaultDowntime string

	ExcludeNamespaces string

	ExcludeDeployments  string
	ExcludeStatefulSets string
	ExcludeCronJobs     string

	DowntimeReplicas int

	DeploymentTimeAnnotation string

	MetricsAddr string
	ProbeAddr   string
}

// NewOperatorConfig returns an OperatorConfig populated with the documented
// defaults, pre-seeded from the environment for the settings that also have
// an env-var form. A later BindFlags call with an explicit flag literal
// always wins over the environment.
func NewOperatorConfig() *OperatorConfig {
	return &OperatorConfig{
		Interval:            30 * time.Second,
		IncludeResources:    "deployments,statefulsets,stacks,cronjobs,horizontalpodautoscalers",
		GracePeriod:         15 * time.Minute,
		UpscalePeriod:       envOrDefault("UPSCALE_PERIOD", "never"),
		DownscalePeriod:     envOrDefault("DOWNSCALE_PERIOD", "never"),
		DefaultUptime:       envOrDefault("DEFAULT_UPTIME", "always"),
		DefaultDowntime:     envOrDefault("DEFAULT_DOWNTIME", "never"),
		ExcludeNamespaces:   envOrDefault("EXCLUDE_NAMESPACES", "kube-system"),
		ExcludeDeployments:  envOrDefault("EXCLUDE_DEPLOYMENTS", ""),
		ExcludeStatefulSets: envOrDefault("EXCLUDE_STATEFULSETS", ""),
		ExcludeCronJobs:     envOrDefault("EXCLUDE_CRONJOBS", ""),
		DowntimeReplicas:    envIntOrDefault("DOWNTIME_REPLICAS", 0),
		MetricsAddr:         ":8080",
		ProbeAddr:           ":8081",
	}
}

func envOrDefault(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func envIntOrDefault(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// BindFlags registers the downscaler's flags against the standard flag
// package.
func (c *OperatorConfig) BindFlags() {
	flag.BoolVar(&c.DryRun, "dry-run", c.DryRun, "Compute patches, do not send")
	flag.BoolVar(&c.Once, "once", c.Once, "Run one tick and exit")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug-level logging")
	flag.BoolVar(&c.Debug, "d", c.Debug, "Enable debug-level logging (shorthand)")
	flag.DurationVar(&c.Interval, "interval", c.Interval, "Duration between ticks")
	flag.StringVar(&c.Namespace, "namespace", c.Namespace, "Restrict to one namespace (default: all)")
	flag.StringVar(&c.IncludeResources, "include-resources", c.IncludeResources,
		"Comma-separated subset of {deployments, statefulsets, stacks, cronjobs, horizontalpodautoscalers}")
	flag.DurationVar(&c.GracePeriod, "grace-period", c.GracePeriod, "Duration since creation during which scale-down is skipped")
	flag.StringVar(&c.UpscalePeriod, "upscale-period", c.UpscalePeriod, "Global one-shot upscale TimeSpec")
	flag.StringVar(&c.DownscalePeriod, "downscale-period", c.DownscalePeriod, "Global one-shot downscale TimeSpec")
	flag.StringVar(&c.DefaultUptime, "default-uptime", c.DefaultUptime, "Global recurring uptime TimeSpec")
	flag.StringVar(&c.DefaultDowntime, "default-downtime", c.DefaultDowntime, "Global recurring downtime TimeSpec")
	flag.StringVar(&c.ExcludeNamespaces, "exclude-namespaces", c.ExcludeNamespaces, "Comma-separated regex list matched against namespace name")
	flag.StringVar(&c.ExcludeDeployments, "exclude-deployments", c.ExcludeDeployments, "Comma-separated Deployment name exclusion list")
	flag.StringVar(&c.ExcludeStatefulSets, "exclude-statefulsets", c.ExcludeStatefulSets, "Comma-separated StatefulSet name exclusion list")
	flag.StringVar(&c.ExcludeCronJobs, "exclude-cronjobs", c.ExcludeCronJobs, "Comma-separated CronJob name exclusion list")
	flag.IntVar(&c.DowntimeReplicas, "downtime-replicas", c.DowntimeReplicas, "Target replica count during downtime")
	flag.StringVar(&c.DeploymentTimeAnnotation, "deployment-time-annotation", c.DeploymentTimeAnnotation,
		"Optional annotation name read for the grace-period anchor")
	flag.BoolVar(&c.EnableEvents, "enable-events", c.EnableEvents, "Emit cluster events on actions/failures")
	flag.StringVar(&c.MetricsAddr, "metrics-bind-address", c.MetricsAddr, "The address the metrics endpoint binds to")
	flag.StringVar(&c.ProbeAddr, "health-probe-bind-address", c.ProbeAddr, "The address the probe endpoint binds to")
}

// IncludeKinds parses the include-resources flag into the workload.Kind*
// constants the driver understands. An unrecognized token is fatal at
// startup.
func (c *OperatorConfig) IncludeKinds() ([]string, error) {
	tokens := strings.Split(c.IncludeResources, ",")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		kind, ok := resourceTokenToKind[tok]
		if !ok {
			return nil, fmt.Errorf("config: unknown include-resources token %q", tok)
		}
		out = append(out, kind)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: include-resources must name at least one resource kind")
	}
	return out, nil
}

var resourceTokenToKind = map[string]string{
	"deployments":              workload.KindDeployment,
	"statefulsets":             workload.KindStatefulSet,
	"stacks":                   workload.KindStack,
	"stacksets":                workload.KindStackSet,
	"cronjobs":                 workload.KindCronJob,
	"horizontalpodautoscalers": workload.KindHorizontalPodAutoscaler,
}

// ExcludeNamespacePatterns compiles the exclude-namespaces flag into regular
// expressions, failing fast (ConfigError) on an invalid pattern.
func (c *OperatorConfig) ExcludeNamespacePatterns() ([]*regexp.Regexp, error) {
	return compilePatterns(c.ExcludeNamespaces)
}

func compilePatterns(csv string) ([]*regexp.Regexp, error) {
	tokens := splitNonEmpty(csv)
	out := make([]*regexp.Regexp, 0, len(tokens))
	for _, tok := range tokens {
		re, err := regexp.Compile(tok)
		if err != nil {
			return nil, fmt.Errorf("config: invalid exclude-namespaces pattern %q: %w", tok, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ExcludeNames builds the per-kind exclusion-name sets the driver consults,
// keyed by workload.Kind* constant.
func (c *OperatorConfig) ExcludeNames() map[string]map[string]struct{} {
	out := map[string]map[string]struct{}{}
	add := func(kind, csv string) {
		names := splitNonEmpty(csv)
		if len(names) == 0 {
			return
		}
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		out[kind] = set
	}
	add(workload.KindDeployment, c.ExcludeDeployments)
	add(workload.KindStatefulSet, c.ExcludeStatefulSets)
	add(workload.KindCronJob, c.ExcludeCronJobs)
	return out
}

// PolicyDefaults resolves the configured global TimeSpecs into a
// policy.PolicyContext, the lowest tier of the defaults <- namespace <-
// workload precedence chain.
func (c *OperatorConfig) PolicyDefaults() (policy.PolicyContext, error) {
	upscale, err := timespec.Parse(c.UpscalePeriod)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("config: invalid upscale-period: %w", err)
	}
	downscale, err := timespec.Parse(c.DownscalePeriod)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("config: invalid downscale-period: %w", err)
	}
	uptime, err := timespec.Parse(c.DefaultUptime)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("config: invalid default-uptime: %w", err)
	}
	downtime, err := timespec.Parse(c.DefaultDowntime)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("config: invalid default-downtime: %w", err)
	}
	if c.DowntimeReplicas < 0 {
		return policy.PolicyContext{}, fmt.Errorf("config: downtime-replicas must not be negative")
	}

	return policy.PolicyContext{
		UpscalePeriod:            upscale,
		DownscalePeriod:          downscale,
		DefaultUptime:            uptime,
		DefaultDowntime:          downtime,
		DowntimeReplicas:         c.DowntimeReplicas,
		GracePeriodSeconds:       int(c.GracePeriod.Seconds()),
		DeploymentTimeAnnotation: c.DeploymentTimeAnnotation,
		DryRun:                   c.DryRun,
		EnableEvents:             c.EnableEvents,
	}, nil
}

// ReconcileOptions assembles the reconcile.Options the Driver needs,
// combining the resolved PolicyContext defaults with the kind/exclusion
// lists.
func (c *OperatorConfig) ReconcileOptions() (reconcile.Options, error) {
	defaults, err := c.PolicyDefaults()
	if err != nil {
		return reconcile.Options{}, err
	}
	kinds, err := c.IncludeKinds()
	if err != nil {
		return reconcile.Options{}, err
	}
	nsPatterns, err := c.ExcludeNamespacePatterns()
	if err != nil {
		return reconcile.Options{}, err
	}

	return reconcile.Options{
		Defaults:                 defaults,
		IncludeKinds:             kinds,
		Namespace:                c.Namespace,
		ExcludeNamespacePatterns: nsPatterns,
		ExcludeNames:             c.ExcludeNames(),
		DryRun:                   c.DryRun,
	}, nil
}
