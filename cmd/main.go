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

// Command downscaler runs the cluster-workload downscaler's tick loop: on
// every interval it lists scalable workloads, resolves their effective
// uptime/downtime policy and patches those that need to scale.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/cloudshift-oss/downscaler/internal/config"
	"github.com/cloudshift-oss/downscaler/internal/observability"
	"github.com/cloudshift-oss/downscaler/internal/reconcile"
	"github.com/cloudshift-oss/downscaler/internal/shutdown"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

var setupLog = ctrl.Log.WithName("setup")

// nolint:gocyclo
func main() {
	operatorConfig := config.NewOperatorConfig()
	operatorConfig.BindFlags()

	zapOpts := zap.Options{Development: operatorConfig.Debug}
	zapOpts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))

	setupLog.Info("downscaler configuration",
		"dry-run", operatorConfig.DryRun,
		"once", operatorConfig.Once,
		"interval", operatorConfig.Interval,
		"namespace", operatorConfig.Namespace,
		"include-resources", operatorConfig.IncludeResources,
		"grace-period", operatorConfig.GracePeriod,
		"enable-events", operatorConfig.EnableEvents,
	)

	reconcileOpts, err := operatorConfig.ReconcileOptions()
	if err != nil {
		setupLog.Error(err, "invalid configuration")
		os.Exit(1)
	}

	restConfig := ctrl.GetConfigOrDie()

	typedClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create kubernetes clientset")
		os.Exit(1)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create dynamic client")
		os.Exit(1)
	}
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create discovery client")
		os.Exit(1)
	}

	clients := workload.Clients{
		Typed:     typedClient,
		Dynamic:   dynamicClient,
		Discovery: discoveryClient,
	}

	var events reconcile.EventEmitter
	if operatorConfig.EnableEvents {
		events = observability.NewEventRecorder(typedClient, "kube-downscaler")
	}

	driver := &reconcile.Driver{
		Clients: clients,
		Options: reconcileOpts,
		Events:  events,
		Metrics: observability.Metrics{},
	}

	serveHealthAndMetrics(operatorConfig)

	ctx := log.IntoContext(context.Background(), ctrl.Log.WithName("reconcile"))
	if err := run(ctx, driver, operatorConfig); err != nil {
		setupLog.Error(err, "downscaler loop exited with error")
		os.Exit(1)
	}
}

// run drives the tick loop: a single-threaded, cooperative loop that
// reconciles once, then either exits (--once) or sleeps for Interval inside
// a "safe to exit" window before the next tick. A signal arriving mid-tick
// defers shutdown until the tick returns; one arriving during the sleep
// exits immediately. ctx carries no cancellation of its own.
func run(ctx context.Context, driver *reconcile.Driver, cfg *config.OperatorConfig) error {
	logger := log.FromContext(ctx)
	gs := shutdown.New(ctx)

	for {
		now := time.Now().UTC()
		if err := driver.Tick(ctx, now); err != nil {
			logger.Error(err, "reconcile tick failed")
		}

		if cfg.Once {
			return nil
		}

		if gs.Requested() {
			return nil
		}

		var woke bool
		gs.SafeDuring(func() {
			select {
			case <-time.After(cfg.Interval):
				woke = true
			case <-gs.Done():
			case <-ctx.Done():
			}
		})
		if !woke {
			return nil
		}
	}
}

// serveHealthAndMetrics starts the metrics and health/readiness servers on
// their configured bind addresses. There is no controller-runtime manager
// here to host /healthz and /readyz on, so both endpoints are served
// directly.
func serveHealthAndMetrics(cfg *config.OperatorConfig) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			setupLog.Error(err, "metrics server exited")
		}
	}()

	probeMux := http.NewServeMux()
	probeMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	probeMux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	go func() {
		if err := http.ListenAndServe(cfg.ProbeAddr, probeMux); err != nil && err != http.ErrServerClosed {
			setupLog.Error(err, "health probe server exited")
		}
	}()
}
