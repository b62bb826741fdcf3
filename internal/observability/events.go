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

package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/cloudshift-oss/downscaler/internal/workload"
)

// Event reason slugs attached to the emitted Events.
const (
	ReasonScaledDown  = "ScaledDown"
	ReasonScaledUp     = "ScaledUp"
	ReasonReconcileErr = "ReconcileFailed"
)

// dedupKey identifies an event series the way the Kubernetes event recorder
// does: the same involved object, reason, type and message are one series
// with a bumped count, not a new object each tick.
type dedupKey struct {
	uid     string
	reason  string
	evtType string
	message string
}

// EventRecorder emits deduplicated Kubernetes Events for scale actions and
// reconcile failures. It works directly against corev1.Event rather than
// client-go's record.EventRecorder, since a Workload is our own projection
// rather than a registered runtime.Object the scheme can reference.
type EventRecorder struct {
	client    kubernetes.Interface
	component string

	mu    sync.Mutex
	cache map[dedupKey]*corev1.Event
}

// NewEventRecorder returns an EventRecorder that creates/updates Events
// through client, reporting as the reporting component name.
func NewEventRecorder(client kubernetes.Interface, component string) *EventRecorder {
	return &EventRecorder{
		client:    client,
		component: component,
		cache:     make(map[dedupKey]*corev1.Event),
	}
}

// RecordScaleDown emits a scale-down Event for w.
func (r *EventRecorder) RecordScaleDown(w *workload.Workload, from, to int, reason string) {
	message := fmt.Sprintf("Scaled %s/%s from %d to %d replicas (%s)", w.Kind, w.Name, from, to, reason)
	r.emit(w, corev1.EventTypeNormal, ReasonScaledDown, message)
}

// RecordScaleUp emits a scale-up Event for w.
func (r *EventRecorder) RecordScaleUp(w *workload.Workload, from, to int, reason string) {
	message := fmt.Sprintf("Scaled %s/%s from %d to %d replicas (%s)", w.Kind, w.Name, from, to, reason)
	r.emit(w, corev1.EventTypeNormal, ReasonScaledUp, message)
}

// RecordFailure emits a warning Event when a workload could not be
// reconciled.
func (r *EventRecorder) RecordFailure(w *workload.Workload, err error) {
	message := fmt.Sprintf("Failed to reconcile %s/%s: %v", w.Kind, w.Name, err)
	r.emit(w, corev1.EventTypeWarning, ReasonReconcileErr, message)
}

func (r *EventRecorder) emit(w *workload.Workload, eventType, reason, message string) {
	key := dedupKey{uid: w.UID, reason: reason, evtType: eventType, message: message}
	now := metav1.NewTime(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.cache[key]; ok {
		r.patchCount(existing, now)
		return
	}

	ref := corev1.ObjectReference{
		APIVersion:      w.APIVersion,
		Kind:            w.Kind,
		Name:            w.Name,
		Namespace:       w.Namespace,
		UID:             types.UID(w.UID),
		ResourceVersion: w.ResourceVersion,
	}

	event := &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("%s.%x", w.Name, now.UnixNano()),
			Namespace: w.Namespace,
		},
		InvolvedObject: ref,
		Reason:         reason,
		Message:        message,
		Type:           eventType,
		Source:         corev1.EventSource{Component: r.component},
		FirstTimestamp: now,
		LastTimestamp:  now,
		Count:          1,
	}

	created, err := r.client.CoreV1().Events(w.Namespace).Create(context.Background(), event, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return
	}
	if created != nil {
		r.cache[key] = created
	}
}

func (r *EventRecorder) patchCount(existing *corev1.Event, now metav1.Time) {
	existing.Count++
	existing.LastTimestamp = now
	updated, err := r.client.CoreV1().Events(existing.Namespace).Update(context.Background(), existing, metav1.UpdateOptions{})
	if err != nil {
		return
	}
	for key, cached := range r.cache {
		if cached.UID == existing.UID {
			r.cache[key] = updated
			break
		}
	}
}
