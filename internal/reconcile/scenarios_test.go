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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/cloudshift-oss/downscaler/internal/policy"
	"github.com/cloudshift-oss/downscaler/internal/timespec"
	"github.com/cloudshift-oss/downscaler/internal/workload"
)

func mustSpecG(raw string) *timespec.Spec {
	s, err := timespec.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func newScenarioDynamicClient(objs ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, map[schema.GroupVersionResource]string{
		{Group: "zalando.org", Version: "v1", Resource: "stacks"}:    "StackList",
		{Group: "zalando.org", Version: "v1", Resource: "stacksets"}: "StackSetList",
	}, objs...)
}

var _ = Describe("End-to-end scaling scenarios", func() {
	var ns *corev1.Namespace

	BeforeEach(func() {
		ns = &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "team-a"}}
	})

	It("scales down a Deployment with downtime=always and zero grace", func() {
		now := time.Date(2018, 10, 23, 21, 56, 0, 0, time.UTC)
		deploy := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "web",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(now.Add(-time.Minute)),
				Annotations:       map[string]string{workload.AnnotationExclude: "false"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: intptr32(1)},
		}
		clientset := fake.NewSimpleClientset(deploy, ns)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("never"),
					DefaultDowntime:    mustSpecG("always"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindDeployment},
			},
		}

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Replicas).To(Equal(int32(0)))
		Expect(got.Annotations[workload.AnnotationOriginalReplicas]).To(Equal("1"))
	})

	It("leaves a Deployment alone inside its grace period", func() {
		now := time.Date(2018, 10, 23, 21, 56, 0, 0, time.UTC)
		deploy := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "web",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(now.Add(-time.Minute)),
				Annotations:       map[string]string{workload.AnnotationExclude: "false"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: intptr32(1)},
		}
		clientset := fake.NewSimpleClientset(deploy, ns)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("never"),
					DefaultDowntime:    mustSpecG("always"),
					GracePeriodSeconds: 300,
				},
				IncludeKinds: []string{workload.KindDeployment},
			},
		}

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Replicas).To(Equal(int32(1)))
		Expect(got.Annotations).NotTo(HaveKey(workload.AnnotationOriginalReplicas))
	})

	It("restores a Deployment from its stored original-replicas during uptime", func() {
		now := time.Date(2018, 10, 23, 15, 0, 0, 0, time.UTC)
		deploy := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "web",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(now.Add(-24 * time.Hour)),
				Annotations:       map[string]string{workload.AnnotationOriginalReplicas: "3"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: intptr32(0)},
		}
		clientset := fake.NewSimpleClientset(deploy, ns)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("Mon-Fri 07:30-20:30 Europe/Berlin"),
					DefaultDowntime:    mustSpecG("never"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindDeployment},
			},
		}

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Replicas).To(Equal(int32(3)))
		Expect(got.Annotations).NotTo(HaveKey(workload.AnnotationOriginalReplicas))
	})

	It("restores a Stack by nulling spec.replicas back to the autoscaler max", func() {
		now := time.Date(2018, 10, 23, 15, 0, 0, 0, time.UTC)
		stack := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": "zalando.org/v1",
			"kind":       "Stack",
			"metadata": map[string]interface{}{
				"name":        "web-v1",
				"namespace":   "team-a",
				"annotations": map[string]interface{}{workload.AnnotationOriginalReplicas: "4"},
			},
			"spec": map[string]interface{}{
				"replicas":   int64(0),
				"autoscaler": map[string]interface{}{"maxReplicas": int64(4)},
			},
		}}
		clientset := fake.NewSimpleClientset(ns)
		dynClient := newScenarioDynamicClient(stack)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: dynClient},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("always"),
					DefaultDowntime:    mustSpecG("never"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindStack},
			},
		}

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		gvr := schema.GroupVersionResource{Group: "zalando.org", Version: "v1", Resource: "stacks"}
		got, err := dynClient.Resource(gvr).Namespace("team-a").Get(context.Background(), "web-v1", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		_, stillSet, _ := unstructured.NestedInt64(got.Object, "spec", "replicas")
		Expect(stillSet).To(BeFalse(), "spec.replicas should have been removed by the strategic-merge null")
		Expect(got.GetAnnotations()).NotTo(HaveKey(workload.AnnotationOriginalReplicas))
	})

	It("suspends a CronJob under a namespace-level downtime override", func() {
		now := time.Date(2018, 10, 23, 15, 0, 0, 0, time.UTC)
		ns.Annotations = map[string]string{workload.AnnotationUptime: "never"}
		cj := &batchv1.CronJob{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "nightly",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(now.Add(-24 * time.Hour)),
			},
			Spec: batchv1.CronJobSpec{Suspend: boolPtr(false)},
		}
		clientset := fake.NewSimpleClientset(cj, ns)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("always"),
					DefaultDowntime:    mustSpecG("always"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindCronJob},
			},
		}

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.BatchV1().CronJobs("team-a").Get(context.Background(), "nightly", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Suspend).To(BeTrue())
		Expect(got.Annotations[workload.AnnotationOriginalReplicas]).To(Equal("1"))
	})

	It("honors a future exclude-until and then resumes downscaling once it elapses", func() {
		deployFuture := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "web",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
				Annotations:       map[string]string{workload.AnnotationExcludeUntil: "2040-01-01"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: intptr32(1)},
		}
		clientset := fake.NewSimpleClientset(deployFuture, ns)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("never"),
					DefaultDowntime:    mustSpecG("always"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindDeployment},
			},
		}

		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Replicas).To(Equal(int32(1)), "exclude-until in the future must block the scale-down")

		got.Annotations[workload.AnnotationExcludeUntil] = "2020-04-04"
		_, err = clientset.AppsV1().Deployments("team-a").Update(context.Background(), got, metav1.UpdateOptions{})
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got2, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got2.Spec.Replicas).To(Equal(int32(0)))
		Expect(got2.Annotations[workload.AnnotationExcludeUntil]).To(Equal("2020-04-04"), "exclude-until must survive an unrelated patch")
	})

	It("leaves every workload alone while any running pod forces uptime", func() {
		deploy := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "web",
				Namespace:         "team-a",
				CreationTimestamp: metav1.NewTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			Spec: appsv1.DeploymentSpec{Replicas: intptr32(3)},
		}
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:        "forcer",
				Namespace:   "team-a",
				Annotations: map[string]string{workload.AnnotationForceUptime: "true"},
			},
			Status: corev1.PodStatus{Phase: corev1.PodRunning},
		}
		clientset := fake.NewSimpleClientset(deploy, ns, pod)
		driver := &Driver{
			Clients: workload.Clients{Typed: clientset, Dynamic: newScenarioDynamicClient()},
			Options: Options{
				Defaults: policy.PolicyContext{
					UpscalePeriod:      mustSpecG("never"),
					DownscalePeriod:    mustSpecG("never"),
					DefaultUptime:      mustSpecG("never"),
					DefaultDowntime:    mustSpecG("always"),
					GracePeriodSeconds: 0,
				},
				IncludeKinds: []string{workload.KindDeployment},
			},
		}

		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		Expect(driver.Tick(context.Background(), now)).To(Succeed())

		got, err := clientset.AppsV1().Deployments("team-a").Get(context.Background(), "web", metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(*got.Spec.Replicas).To(Equal(int32(3)), "pod-level force-uptime must block scale-down cluster-wide")
	})
})

func boolPtr(b bool) *bool { return &b }
