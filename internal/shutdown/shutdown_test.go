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

package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestSafeDuringExitsImmediatelyWhenAlreadyRequested(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := New(ctx)

	g.mu.Lock()
	g.requested = true
	g.mu.Unlock()

	called := false
	g.SafeDuring(func() { called = true })

	if called {
		t.Fatalf("expected fn to be skipped once shutdown was already requested")
	}
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected Done() to be closed")
	}
}

func TestSafeDuringRunsNormallyWithoutShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := New(ctx)

	called := false
	g.SafeDuring(func() { called = true })

	if !called {
		t.Fatalf("expected fn to run")
	}
	select {
	case <-g.Done():
		t.Fatalf("did not expect Done() to be closed")
	default:
	}
}

func TestSignalledDuringUnsafeWindowDefersExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := New(ctx)

	g.signalled()

	if !g.Requested() {
		t.Fatalf("expected Requested() to be true after a signal")
	}
	select {
	case <-g.Done():
		t.Fatalf("did not expect Done() to be closed outside a safe window")
	default:
	}
}

func TestSignalledDuringSafeWindowClosesDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := New(ctx)

	g.mu.Lock()
	g.safeToExit = true
	g.mu.Unlock()

	g.signalled()

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected Done() to be closed")
	}
}
