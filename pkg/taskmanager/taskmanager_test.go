// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package taskmanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
)

// flaky fails its first failures deliveries.
type flaky struct {
	mu       sync.Mutex
	tm       *TaskManager
	name     string
	order    *[]string
	failures int
	drop     bool
	calls    int
}

func (f *flaky) HandleEvent(_ string, data *eventbus.ObjectData) {
	f.mu.Lock()
	f.calls++
	var err error
	if f.calls <= f.failures {
		err = errors.New("store unavailable")
	} else {
		*f.order = append(*f.order, f.name)
	}
	f.mu.Unlock()
	f.tm.StatusUpdated(&Status{NotificationID: data.NotificationID, Err: err, Drop: f.drop, RetryAfter: time.Millisecond})
}

func (f *flaky) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func drain(t *testing.T, tm *TaskManager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tm.Drain(ctx))
}

func TestDeliveryInPriorityOrderWithRetry(t *testing.T) {
	bus := eventbus.NewEventBus()
	tm := New(bus, time.Second)
	tm.StartTaskManager()
	defer tm.Stop()

	var order []string
	second := &flaky{tm: tm, name: "second", order: &order, failures: 2}
	first := &flaky{tm: tm, name: "first", order: &order}
	bus.StartSubscriber("second", eventbus.ProgramLoaded, 2, second)
	bus.StartSubscriber("first", eventbus.ProgramLoaded, 1, first)

	tm.CreateTask("prog", eventbus.ProgramLoaded, "v1")
	drain(t, tm)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 3, second.count())
}

func TestDroppedTask(t *testing.T) {
	bus := eventbus.NewEventBus()
	tm := New(bus, time.Second)
	tm.StartTaskManager()
	defer tm.Stop()

	var order []string
	dropper := &flaky{tm: tm, name: "dropper", order: &order, drop: true}
	after := &flaky{tm: tm, name: "after", order: &order}
	bus.StartSubscriber("dropper", eventbus.ProgramRemoved, 1, dropper)
	bus.StartSubscriber("after", eventbus.ProgramRemoved, 2, after)

	tm.CreateTask("prog", eventbus.ProgramRemoved, "v1")
	drain(t, tm)

	assert.Equal(t, 1, dropper.count())
	assert.Zero(t, after.count())
}

type silent struct {
	mu    sync.Mutex
	calls int
}

func (s *silent) HandleEvent(string, *eventbus.ObjectData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func TestTimeoutRequeues(t *testing.T) {
	bus := eventbus.NewEventBus()
	tm := New(bus, 20*time.Millisecond)
	tm.StartTaskManager()
	defer tm.Stop()

	s := &silent{}
	bus.StartSubscriber("silent", eventbus.ProgramLoaded, 1, s)
	tm.CreateTask("prog", eventbus.ProgramLoaded, "v1")

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.calls >= 2
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tm.Drain(ctx), context.DeadlineExceeded)
}

func TestNoSubscribers(t *testing.T) {
	tm := New(eventbus.NewEventBus(), 0)
	assert.Equal(t, DefaultTimeout, tm.timeout)
	tm.StartTaskManager()
	defer tm.Stop()

	tm.CreateTask("prog", eventbus.ProgramLoaded, "v1")
	drain(t, tm)
}
