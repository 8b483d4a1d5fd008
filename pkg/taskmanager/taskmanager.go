// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

// Package taskmanager delivers registry notifications to subscribers one at a
// time, in priority order, and retries a subscriber until it reports success.
package taskmanager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
)

// DefaultTimeout is how long a subscriber may take to report a status.
const DefaultTimeout = 30 * time.Second

// Task is one notification to deliver to every subscriber of its event.
type Task struct {
	name            string
	eventType       string
	resourceVersion string
	subIndex        int
	retryTimer      time.Duration
	subs            []*eventbus.Subscriber
}

// Status is the outcome a subscriber reports for one notification.
type Status struct {
	NotificationID string
	// Drop abandons the task, e.g. when the program it announces has been
	// replaced or removed meanwhile.
	Drop bool
	Err  error
	// RetryAfter delays the next delivery after a failure.
	RetryAfter time.Duration
}

type TaskManager struct {
	bus            *eventbus.EventBus
	taskQueue      *TaskQueue
	taskStatusChan chan *Status
	timeout        time.Duration
	pending        sync.WaitGroup
	quit           chan struct{}
	stopOnce       sync.Once
}

// New returns a TaskManager delivering through bus. A zero timeout selects
// DefaultTimeout.
func New(bus *eventbus.EventBus, timeout time.Duration) *TaskManager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TaskManager{
		bus:            bus,
		taskQueue:      NewTaskQueue(),
		taskStatusChan: make(chan *Status, 16),
		timeout:        timeout,
		quit:           make(chan struct{}),
	}
}

func (t *TaskManager) StartTaskManager() {
	go t.processTasks()
	log.WithField("component", "taskmanager").Info("task manager started")
}

// Stop ends task processing. Pending tasks are abandoned.
func (t *TaskManager) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
}

// CreateTask queues the notification of eventType for program name to every
// current subscriber of eventType.
func (t *TaskManager) CreateTask(name, eventType, resourceVersion string) {
	task := &Task{
		name:            name,
		eventType:       eventType,
		resourceVersion: resourceVersion,
		subs:            t.bus.GetSubscribers(eventType),
	}
	t.pending.Add(1)
	// Enqueue from a goroutine so a full queue blocks only that goroutine.
	go t.taskQueue.Enqueue(task)
	log.WithFields(log.Fields{"component": "taskmanager", "program": name, "event": eventType}).Debug("task created")
}

// StatusUpdated hands the status of a notification back to the task
// manager. Statuses that nobody waits for any more are dropped.
func (t *TaskManager) StatusUpdated(s *Status) {
	select {
	case t.taskStatusChan <- s:
	default:
		log.WithFields(log.Fields{"component": "taskmanager", "notification": s.NotificationID}).Warn("status channel full, status dropped")
	}
}

// Drain waits until every created task is delivered or dropped.
func (t *TaskManager) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TaskManager) processTasks() {
	for {
		select {
		case task := <-t.taskQueue.Dequeue():
			t.process(task)
		case <-t.quit:
			return
		}
	}
}

// process delivers task to its remaining subscribers. The task is requeued
// on a failure or a timeout and resumes at the subscriber that did not
// succeed.
func (t *TaskManager) process(task *Task) {
	lg := log.WithFields(log.Fields{"component": "taskmanager", "program": task.name, "event": task.eventType})
	for task.subIndex < len(task.subs) {
		sub := task.subs[task.subIndex]
		objectData := &eventbus.ObjectData{
			Name:            task.name,
			ResourceVersion: task.resourceVersion,
			// Tells the status of this delivery apart from late statuses of
			// earlier ones.
			NotificationID: uuid.NewString(),
		}
		t.bus.Publish(objectData, sub)

		status, ok := t.waitStatus(objectData.NotificationID)
		if !ok {
			lg.WithField("subscriber", sub.Name).Warn("no status received, requeueing")
			go t.taskQueue.Enqueue(task)
			return
		}
		if status.Drop {
			lg.WithField("subscriber", sub.Name).Info("task dropped")
			t.pending.Done()
			return
		}
		if status.Err != nil {
			task.retryTimer = status.RetryAfter
			lg.WithField("subscriber", sub.Name).WithError(status.Err).Warnf("task failed, retrying in %v", task.retryTimer)
			time.AfterFunc(task.retryTimer, func() {
				t.taskQueue.Enqueue(task)
			})
			return
		}
		task.subIndex++
	}
	lg.Debug("task done")
	t.pending.Done()
}

func (t *TaskManager) waitStatus(notificationID string) (*Status, bool) {
	timeout := time.After(t.timeout)
	for {
		select {
		case s := <-t.taskStatusChan:
			if s.NotificationID == notificationID {
				return s, true
			}
		case <-timeout:
			return nil, false
		case <-t.quit:
			return nil, false
		}
	}
}
