// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package taskmanager

// TaskQueue is a bounded FIFO of pending tasks.
type TaskQueue struct {
	channel chan *Task
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		channel: make(chan *Task, 200),
	}
}

func (q *TaskQueue) Enqueue(task *Task) {
	q.channel <- task
}

func (q *TaskQueue) Dequeue() <-chan *Task {
	return q.channel
}
