// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package eventbus notifies subscribers, in priority order, of programs whose
// table metadata was published or withdrawn.
package eventbus

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event types.
const (
	ProgramLoaded  = "program_loaded"
	ProgramRemoved = "program_removed"
)

// EBus is the process wide bus.
var EBus = NewEventBus()

type EventBus struct {
	subscribers   map[string][]*Subscriber
	eventHandlers map[string]EventHandler
	subscriberL   sync.RWMutex
	publishL      sync.RWMutex
}

type Subscriber struct {
	Name     string
	Ch       chan interface{}
	Quit     chan bool
	Priority int
}

type EventHandler interface {
	HandleEvent(string, *ObjectData)
}

// ObjectData identifies the program an event is about.
type ObjectData struct {
	ResourceVersion string
	Name            string
	NotificationID  string
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers:   make(map[string][]*Subscriber),
		eventHandlers: make(map[string]EventHandler),
	}
}

// StartSubscriber registers eventHandler for eventType and serves it from its
// own goroutine until the subscriber is unsubscribed.
func (e *EventBus) StartSubscriber(moduleName, eventType string, priority int, eventHandler EventHandler) *Subscriber {
	subscriber := e.Subscribe(moduleName, eventType, priority, eventHandler)
	handlerKey := moduleName + "." + eventType

	go func() {
		for {
			select {
			case event := <-subscriber.Ch:
				log.WithFields(log.Fields{"subscriber": moduleName, "event": eventType}).Debug("event received")
				e.subscriberL.RLock()
				handler, ok := e.eventHandlers[handlerKey]
				e.subscriberL.RUnlock()
				if !ok {
					log.WithField("subscriber", moduleName).Error("no event handler found")
					continue
				}
				objectData, ok := event.(*ObjectData)
				if !ok {
					log.WithField("subscriber", moduleName).Errorf("unexpected event type %T", event)
					continue
				}
				handler.HandleEvent(eventType, objectData)
			case <-subscriber.Quit:
				return
			}
		}
	}()
	return subscriber
}

// Subscribe registers a subscriber for eventType.
func (e *EventBus) Subscribe(moduleName, eventType string, priority int, eventHandler EventHandler) *Subscriber {
	e.subscriberL.Lock()
	defer e.subscriberL.Unlock()

	subscriber := &Subscriber{
		Name:     moduleName,
		Ch:       make(chan interface{}, 1),
		Quit:     make(chan bool, 1),
		Priority: priority,
	}

	e.subscribers[eventType] = append(e.subscribers[eventType], subscriber)
	e.eventHandlers[moduleName+"."+eventType] = eventHandler

	// Sort subscribers based on priority
	sort.SliceStable(e.subscribers[eventType], func(i, j int) bool {
		return e.subscribers[eventType][i].Priority < e.subscribers[eventType][j].Priority
	})

	log.WithFields(log.Fields{"subscriber": moduleName, "event": eventType, "priority": priority}).Info("subscriber registered")
	return subscriber
}

// GetSubscribers returns the subscribers of eventType, highest priority
// (lowest value) first.
func (e *EventBus) GetSubscribers(eventType string) []*Subscriber {
	e.subscriberL.RLock()
	defer e.subscriberL.RUnlock()

	return append([]*Subscriber(nil), e.subscribers[eventType]...)
}

// Publish hands objectData to one subscriber.
func (e *EventBus) Publish(objectData *ObjectData, subscriber *Subscriber) {
	e.publishL.RLock()
	defer e.publishL.RUnlock()
	subscriber.Ch <- objectData
}

// Notify publishes objectData to every subscriber of eventType in priority
// order.
func (e *EventBus) Notify(eventType string, objectData *ObjectData) {
	for _, s := range e.GetSubscribers(eventType) {
		e.Publish(objectData, s)
	}
}

// UnsubscribeEvent removes the subscription of subscriber to eventType and
// stops its goroutine.
func (e *EventBus) UnsubscribeEvent(subscriber *Subscriber, eventType string) {
	e.subscriberL.Lock()
	defer e.subscriberL.Unlock()

	subscribers, ok := e.subscribers[eventType]
	if !ok {
		return
	}
	for i, sub := range subscribers {
		if sub == subscriber {
			e.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)
			delete(e.eventHandlers, subscriber.Name+"."+eventType)
			subscriber.Quit <- true
			log.WithFields(log.Fields{"subscriber": subscriber.Name, "event": eventType}).Info("subscriber unsubscribed")
			break
		}
	}
	if len(e.subscribers[eventType]) == 0 {
		delete(e.subscribers, eventType)
	}
}
