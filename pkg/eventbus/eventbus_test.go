// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) HandleEvent(eventType string, data *ObjectData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType+":"+data.Name)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestSubscribersSortedByPriority(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe("low", ProgramLoaded, 10, &recorder{})
	bus.Subscribe("high", ProgramLoaded, 1, &recorder{})
	bus.Subscribe("mid", ProgramLoaded, 5, &recorder{})

	subs := bus.GetSubscribers(ProgramLoaded)
	require.Len(t, subs, 3)
	assert.Equal(t, "high", subs[0].Name)
	assert.Equal(t, "mid", subs[1].Name)
	assert.Equal(t, "low", subs[2].Name)
	assert.Empty(t, bus.GetSubscribers(ProgramRemoved))
}

func TestNotify(t *testing.T) {
	bus := NewEventBus()
	rec := &recorder{}
	sub := bus.StartSubscriber("store", ProgramLoaded, 1, rec)

	bus.Notify(ProgramLoaded, &ObjectData{Name: "prog", ResourceVersion: "v1"})
	assert.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"program_loaded:prog"}, rec.seen())

	bus.UnsubscribeEvent(sub, ProgramLoaded)
	assert.Empty(t, bus.GetSubscribers(ProgramLoaded))
	bus.Notify(ProgramLoaded, &ObjectData{Name: "other"})
	assert.Len(t, rec.seen(), 1)
}
