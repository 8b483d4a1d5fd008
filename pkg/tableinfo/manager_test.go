// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
)

type eventLog struct {
	mu     sync.Mutex
	events []eventbus.ObjectData
	types  []string
}

func (l *eventLog) HandleEvent(eventType string, data *eventbus.ObjectData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, eventType)
	l.events = append(l.events, *data)
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *eventLog) at(i int) (string, eventbus.ObjectData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.types[i], l.events[i]
}

func TestManagerPublish(t *testing.T) {
	bus := eventbus.NewEventBus()
	events := &eventLog{}
	loaded := bus.StartSubscriber("test", eventbus.ProgramLoaded, 1, events)
	removed := bus.StartSubscriber("test", eventbus.ProgramRemoved, 1, events)
	defer bus.UnsubscribeEvent(loaded, eventbus.ProgramLoaded)
	defer bus.UnsubscribeEvent(removed, eventbus.ProgramRemoved)

	m := NewManager(bus)
	reg := buildTest(t)
	version := m.Publish(reg)
	assert.NotEmpty(t, version)

	got, ok := m.Get("l3switch")
	require.True(t, ok)
	assert.Same(t, reg, got)
	v, ok := m.Version("l3switch")
	require.True(t, ok)
	assert.Equal(t, version, v)
	assert.Equal(t, []string{"l3switch"}, m.Programs())

	require.Eventually(t, func() bool { return events.len() == 1 }, time.Second, 10*time.Millisecond)
	typ, data := events.at(0)
	assert.Equal(t, eventbus.ProgramLoaded, typ)
	assert.Equal(t, "l3switch", data.Name)
	assert.Equal(t, version, data.ResourceVersion)
	assert.NotEmpty(t, data.NotificationID)

	next := m.Publish(buildTest(t))
	assert.NotEqual(t, version, next)

	assert.True(t, m.Remove("l3switch"))
	assert.False(t, m.Remove("l3switch"))
	_, ok = m.Get("l3switch")
	assert.False(t, ok)
	assert.Empty(t, m.Programs())

	require.Eventually(t, func() bool { return events.len() == 3 }, time.Second, 10*time.Millisecond)
	typ, data = events.at(2)
	assert.Equal(t, eventbus.ProgramRemoved, typ)
	assert.Equal(t, next, data.ResourceVersion)
}

func TestManagerLoad(t *testing.T) {
	m := NewManager(nil)
	p := Program{Name: "l3switch", Profiles: []Profile{{Name: "pipe", ContextFile: "testdata/context.json"}}}

	reg, err := m.Load(context.Background(), p, testInfo(), staticCaps(loadTestDoc(t)))
	require.NoError(t, err)
	got, ok := m.Get("l3switch")
	require.True(t, ok)
	assert.Same(t, reg, got)

	p.Name = "broken"
	p.Profiles[0].ContextFile = "testdata/missing.json"
	_, err = m.Load(context.Background(), p, testInfo(), staticCaps())
	assert.Error(t, err)
	_, ok = m.Get("broken")
	assert.False(t, ok)
}

func TestLoadSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	p := Program{Name: "l3switch", Profiles: []Profile{{Name: "pipe", ContextFile: "testdata/context.json"}}}
	_, err := Load(context.Background(), p, testInfo(), staticCaps(loadTestDoc(t)))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "tableinfo.LoadDocuments", spans[0].Name())
	assert.Equal(t, "tableinfo.Build", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	p.Profiles[0].ContextFile = "testdata/missing.json"
	_, err = Load(context.Background(), p, testInfo(), staticCaps())
	require.Error(t, err)
	spans = sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
