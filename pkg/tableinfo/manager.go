// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
	"github.com/opiproject/opi-tdi-info/pkg/taskmanager"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// Manager holds the published registries of every program on a device.
type Manager struct {
	mu         sync.RWMutex
	registries map[string]*Registry
	versions   map[string]string
	bus        *eventbus.EventBus
	tasks      *taskmanager.TaskManager
}

// NewManager returns a Manager announcing changes on bus. bus may be nil.
func NewManager(bus *eventbus.EventBus) *Manager {
	return &Manager{
		registries: map[string]*Registry{},
		versions:   map[string]string{},
		bus:        bus,
	}
}

// SetTaskManager makes tm deliver the notifications of m, with retries,
// instead of a plain broadcast on the bus.
func (m *Manager) SetTaskManager(tm *taskmanager.TaskManager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = tm
}

// Load builds the registry of p and publishes it.
func (m *Manager) Load(ctx context.Context, p Program, info *tdi.Info, caps capability.Capabilities) (*Registry, error) {
	reg, err := Load(ctx, p, info, caps)
	if err != nil {
		return nil, err
	}
	m.Publish(reg)
	return reg, nil
}

// Publish makes reg the registry of its program, replacing any previous one,
// and returns the new resource version.
func (m *Manager) Publish(reg *Registry) string {
	version := uuid.NewString()
	m.mu.Lock()
	m.registries[reg.Program()] = reg
	m.versions[reg.Program()] = version
	m.mu.Unlock()

	log.WithFields(log.Fields{"component": "manager", "program": reg.Program(), "version": version}).Info("registry published")
	m.notify(eventbus.ProgramLoaded, reg.Program(), version)
	return version
}

// Remove withdraws the registry of program.
func (m *Manager) Remove(program string) bool {
	m.mu.Lock()
	_, ok := m.registries[program]
	version := m.versions[program]
	delete(m.registries, program)
	delete(m.versions, program)
	m.mu.Unlock()

	if ok {
		m.notify(eventbus.ProgramRemoved, program, version)
	}
	return ok
}

// Get returns the registry of program.
func (m *Manager) Get(program string) (*Registry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.registries[program]
	return reg, ok
}

// Version returns the resource version of the registry of program.
func (m *Manager) Version(program string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versions[program]
	return v, ok
}

// Programs lists the programs with a published registry.
func (m *Manager) Programs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.registries))
	for n := range m.registries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) notify(eventType, program, version string) {
	m.mu.RLock()
	tasks := m.tasks
	m.mu.RUnlock()
	if tasks != nil {
		tasks.CreateTask(program, eventType, version)
		return
	}
	if m.bus == nil {
		return
	}
	m.bus.Notify(eventType, &eventbus.ObjectData{
		Name:            program,
		ResourceVersion: version,
		NotificationID:  uuid.NewString(),
	})
}
