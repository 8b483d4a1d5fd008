// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/philippgille/gokv"
	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
	"github.com/opiproject/opi-tdi-info/pkg/tableinfo"
	"github.com/opiproject/opi-tdi-info/pkg/taskmanager"
)

// ErrKeyNotFound is returned when a program has not been exported.
var ErrKeyNotFound = errors.New("key not found")

// ProgramIndex is stored under the program name and lists the keys of its
// tables and learns.
type ProgramIndex struct {
	Program         string   `json:"program"`
	ResourceVersion string   `json:"resource_version"`
	TableIDs        []uint32 `json:"table_ids"`
	LearnIDs        []uint32 `json:"learn_ids"`
}

// RetryInterval is the delay before a failed export is retried.
const RetryInterval = 2 * time.Second

// RegistrySource gives access to published registries.
type RegistrySource interface {
	Get(program string) (*tableinfo.Registry, bool)
	Version(program string) (string, bool)
}

// StatusReporter receives the outcome of every handled notification.
type StatusReporter interface {
	StatusUpdated(s *taskmanager.Status)
}

// Exporter mirrors published registries into a gokv store.
type Exporter struct {
	mu       sync.Mutex
	store    gokv.Store
	source   RegistrySource
	reporter StatusReporter
}

// NewExporter returns an Exporter writing to store the registries found in
// source.
func NewExporter(store gokv.Store, source RegistrySource) *Exporter {
	return &Exporter{store: store, source: source}
}

// SetStatusReporter makes x report the outcome of each notification to r.
func (x *Exporter) SetStatusReporter(r StatusReporter) {
	x.reporter = r
}

// TableKey is the store key of a table.
func TableKey(program string, id uint32) string {
	return fmt.Sprintf("%s/tables/%d", program, id)
}

// LearnKey is the store key of a learn schema.
func LearnKey(program string, id uint32) string {
	return fmt.Sprintf("%s/learns/%d", program, id)
}

// HandleEvent implements eventbus.EventHandler. Notifications about a
// version that is no longer current are dropped.
func (x *Exporter) HandleEvent(eventType string, data *eventbus.ObjectData) {
	lg := log.WithFields(log.Fields{"component": "storage", "program": data.Name, "event": eventType})
	status := &taskmanager.Status{NotificationID: data.NotificationID, RetryAfter: RetryInterval}
	defer x.report(status)

	switch eventType {
	case eventbus.ProgramLoaded:
		reg, ok := x.source.Get(data.Name)
		version, _ := x.source.Version(data.Name)
		if !ok || version != data.ResourceVersion {
			lg.WithField("version", data.ResourceVersion).Info("stale notification dropped")
			status.Drop = true
			return
		}
		status.Err = x.Export(reg, data.ResourceVersion)
	case eventbus.ProgramRemoved:
		if _, ok := x.source.Get(data.Name); ok {
			lg.Info("program published again, removal dropped")
			status.Drop = true
			return
		}
		status.Err = x.Remove(data.Name)
		if errors.Is(status.Err, ErrKeyNotFound) {
			status.Err = nil
		}
	default:
		lg.Warn("unexpected event")
		status.Drop = true
		return
	}
	if status.Err != nil {
		lg.WithError(status.Err).Error("export failed")
		return
	}
	lg.Info("exported")
}

func (x *Exporter) report(s *taskmanager.Status) {
	if x.reporter != nil {
		x.reporter.StatusUpdated(s)
	}
}

// Export writes every table and learn of reg, then the program index. Keys of
// a previous export that are no longer used are removed.
func (x *Exporter) Export(reg *tableinfo.Registry, version string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	program := reg.Program()
	old, err := x.index(program)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	idx := ProgramIndex{Program: program, ResourceVersion: version}
	for _, t := range reg.Tables() {
		if err := x.store.Set(TableKey(program, t.ID), t); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		idx.TableIDs = append(idx.TableIDs, t.ID)
	}
	for _, l := range reg.Learns() {
		if err := x.store.Set(LearnKey(program, l.ID), l); err != nil {
			return fmt.Errorf("learn %s: %w", l.Name, err)
		}
		idx.LearnIDs = append(idx.LearnIDs, l.ID)
	}
	if err := x.store.Set(program, idx); err != nil {
		return err
	}
	if old != nil {
		return x.deleteStale(program, old, &idx)
	}
	return nil
}

func (x *Exporter) deleteStale(program string, old, cur *ProgramIndex) error {
	keep := map[string]bool{}
	for _, id := range cur.TableIDs {
		keep[TableKey(program, id)] = true
	}
	for _, id := range cur.LearnIDs {
		keep[LearnKey(program, id)] = true
	}
	for _, key := range indexKeys(old) {
		if keep[key] {
			continue
		}
		if err := x.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func indexKeys(idx *ProgramIndex) []string {
	keys := make([]string, 0, len(idx.TableIDs)+len(idx.LearnIDs))
	for _, id := range idx.TableIDs {
		keys = append(keys, TableKey(idx.Program, id))
	}
	for _, id := range idx.LearnIDs {
		keys = append(keys, LearnKey(idx.Program, id))
	}
	return keys
}

// Remove deletes every key of program.
func (x *Exporter) Remove(program string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	idx, err := x.index(program)
	if err != nil {
		return err
	}
	for _, key := range indexKeys(idx) {
		if err := x.store.Delete(key); err != nil {
			return err
		}
	}
	return x.store.Delete(program)
}

// Index reads the index of program.
func (x *Exporter) Index(program string) (*ProgramIndex, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index(program)
}

func (x *Exporter) index(program string) (*ProgramIndex, error) {
	idx := &ProgramIndex{}
	found, err := x.store.Get(program, idx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return idx, nil
}

// GetTable reads one exported table.
func (x *Exporter) GetTable(program string, id uint32) (*tableinfo.Table, error) {
	t := &tableinfo.Table{}
	found, err := x.store.Get(TableKey(program, id), t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return t, nil
}
