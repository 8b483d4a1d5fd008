// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"sort"
)

// Registry is the published table metadata of one program. It is read-only
// and safe for concurrent use.
type Registry struct {
	program string

	tables   []*Table
	byID     map[uint32]*Table
	byName   map[string]*Table
	byHandle map[uint32]*Table

	learns      []*Learn
	learnByID   map[uint32]*Learn
	learnByName map[string]*Learn

	links *Links
}

func newRegistry(program string, tables []*Table, learns []*Learn, links *Links) *Registry {
	r := &Registry{
		program:     program,
		tables:      append([]*Table(nil), tables...),
		byID:        make(map[uint32]*Table, len(tables)),
		byName:      make(map[string]*Table, len(tables)),
		byHandle:    make(map[uint32]*Table, len(tables)),
		learns:      append([]*Learn(nil), learns...),
		learnByID:   make(map[uint32]*Learn, len(learns)),
		learnByName: make(map[string]*Learn, len(learns)),
		links:       links,
	}
	// Handles go to the first table resolved under them.
	for _, t := range r.tables {
		r.byID[t.ID] = t
		r.byName[t.Name] = t
		if _, ok := r.byHandle[t.Handle]; !ok && t.Handle != 0 {
			r.byHandle[t.Handle] = t
		}
	}
	sort.Slice(r.tables, func(i, j int) bool { return r.tables[i].ID < r.tables[j].ID })
	sort.Slice(r.learns, func(i, j int) bool { return r.learns[i].ID < r.learns[j].ID })
	for _, l := range r.learns {
		r.learnByID[l.ID] = l
		r.learnByName[l.Name] = l
	}
	return r
}

// Program is the name of the program the registry describes.
func (r *Registry) Program() string {
	return r.program
}

// Tables returns every table in id order.
func (r *Registry) Tables() []*Table {
	return append([]*Table(nil), r.tables...)
}

// Table looks up a table by logical id.
func (r *Registry) Table(id uint32) (*Table, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// TableByName looks up a table by qualified name.
func (r *Registry) TableByName(name string) (*Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// TableByHandle looks up a table by masked handle. A dynamic hash configure
// table wins over the algorithm table sharing its handle.
func (r *Registry) TableByHandle(handle uint32) (*Table, bool) {
	t, ok := r.byHandle[handle]
	return t, ok
}

// Learns returns every learn schema in id order.
func (r *Registry) Learns() []*Learn {
	return append([]*Learn(nil), r.learns...)
}

// Learn looks up a learn schema by logical id.
func (r *Registry) Learn(id uint32) (*Learn, bool) {
	l, ok := r.learnByID[id]
	return l, ok
}

// LearnByName looks up a learn schema by qualified name.
func (r *Registry) LearnByName(name string) (*Learn, bool) {
	l, ok := r.learnByName[name]
	return l, ok
}

// MatchTablesFor returns the match tables using the action profile or
// selector id.
func (r *Registry) MatchTablesFor(id uint32) []*Table {
	var tables []*Table
	for _, mid := range r.links.matchTables[id] {
		if t, ok := r.byID[mid]; ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// ActionProfileFor returns the action profile of a selector or of an
// indirect match table.
func (r *Registry) ActionProfileFor(id uint32) (*Table, bool) {
	if apID, ok := r.links.actionProfile[id]; ok {
		return r.Table(apID)
	}
	t, ok := r.byID[id]
	if !ok || !t.Type.IsMatch() {
		return nil, false
	}
	for _, ref := range t.Refs[RefActionData] {
		if ref.Indirect && ref.ID != 0 {
			return r.Table(ref.ID)
		}
	}
	return nil, false
}

// SelectorFor returns the selector of an indirect selector match table.
func (r *Registry) SelectorFor(id uint32) (*Table, bool) {
	selID, ok := r.links.selector[id]
	if !ok {
		return nil, false
	}
	return r.Table(selID)
}

// GhostHandle returns the handle of the match table the compiler generated
// for resource table id.
func (r *Registry) GhostHandle(id uint32) (uint32, bool) {
	h, ok := r.links.ghostHandle[id]
	return h, ok
}

// SupportsEntryScope reports whether the entry scope of resource table id can
// be set through its ghost table.
func (r *Registry) SupportsEntryScope(id uint32) bool {
	return r.links.entryScope[id]
}
