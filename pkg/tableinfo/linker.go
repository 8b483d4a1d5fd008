// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// Links are the edges between resolved tables. They are computed after every
// table of the program is resolved and are kept apart from the tables so
// that a Table never changes once built.
type Links struct {
	// matchTables maps an action profile or selector to the match tables
	// using it.
	matchTables map[uint32][]uint32
	// actionProfile maps a selector to the action profile it is bound to.
	actionProfile map[uint32]uint32
	// selector maps an indirect match table to its selector.
	selector map[uint32]uint32
	// ghostHandle maps a resource table to the handle of the match table the
	// compiler generated for it.
	ghostHandle map[uint32]uint32
	entryScope  map[uint32]bool
}

func newLinks() *Links {
	return &Links{
		matchTables:   map[uint32][]uint32{},
		actionProfile: map[uint32]uint32{},
		selector:      map[uint32]uint32{},
		ghostHandle:   map[uint32]uint32{},
		entryScope:    map[uint32]bool{},
	}
}

type linker struct {
	b      *builder
	links  *Links
	learns []*Learn
	log    *log.Entry
}

func newLinker(b *builder) *linker {
	return &linker{
		b:     b,
		links: newLinks(),
		log:   b.log.WithField("component", "linker"),
	}
}

func (l *linker) link(placementOnly []*entry) error {
	l.backPointers()
	l.selectors()
	if err := l.ghostTables(placementOnly); err != nil {
		return err
	}
	l.resolveLearns()
	return nil
}

// backPointers records, for every action profile and selector, the match
// tables referencing it.
func (l *linker) backPointers() {
	for _, t := range l.b.resolved {
		if !t.Type.IsMatch() {
			continue
		}
		for _, kind := range []RefKind{RefActionData, RefSelection} {
			for _, ref := range t.Refs[kind] {
				if !ref.Indirect || ref.ID == 0 || containsID(l.links.matchTables[ref.ID], t.ID) {
					continue
				}
				l.links.matchTables[ref.ID] = append(l.links.matchTables[ref.ID], t.ID)
			}
		}
	}
}

func containsID(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// selectors binds selectors to their action profiles and indirect selector
// match tables to their selectors.
func (l *linker) selectors() {
	for _, t := range l.b.resolved {
		e := l.b.entries[t.Name]
		if e == nil || e.kind != tableBlob {
			continue
		}
		lg := l.log.WithField("table", t.Name)
		switch t.Type {
		case tdi.Selector:
			raw := e.blob.Get("bound_to_action_data_table_handle").Uint32()
			id, err := l.idByRawHandle(e, raw)
			if err != nil {
				lg.WithError(err).Warn("selector not bound to an action profile")
				continue
			}
			l.links.actionProfile[t.ID] = id
		case tdi.MatchActionIndirectSelector:
			refs := e.blob.Get(ctxjson.SelectionTableRefs).Array()
			if len(refs) == 0 {
				lg.Warn("indirect selector table without selection reference")
				continue
			}
			id, err := l.idByRawHandle(e, refs[0].Get("handle").Uint32())
			if err != nil {
				lg.WithError(err).Warn("selector of match table not found")
				continue
			}
			l.links.selector[t.ID] = id
		}
	}
}

// idByRawHandle finds the logical id of the table placed under raw in the
// profile of e. The name of the table is only known after the raw lookup, so
// the handle is masked afterwards.
func (l *linker) idByRawHandle(e *entry, raw uint32) (uint32, error) {
	target, ok := e.doc.TableByHandle(raw)
	if !ok {
		return 0, tdierr.Newf(tdierr.ErrObjectNotFound, "linker", e.name, "no placement table with handle %#x", raw)
	}
	name := target.Get("name").Str()
	h, err := l.b.masks.mask(name, raw)
	if err != nil {
		return 0, err
	}
	t, ok := l.b.byHandle[h]
	if !ok {
		return 0, tdierr.Newf(tdierr.ErrObjectNotFound, "linker", e.name, "table %s (handle %#x) is not resolved", name, h)
	}
	return t.ID, nil
}

// ghostTables gives resource tables the handle of the match table the
// compiler generated for them. Such a table references nothing but
// registers.
func (l *linker) ghostTables(placementOnly []*entry) error {
	for _, e := range placementOnly {
		if e.kind != tableBlob || !onlyStatefulRefs(e.blob) {
			continue
		}
		handle, err := l.b.masks.mask(e.name, e.rawHandle())
		if err != nil {
			return err
		}
		for _, ref := range e.blob.Get(ctxjson.StatefulTableRefs).Array() {
			name := ref.Get("name").Str()
			res, ok := l.b.tables[name]
			if !ok {
				return tdierr.Newf(tdierr.ErrObjectNotFound, "linker", e.name, "ghost table references unknown resource %s", name)
			}
			l.links.ghostHandle[res.ID] = handle
			l.links.entryScope[res.ID] = true
			l.log.WithFields(log.Fields{"table": res.Name, "ghost": e.name}).Debug("ghost table bound")
		}
	}
	return nil
}

func onlyStatefulRefs(blob ctxjson.Node) bool {
	found := false
	for _, key := range ctxjson.RefKeys {
		if blob.Get(key).Len() == 0 {
			continue
		}
		if key != ctxjson.StatefulTableRefs {
			return false
		}
		found = true
	}
	return found
}

// resolveLearns binds every learn schema to the first profile carrying it.
func (l *linker) resolveLearns() {
	for _, il := range l.b.info.Learns {
		learn := &Learn{ID: il.ID, Name: il.Name}
		learn.Fields = plainLayout(il.Fields)
		for _, doc := range l.b.docs {
			q, ok := doc.LearnByName(il.Name)
			if !ok {
				continue
			}
			l.b.masks.bind(il.Name, doc.Profile)
			h, err := l.b.masks.mask(il.Name, q.Get("handle").Uint32())
			if err != nil {
				break
			}
			learn.Handle = h
			learn.Profile = doc.Profile
			learn.Resolved = true
			break
		}
		if !learn.Resolved {
			l.log.WithField("learn", il.Name).Warn("learn schema not placed by any profile")
		}
		l.learns = append(l.learns, learn)
	}
}

func plainLayout(fields []*tdi.DataField) []*DataField {
	out := make([]*DataField, 0, len(fields))
	offset := 0
	for _, f := range fields {
		out = append(out, &DataField{ID: f.ID, Name: f.Name, Width: f.Width, Offset: offset})
		offset += bytesOf(f.Width)
	}
	return out
}
