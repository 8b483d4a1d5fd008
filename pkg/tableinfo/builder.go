// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// blobKind tells what part of the placement descriptor an entry was paired
// with.
type blobKind int

const (
	noBlob blobKind = iota
	tableBlob
	dynHashBlob
	valueSetBlob
)

// entry pairs the interface side and the placement side of one table. Either
// side may be missing.
type entry struct {
	name    string
	iface   *tdi.Table
	blob    ctxjson.Node
	kind    blobKind
	profile string
	doc     *ctxjson.Document
}

func (e *entry) rawHandle() uint32 {
	switch e.kind {
	case tableBlob, dynHashBlob:
		return e.blob.Get("handle").Uint32()
	case valueSetBlob:
		return e.blob.Get("pvs_handle").Uint32()
	}
	return 0
}

type builder struct {
	ctx     context.Context
	program string
	info    *tdi.Info
	docs    []*ctxjson.Document
	caps    capability.Capabilities
	masks   *maskContext
	log     *log.Entry

	entries map[string]*entry
	order   []*entry

	tables   map[string]*Table
	byHandle map[uint32]*Table
	resolved []*Table
}

func newBuilder(ctx context.Context, program string, info *tdi.Info, docs []*ctxjson.Document, caps capability.Capabilities) *builder {
	return &builder{
		ctx:      ctx,
		program:  program,
		info:     info,
		docs:     docs,
		caps:     caps,
		masks:    newMaskContext(),
		log:      log.WithFields(log.Fields{"component": "tableinfo", "program": program}),
		entries:  map[string]*entry{},
		tables:   map[string]*Table{},
		byHandle: map[uint32]*Table{},
	}
}

func (b *builder) build() (*Registry, error) {
	b.loadMasks()
	b.merge()

	var placementOnly []*entry
	for _, e := range b.order {
		if e.iface == nil {
			placementOnly = append(placementOnly, e)
			continue
		}
		if err := b.resolveEntry(e); err != nil {
			return nil, err
		}
	}
	for _, t := range b.info.Tables {
		if t.Type == tdi.DynHashAlgorithm && b.tables[t.Name] == nil {
			b.log.WithField("table", t.Name).Warn("dynamic hash algorithm table without configure table")
		}
	}

	l := newLinker(b)
	if err := l.link(placementOnly); err != nil {
		return nil, err
	}
	return newRegistry(b.program, b.resolved, l.learns, l.links), nil
}

func (b *builder) loadMasks() {
	for _, doc := range b.docs {
		mask, err := b.caps.HandleMask(b.ctx, doc.Profile)
		if err != nil {
			b.log.WithField("profile", doc.Profile).WithError(err).Warn("handle mask query failed, using 0")
			mask = 0
		}
		b.masks.setMask(doc.Profile, mask)
	}
}

func (b *builder) add(e *entry) *entry {
	b.entries[e.name] = e
	b.order = append(b.order, e)
	return e
}

// merge joins interface tables and placement objects by name.
func (b *builder) merge() {
	for _, t := range b.info.Tables {
		if _, dup := b.entries[t.Name]; dup {
			b.log.WithField("table", t.Name).Warn("duplicate interface table, keeping the first")
			continue
		}
		b.add(&entry{name: t.Name, iface: t})
	}
	for _, doc := range b.docs {
		for _, t := range doc.Tables() {
			b.place(doc, t.Get("name").Str(), t, tableBlob)
		}
		for _, c := range doc.DynHashCalculations() {
			b.place(doc, c.Get("name").Str()+".configure", c, dynHashBlob)
		}
		for _, s := range doc.ValueSets() {
			b.place(doc, s.Get("pvs_name").Str(), s, valueSetBlob)
		}
	}
}

func (b *builder) place(doc *ctxjson.Document, name string, blob ctxjson.Node, kind blobKind) {
	b.masks.bind(name, doc.Profile)
	e, ok := b.entries[name]
	if !ok {
		e = b.add(&entry{name: name})
	}
	if e.kind != noBlob {
		b.log.WithFields(log.Fields{"table": name, "profile": doc.Profile, "first": e.profile}).
			Warn("object placed by more than one profile, keeping the first")
		return
	}
	e.blob = blob
	e.kind = kind
	e.profile = doc.Profile
	e.doc = doc
}

// resolveEntry resolves one interface table. Only inconsistent state is
// returned; other failures drop the table and are logged.
func (b *builder) resolveEntry(e *entry) error {
	if e.iface.Type == tdi.DynHashAlgorithm {
		return nil
	}
	t, err := b.resolve(e)
	if err != nil {
		return b.tableError(e.name, err)
	}
	if !b.register(t) {
		return nil
	}
	if e.iface.Type == tdi.DynHashConfigure {
		return b.resolveAlgorithm(e)
	}
	return nil
}

func (b *builder) tableError(name string, err error) error {
	if errors.Is(err, tdierr.ErrInconsistentState) {
		return err
	}
	b.log.WithField("table", name).WithError(err).Error("table skipped")
	return nil
}

// register publishes t under its name and handle. A handle already owned by
// another logical table drops t, except for the algorithm table of a dynamic
// hash, which shares the handle of its configure table.
func (b *builder) register(t *Table) bool {
	if t.Handle != 0 {
		prev, ok := b.byHandle[t.Handle]
		switch {
		case !ok:
			b.byHandle[t.Handle] = t
		case prev.ID == t.ID:
		case prev.Type == tdi.DynHashConfigure && t.Type == tdi.DynHashAlgorithm:
		default:
			err := tdierr.Newf(tdierr.ErrParse, "builder", t.Name, "handle %#x already used by %s (id %#x)", t.Handle, prev.Name, prev.ID)
			b.log.WithField("table", t.Name).WithError(err).Error("table skipped")
			return false
		}
	}
	b.tables[t.Name] = t
	b.resolved = append(b.resolved, t)
	return true
}

// resolve computes the metadata of one interface table from its pair.
func (b *builder) resolve(e *entry) (*Table, error) {
	iface := e.iface
	t := &Table{
		ID:              iface.ID,
		Name:            iface.Name,
		Type:            iface.Type,
		Profile:         e.profile,
		Size:            iface.Size,
		HasConstEntries: iface.HasConstEntries,
	}
	if e.kind != noBlob {
		h, err := b.masks.mask(e.name, e.rawHandle())
		if err != nil {
			return nil, err
		}
		t.Handle = h
		if t.Size == 0 {
			t.Size = e.blob.Get("size").Int()
		}
	}
	if err := b.resolveKey(t, e); err != nil {
		return nil, err
	}
	if e.kind == tableBlob {
		t.Refs = b.resolveRefs(e)
	}
	if err := b.resolveData(t, e); err != nil {
		return nil, err
	}
	b.resolveSpecial(t, e)
	b.probe(t, e)
	return t, nil
}

// probe asks the capability layer for what the descriptors do not say.
func (b *builder) probe(t *Table, e *entry) {
	if e.kind != tableBlob {
		return
	}
	lg := b.log.WithField("table", t.Name)
	if t.Type.IsMatch() {
		ternary, err := b.caps.IsTernary(b.ctx, e.profile, e.rawHandle())
		if err != nil {
			lg.WithError(err).Warn("ternary query failed")
		}
		t.IsTernary = ternary && err == nil
	}
	if !t.Type.IsMatch() && t.Type != tdi.PortMetadata {
		return
	}
	seen := map[uint32]capability.DirectResources{}
	for _, a := range t.Actions {
		if a.rawHandle == 0 {
			continue
		}
		if res, ok := seen[a.rawHandle]; ok {
			a.Direct = res
			continue
		}
		res, err := b.caps.ActionDirectResources(b.ctx, e.profile, e.rawHandle(), a.rawHandle)
		if err != nil {
			lg.WithField("action", a.Name).WithError(err).Warn("direct resource query failed")
			res = capability.DirectResources{}
		}
		seen[a.rawHandle] = res
		a.Direct = res
	}
}

func (b *builder) pipelines(profile string) int {
	if profile == "" {
		return 1
	}
	n, err := b.caps.NumPipelines(b.ctx, profile)
	if err != nil || n <= 0 {
		b.log.WithField("profile", profile).WithError(err).Warn("pipeline count query failed, using 1")
		return 1
	}
	return n
}
