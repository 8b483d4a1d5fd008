// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

const howDirect = "direct"

// resolveRefs reads the reference lists of a placement table.
func (b *builder) resolveRefs(e *entry) map[RefKind][]ResourceRef {
	var refs map[RefKind][]ResourceRef
	for _, key := range ctxjson.RefKeys {
		for _, n := range e.blob.Get(key).Array() {
			if refs == nil {
				refs = map[RefKind][]ResourceRef{}
			}
			refs[RefKind(key)] = append(refs[RefKind(key)], b.resolveRef(e, n))
		}
	}
	return refs
}

func (b *builder) resolveRef(e *entry, n ctxjson.Node) ResourceRef {
	ref := ResourceRef{
		Name:     n.Get("name").Str(),
		Indirect: n.Get("how_referenced").Str() != howDirect,
	}
	lg := b.log.WithFields(log.Fields{"table": e.name, "ref": ref.Name})
	raw := n.Get("handle").Uint32()
	h, err := b.masks.mask(ref.Name, raw)
	if err != nil {
		lg.WithError(err).Warn("referenced table has no placement, masking with the referencing profile")
		h = b.masks.maskProfile(e.profile, raw)
	}
	ref.Handle = h
	if !ref.Indirect {
		return ref
	}
	target := b.info.TableByName(ref.Name)
	if target == nil {
		err := tdierr.Newf(tdierr.ErrObjectNotFound, "refs", e.name, "referenced table %s is not in the interface descriptor", ref.Name)
		lg.WithError(err).Warn("reference left unresolved")
		return ref
	}
	ref.ID = target.ID
	return ref
}

// inheritedRefKinds travel from an indirect match table to the action profile
// it uses.
var inheritedRefKinds = []RefKind{RefSelection, RefMeter, RefStatistics, RefStateful}

// actionProfileSource finds the first indirect match table using the action
// profile named name.
func (b *builder) actionProfileSource(name string) *entry {
	for _, m := range b.order {
		if m.kind != tableBlob || m.name == name {
			continue
		}
		if m.iface == nil || (m.iface.Type != tdi.MatchActionIndirect && m.iface.Type != tdi.MatchActionIndirectSelector) {
			continue
		}
		for _, ref := range m.blob.Get(ctxjson.ActionDataTableRefs).Array() {
			if ref.Get("name").Str() == name && ref.Get("how_referenced").Str() != howDirect {
				return m
			}
		}
	}
	return nil
}

// inheritRefs copies the indirect references of the match table src onto t.
func (b *builder) inheritRefs(t *Table, src *entry) {
	refs := b.resolveRefs(src)
	for _, kind := range inheritedRefKinds {
		for _, r := range refs[kind] {
			if !r.Indirect || hasRef(t.Refs[kind], r.Name) {
				continue
			}
			if t.Refs == nil {
				t.Refs = map[RefKind][]ResourceRef{}
			}
			t.Refs[kind] = append(t.Refs[kind], r)
		}
	}
}

func hasRef(refs []ResourceRef, name string) bool {
	for _, r := range refs {
		if r.Name == name {
			return true
		}
	}
	return false
}
