// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// paramStrategy selects how a data field is recognised as an action
// parameter. The compiler may drop a parameter from the packed action data
// while still declaring it, so the two strategies disagree on such fields.
type paramStrategy int

const (
	// declaredParams looks the field up in the parameters the action declares.
	declaredParams paramStrategy = iota
	// packedFormat looks the field up in the packed action data format.
	packedFormat
)

type dataResolver struct {
	b   *builder
	t   *Table
	e   *entry
	log *log.Entry
}

func (b *builder) resolveData(t *Table, e *entry) error {
	r := &dataResolver{b: b, t: t, e: e, log: b.log.WithField("table", t.Name)}

	placed := r.placementActions()
	byName := make(map[string]ctxjson.Node, len(placed))
	for _, a := range placed {
		byName[a.Get("name").Str()] = a
	}

	if r.isPhase0() && len(placed) > 0 {
		// The common fields of a phase0 table are the data of its only action.
		a, err := r.action(0, placed[0].Get("name").Str(), e.iface.CommonFields, placed[0])
		if err != nil {
			return err
		}
		t.Actions = []*Action{a}
	} else {
		t.Common, t.CommonBytes, t.CommonBits = r.layout(e.iface.CommonFields, ctxjson.Node{})
		for _, ia := range e.iface.Actions {
			pa, ok := byName[ia.Name]
			if !ok && e.kind == tableBlob {
				r.log.WithField("action", ia.Name).Warn("action missing from the placement descriptor")
			}
			a, err := r.action(ia.ID, ia.Name, ia.Fields, pa)
			if err != nil {
				return err
			}
			t.Actions = append(t.Actions, a)
		}
	}
	for _, a := range t.Actions {
		if a.DataBytes > t.MaxDataBytes {
			t.MaxDataBytes = a.DataBytes
		}
		if a.DataBits > t.MaxDataBits {
			t.MaxDataBits = a.DataBits
		}
	}
	return registerPass(t)
}

// placementActions returns the placement actions of the table. Action
// profiles take theirs from the first indirect match table using them,
// together with that table's indirect references.
func (r *dataResolver) placementActions() []ctxjson.Node {
	if r.e.kind != tableBlob {
		return nil
	}
	if r.t.Type == tdi.ActionProfile {
		if src := r.b.actionProfileSource(r.t.Name); src != nil {
			r.b.inheritRefs(r.t, src)
			return src.blob.Get("actions").Array()
		}
	}
	return r.e.blob.Get("actions").Array()
}

func (r *dataResolver) action(id uint32, name string, fields []*tdi.DataField, placed ctxjson.Node) (*Action, error) {
	a := &Action{ID: id, Name: name}
	if placed.Exists() {
		a.rawHandle = placed.Get("handle").Uint32()
		h, err := r.b.masks.mask(r.e.name, a.rawHandle)
		if err != nil {
			return nil, err
		}
		a.Handle = h
	}
	a.Fields, a.DataBytes, a.DataBits = r.layout(fields, placed)
	return a, nil
}

// layout assigns byte offsets in declaration order and classifies every
// field. placed is the placement action owning the fields, if any.
func (r *dataResolver) layout(fields []*tdi.DataField, placed ctxjson.Node) ([]*DataField, int, int) {
	if len(fields) == 0 {
		return nil, 0, 0
	}
	out := make([]*DataField, 0, len(fields))
	offset, bits := 0, 0
	for _, f := range fields {
		out = append(out, &DataField{
			ID:     f.ID,
			Name:   f.Name,
			Width:  f.Width,
			Offset: offset,
			Roles:  r.classify(f.Name, placed),
		})
		offset += bytesOf(f.Width)
		bits += f.Width
	}
	return out, offset, bits
}

func (r *dataResolver) classify(name string, placed ctxjson.Node) Role {
	if r.t.Type.IsFixed() || tdi.IsBuiltin(name) {
		if role, ok := builtinRoles[name]; ok {
			return role
		}
		return RoleFixed
	}
	if !placed.Exists() {
		return 0
	}
	if role := r.indirectRole(name, placed); role.Any(indexRoles) {
		if r.isActionParam(declaredParams, name, placed) {
			role |= RoleActionParam
		}
		return role
	}
	if r.isActionParam(packedFormat, name, placed) {
		return RoleActionParam
	}
	return RoleActionParamOptimizedOut
}

// indirectRole returns the index role of a parameter addressing an indirect
// resource.
func (r *dataResolver) indirectRole(name string, placed ctxjson.Node) Role {
	for _, res := range placed.Get("indirect_resources").Array() {
		if res.Get("access_mode").Str() != "index" || res.Get("parameter_name").Str() != name {
			continue
		}
		target := res.Get("resource_name").Str()
		if it := r.b.info.TableByName(target); it != nil {
			if role := indexRole(it.Type); role != 0 {
				return role
			}
		}
		if pt, ok := r.e.doc.TableByName(target); ok {
			if role := placementIndexRole(pt.Get("table_type").Str()); role != 0 {
				return role
			}
		}
		r.log.WithFields(log.Fields{"field": name, "resource": target}).Warn("unknown indirect resource")
	}
	return 0
}

func (r *dataResolver) isActionParam(s paramStrategy, name string, placed ctxjson.Node) bool {
	switch s {
	case declaredParams:
		for _, p := range placed.Get("p4_parameters").Array() {
			if p.Get("name").Str() == name {
				return true
			}
		}
		return false
	case packedFormat:
		handle := placed.Get("handle").Uint32()
		if packedField(r.e.blob, handle, name) {
			return true
		}
		for _, ref := range r.e.blob.Get(ctxjson.ActionDataTableRefs).Array() {
			if ref.Get("how_referenced").Str() != howDirect {
				continue
			}
			if adt, ok := r.e.doc.TableByName(ref.Get("name").Str()); ok && packedField(adt, handle, name) {
				return true
			}
		}
	}
	return false
}

// packedField reports whether a placement table packs field name into the
// data of action handle, either as an immediate of a match table or in the
// pack format of an action data table.
func packedField(blob ctxjson.Node, handle uint32, name string) bool {
	for _, st := range blob.Path("match_attributes", "stage_tables").Array() {
		for _, af := range st.Get("action_format").Array() {
			if af.Get("action_handle").Uint32() != handle {
				continue
			}
			for _, f := range af.Get("immediate_fields").Array() {
				if f.Get("param_name").Str() == name {
					return true
				}
			}
		}
	}
	for _, st := range blob.Get("stage_tables").Array() {
		for _, pf := range st.Get("pack_format").Array() {
			if pf.Get("action_handle").Uint32() != handle {
				continue
			}
			for _, en := range pf.Get("entries").Array() {
				for _, f := range en.Get("fields").Array() {
					if f.Get("field_name").Str() == name {
						return true
					}
				}
			}
		}
	}
	return false
}

// registerPass classifies the register value fields of register tables and
// of match tables with a direct register.
func registerPass(t *Table) error {
	if t.Type == tdi.Register {
		var fields []*DataField
		for _, f := range t.Common {
			if !tdi.IsBuiltin(f.Name) {
				fields = append(fields, f)
			}
		}
		return assignRegisterRoles(t, fields)
	}
	if !t.Type.IsMatch() {
		return nil
	}
	for _, ref := range t.Refs[RefStateful] {
		if ref.Indirect {
			continue
		}
		prefix := unqualified(t.Profile, ref.Name) + "."
		var fields []*DataField
		for _, f := range t.Common {
			if strings.HasPrefix(f.Name, prefix) {
				fields = append(fields, f)
			}
		}
		if err := assignRegisterRoles(t, fields); err != nil {
			return err
		}
	}
	return nil
}

// assignRegisterRoles marks a single field as the register value, or two
// fields as its halves with the lower id as the low half.
func assignRegisterRoles(t *Table, fields []*DataField) error {
	var roles []Role
	switch len(fields) {
	case 1:
		roles = []Role{RoleRegister}
	case 2:
		roles = []Role{RoleRegisterLo, RoleRegisterHi}
	default:
		return nil
	}
	sorted := append([]*DataField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, f := range sorted {
		if f.Roles.Any(registerRoles) {
			return tdierr.Newf(tdierr.ErrInconsistentState, "datalayout", t.Name, "register role %v already set", f.Roles).WithField(f.Name)
		}
		f.Roles |= roles[i]
	}
	return nil
}

func hasDirectRegister(t *Table) bool {
	for _, ref := range t.Refs[RefStateful] {
		if !ref.Indirect {
			return true
		}
	}
	return false
}
