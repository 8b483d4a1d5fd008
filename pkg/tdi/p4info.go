// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tdi

import (
	"fmt"
	"os"

	p4configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// P4Info ids carry the object kind in their top byte. 0x80 and above are
// left to architecture specific externs, selectors take the first of them.
const selectorIDPrefix = 0x81

// LoadP4Info reads a P4Info file in text or binary protobuf format.
func LoadP4Info(path string) (*p4configv1.P4Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info := &p4configv1.P4Info{}
	if err := prototext.Unmarshal(data, info); err == nil {
		return info, nil
	}
	if err := proto.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("%s is neither text nor binary P4Info: %w", path, err)
	}
	return info, nil
}

// FromP4Info builds the interface descriptor of one pipeline profile. Every
// object name is qualified with the profile name.
func FromP4Info(profile string, p4info *p4configv1.P4Info) (*Info, error) {
	c := &p4infoConverter{
		profile: profile,
		p4info:  p4info,
		actions: map[uint32]*p4configv1.Action{},
		tables:  map[uint32]*p4configv1.Table{},
		info:    &Info{},
	}
	for _, a := range p4info.GetActions() {
		c.actions[a.GetPreamble().GetId()] = a
	}
	for _, t := range p4info.GetTables() {
		c.tables[t.GetPreamble().GetId()] = t
	}
	if err := c.convert(); err != nil {
		return nil, err
	}
	return c.info, nil
}

type p4infoConverter struct {
	profile string
	p4info  *p4configv1.P4Info
	actions map[uint32]*p4configv1.Action
	tables  map[uint32]*p4configv1.Table
	info    *Info
}

func (c *p4infoConverter) name(n string) string {
	return Qualify(c.profile, n)
}

func (c *p4infoConverter) convert() error {
	profiles := map[uint32]*p4configv1.ActionProfile{}
	for _, ap := range c.p4info.GetActionProfiles() {
		profiles[ap.GetPreamble().GetId()] = ap
	}
	directCounters := map[uint32]*p4configv1.DirectCounter{}
	for _, dc := range c.p4info.GetDirectCounters() {
		directCounters[dc.GetDirectTableId()] = dc
	}
	directMeters := map[uint32]*p4configv1.DirectMeter{}
	for _, dm := range c.p4info.GetDirectMeters() {
		directMeters[dm.GetDirectTableId()] = dm
	}

	for _, t := range c.p4info.GetTables() {
		tbl, err := c.matchTable(t, profiles)
		if err != nil {
			return err
		}
		if dc, ok := directCounters[t.GetPreamble().GetId()]; ok {
			tbl.CommonFields = append(tbl.CommonFields, counterSpecFields(dc.GetSpec())...)
		}
		if dm, ok := directMeters[t.GetPreamble().GetId()]; ok {
			tbl.CommonFields = append(tbl.CommonFields, meterSpecFields(dm.GetSpec())...)
		}
		c.info.Tables = append(c.info.Tables, tbl)
	}
	for _, ap := range c.p4info.GetActionProfiles() {
		c.info.Tables = append(c.info.Tables, c.actionProfile(ap))
		if ap.GetWithSelector() {
			c.info.Tables = append(c.info.Tables, c.selector(ap))
		}
	}
	for _, ctr := range c.p4info.GetCounters() {
		c.info.Tables = append(c.info.Tables, &Table{
			ID:           ctr.GetPreamble().GetId(),
			Name:         c.name(ctr.GetPreamble().GetName()),
			Type:         Counter,
			Size:         ctr.GetSize(),
			KeyFields:    []*KeyField{indexKey(CounterIndex)},
			CommonFields: counterSpecFields(ctr.GetSpec()),
		})
	}
	for _, m := range c.p4info.GetMeters() {
		c.info.Tables = append(c.info.Tables, &Table{
			ID:           m.GetPreamble().GetId(),
			Name:         c.name(m.GetPreamble().GetName()),
			Type:         Meter,
			Size:         m.GetSize(),
			KeyFields:    []*KeyField{indexKey(MeterIndex)},
			CommonFields: meterSpecFields(m.GetSpec()),
		})
	}
	for _, r := range c.p4info.GetRegisters() {
		width := int(r.GetTypeSpec().GetBitstring().GetBit().GetBitwidth())
		if width == 0 {
			log.WithField("register", r.GetPreamble().GetName()).Warn("register without bit<W> type spec, assuming 32 bits")
			width = 32
		}
		name := c.name(r.GetPreamble().GetName())
		c.info.Tables = append(c.info.Tables, &Table{
			ID:        r.GetPreamble().GetId(),
			Name:      name,
			Type:      Register,
			Size:      int64(r.GetSize()),
			KeyFields: []*KeyField{indexKey(RegisterIndex)},
			CommonFields: []*DataField{
				{ID: 1, Name: r.GetPreamble().GetName() + ".f1", Width: width},
			},
		})
	}
	for _, vs := range c.p4info.GetValueSets() {
		tbl := &Table{
			ID:   vs.GetPreamble().GetId(),
			Name: c.name(vs.GetPreamble().GetName()),
			Type: ParserValueSet,
			Size: int64(vs.GetSize()),
		}
		for _, mf := range vs.GetMatch() {
			tbl.KeyFields = append(tbl.KeyFields, keyField(mf))
		}
		c.info.Tables = append(c.info.Tables, tbl)
	}
	for _, d := range c.p4info.GetDigests() {
		learn, err := c.learn(d)
		if err != nil {
			return err
		}
		c.info.Learns = append(c.info.Learns, learn)
	}
	return nil
}

func (c *p4infoConverter) matchTable(t *p4configv1.Table, profiles map[uint32]*p4configv1.ActionProfile) (*Table, error) {
	tbl := &Table{
		ID:              t.GetPreamble().GetId(),
		Name:            c.name(t.GetPreamble().GetName()),
		Type:            MatchActionDirect,
		Size:            t.GetSize(),
		HasConstEntries: t.GetIsConstTable(),
	}
	needsPriority := false
	for _, mf := range t.GetMatchFields() {
		kf := keyField(mf)
		if kf.MatchType == MatchTernary || kf.MatchType == MatchRange || kf.MatchType == MatchOptional {
			needsPriority = true
		}
		tbl.KeyFields = append(tbl.KeyFields, kf)
	}
	if needsPriority {
		tbl.KeyFields = append(tbl.KeyFields, &KeyField{ID: MatchPriorityID, Name: MatchPriority, Width: 32, MatchType: MatchExact})
	}

	if implID := t.GetImplementationId(); implID != 0 {
		ap, ok := profiles[implID]
		if !ok {
			return nil, fmt.Errorf("table %s: implementation %#x is not an action profile", tbl.Name, implID)
		}
		tbl.Type = MatchActionIndirect
		tbl.CommonFields = append(tbl.CommonFields, &DataField{ID: ActionMemberIDID, Name: ActionMemberID, Width: 32})
		if ap.GetWithSelector() {
			tbl.Type = MatchActionIndirectSelector
			tbl.CommonFields = append(tbl.CommonFields, &DataField{ID: SelectorGroupIDID, Name: SelectorGroupID, Width: 32})
		}
	} else {
		for _, ref := range t.GetActionRefs() {
			a, err := c.action(ref.GetId())
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", tbl.Name, err)
			}
			tbl.Actions = append(tbl.Actions, a)
		}
	}
	if t.GetIdleTimeoutBehavior() == p4configv1.Table_NOTIFY_CONTROL {
		tbl.CommonFields = append(tbl.CommonFields, &DataField{ID: EntryTTLID, Name: EntryTTL, Width: 32})
	}
	return tbl, nil
}

func (c *p4infoConverter) action(id uint32) (*Action, error) {
	a, ok := c.actions[id]
	if !ok {
		return nil, fmt.Errorf("unknown action %#x", id)
	}
	action := &Action{
		ID:   id,
		Name: c.name(a.GetPreamble().GetName()),
	}
	for _, p := range a.GetParams() {
		action.Fields = append(action.Fields, &DataField{
			ID:    p.GetId(),
			Name:  p.GetName(),
			Width: int(p.GetBitwidth()),
		})
	}
	return action, nil
}

func (c *p4infoConverter) actionProfile(ap *p4configv1.ActionProfile) *Table {
	tbl := &Table{
		ID:        ap.GetPreamble().GetId(),
		Name:      c.name(ap.GetPreamble().GetName()),
		Type:      ActionProfile,
		Size:      ap.GetSize(),
		KeyFields: []*KeyField{{ID: 1, Name: ActionMemberID, Width: 32, MatchType: MatchExact}},
	}
	seen := map[uint32]bool{}
	for _, tid := range ap.GetTableIds() {
		for _, ref := range c.tables[tid].GetActionRefs() {
			if seen[ref.GetId()] {
				continue
			}
			seen[ref.GetId()] = true
			a, err := c.action(ref.GetId())
			if err != nil {
				log.WithField("action_profile", tbl.Name).WithError(err).Warn("skipping action")
				continue
			}
			tbl.Actions = append(tbl.Actions, a)
		}
	}
	return tbl
}

func (c *p4infoConverter) selector(ap *p4configv1.ActionProfile) *Table {
	id := ap.GetPreamble().GetId()&0x00ffffff | selectorIDPrefix<<24
	return &Table{
		ID:        id,
		Name:      c.name(ap.GetPreamble().GetName() + "_sel"),
		Type:      Selector,
		Size:      ap.GetSize(),
		KeyFields: []*KeyField{{ID: 1, Name: SelectorGroupID, Width: 32, MatchType: MatchExact}},
		CommonFields: []*DataField{
			{ID: ActionMemberIDID, Name: ActionMemberID, Width: 32},
			{ID: ActionMemberStatusID, Name: ActionMemberStatus, Width: 1},
			{ID: MaxGroupSizeID, Name: MaxGroupSize, Width: 32},
		},
	}
}

func (c *p4infoConverter) learn(d *p4configv1.Digest) (*Learn, error) {
	learn := &Learn{
		ID:   d.GetPreamble().GetId(),
		Name: c.name(d.GetPreamble().GetName()),
	}
	spec := d.GetTypeSpec()
	if st := spec.GetStruct(); st != nil {
		def, ok := c.p4info.GetTypeInfo().GetStructs()[st.GetName()]
		if !ok {
			return nil, fmt.Errorf("digest %s: unknown struct %s", learn.Name, st.GetName())
		}
		for i, m := range def.GetMembers() {
			learn.Fields = append(learn.Fields, &DataField{
				ID:    uint32(i + 1),
				Name:  m.GetName(),
				Width: bitstringWidth(m.GetTypeSpec()),
			})
		}
		return learn, nil
	}
	learn.Fields = []*DataField{{ID: 1, Name: "value", Width: bitstringWidth(spec)}}
	return learn, nil
}

func bitstringWidth(spec *p4configv1.P4DataTypeSpec) int {
	bs := spec.GetBitstring()
	switch {
	case bs.GetBit() != nil:
		return int(bs.GetBit().GetBitwidth())
	case bs.GetInt() != nil:
		return int(bs.GetInt().GetBitwidth())
	case bs.GetVarbit() != nil:
		return int(bs.GetVarbit().GetMaxBitwidth())
	}
	if spec.GetBool() != nil {
		return 1
	}
	return 0
}

func keyField(mf *p4configv1.MatchField) *KeyField {
	kf := &KeyField{
		ID:        mf.GetId(),
		Name:      mf.GetName(),
		Width:     int(mf.GetBitwidth()),
		MatchType: MatchExact,
	}
	switch mf.GetMatchType() {
	case p4configv1.MatchField_TERNARY:
		kf.MatchType = MatchTernary
	case p4configv1.MatchField_LPM:
		kf.MatchType = MatchLPM
	case p4configv1.MatchField_RANGE:
		kf.MatchType = MatchRange
	case p4configv1.MatchField_OPTIONAL:
		kf.MatchType = MatchOptional
	}
	return kf
}

func indexKey(name string) *KeyField {
	return &KeyField{ID: ResourceIndexID, Name: name, Width: 32, MatchType: MatchExact}
}

func counterSpecFields(spec *p4configv1.CounterSpec) []*DataField {
	var fields []*DataField
	unit := spec.GetUnit()
	if unit == p4configv1.CounterSpec_BYTES || unit == p4configv1.CounterSpec_BOTH {
		fields = append(fields, &DataField{ID: CounterSpecBytesID, Name: CounterSpecBytes, Width: 64})
	}
	if unit == p4configv1.CounterSpec_PACKETS || unit == p4configv1.CounterSpec_BOTH {
		fields = append(fields, &DataField{ID: CounterSpecPacketsID, Name: CounterSpecPackets, Width: 64})
	}
	return fields
}

func meterSpecFields(spec *p4configv1.MeterSpec) []*DataField {
	names := [4]string{MeterSpecCirKbps, MeterSpecPirKbps, MeterSpecCbsKbits, MeterSpecPbsKbits}
	if spec.GetUnit() == p4configv1.MeterSpec_PACKETS {
		names = [4]string{MeterSpecCirPps, MeterSpecPirPps, MeterSpecCbsPkts, MeterSpecPbsPkts}
	}
	ids := [4]uint32{MeterSpecCirID, MeterSpecPirID, MeterSpecCbsID, MeterSpecPbsID}
	fields := make([]*DataField, 0, len(names))
	for i, n := range names {
		fields = append(fields, &DataField{ID: ids[i], Name: n, Width: 64})
	}
	return fields
}
