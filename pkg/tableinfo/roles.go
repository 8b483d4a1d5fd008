// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"fmt"
	"strings"

	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// Role is a set of hardware roles of a data field.
type Role uint64

const (
	RoleActionParam Role = 1 << iota
	// RoleActionParamOptimizedOut marks an action parameter the compiler
	// dropped from the packed action data.
	RoleActionParamOptimizedOut
	RoleCounterIndex
	RoleMeterIndex
	RoleRegisterIndex
	RoleLpfIndex
	RoleWredIndex
	RoleCounterSpecBytes
	RoleCounterSpecPackets
	RoleMeterSpecCir
	RoleMeterSpecPir
	RoleMeterSpecCbs
	RoleMeterSpecPbs
	RoleLpfSpec
	RoleWredSpec
	RoleRegister
	RoleRegisterLo
	RoleRegisterHi
	RoleTTL
	RoleHitState
	RoleActionMemberID
	RoleSelectorGroupID
	RoleActionMemberStatus
	RoleMaxGroupSize
	RoleMulticast
	RoleSnapshot
	RoleDebugCounter
	// RoleFixed is any other field of a device built-in table.
	RoleFixed
)

const (
	indexRoles    = RoleCounterIndex | RoleMeterIndex | RoleRegisterIndex | RoleLpfIndex | RoleWredIndex
	registerRoles = RoleRegister | RoleRegisterLo | RoleRegisterHi
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleActionParam, "action_param"},
	{RoleActionParamOptimizedOut, "action_param_optimized_out"},
	{RoleCounterIndex, "counter_index"},
	{RoleMeterIndex, "meter_index"},
	{RoleRegisterIndex, "register_index"},
	{RoleLpfIndex, "lpf_index"},
	{RoleWredIndex, "wred_index"},
	{RoleCounterSpecBytes, "counter_spec_bytes"},
	{RoleCounterSpecPackets, "counter_spec_pkts"},
	{RoleMeterSpecCir, "meter_spec_cir"},
	{RoleMeterSpecPir, "meter_spec_pir"},
	{RoleMeterSpecCbs, "meter_spec_cbs"},
	{RoleMeterSpecPbs, "meter_spec_pbs"},
	{RoleLpfSpec, "lpf_spec"},
	{RoleWredSpec, "wred_spec"},
	{RoleRegister, "register"},
	{RoleRegisterLo, "register_lo"},
	{RoleRegisterHi, "register_hi"},
	{RoleTTL, "ttl"},
	{RoleHitState, "hit_state"},
	{RoleActionMemberID, "action_member_id"},
	{RoleSelectorGroupID, "selector_group_id"},
	{RoleActionMemberStatus, "action_member_status"},
	{RoleMaxGroupSize, "max_group_size"},
	{RoleMulticast, "multicast"},
	{RoleSnapshot, "snapshot"},
	{RoleDebugCounter, "debug_counter"},
	{RoleFixed, "fixed"},
}

// Has reports whether every role of o is set in r.
func (r Role) Has(o Role) bool {
	return o != 0 && r&o == o
}

// Any reports whether r shares a role with o.
func (r Role) Any(o Role) bool {
	return r&o != 0
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var names []string
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			names = append(names, rn.name)
		}
	}
	return strings.Join(names, "|")
}

// MarshalText renders the role set for JSON and YAML dumps.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the output of MarshalText.
func (r *Role) UnmarshalText(text []byte) error {
	*r = 0
	s := string(text)
	if s == "none" || s == "" {
		return nil
	}
	for _, name := range strings.Split(s, "|") {
		found := false
		for _, rn := range roleNames {
			if rn.name == name {
				*r |= rn.role
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown data field role %q", name)
		}
	}
	return nil
}

var builtinRoles = map[string]Role{
	tdi.CounterSpecBytes:   RoleCounterSpecBytes,
	tdi.CounterSpecPackets: RoleCounterSpecPackets,

	tdi.MeterSpecCirKbps:  RoleMeterSpecCir,
	tdi.MeterSpecCirPps:   RoleMeterSpecCir,
	tdi.MeterSpecPirKbps:  RoleMeterSpecPir,
	tdi.MeterSpecPirPps:   RoleMeterSpecPir,
	tdi.MeterSpecCbsKbits: RoleMeterSpecCbs,
	tdi.MeterSpecCbsPkts:  RoleMeterSpecCbs,
	tdi.MeterSpecPbsKbits: RoleMeterSpecPbs,
	tdi.MeterSpecPbsPkts:  RoleMeterSpecPbs,

	tdi.LpfSpecType:                  RoleLpfSpec,
	tdi.LpfSpecGainTimeConstant:      RoleLpfSpec,
	tdi.LpfSpecDecayTimeConstant:     RoleLpfSpec,
	tdi.LpfSpecOutputScaleDownFactor: RoleLpfSpec,

	tdi.WredSpecTimeConstant:   RoleWredSpec,
	tdi.WredSpecMinThreshold:   RoleWredSpec,
	tdi.WredSpecMaxThreshold:   RoleWredSpec,
	tdi.WredSpecMaxProbability: RoleWredSpec,

	tdi.EntryTTL:           RoleTTL,
	tdi.EntryHitState:      RoleHitState,
	tdi.ActionMemberID:     RoleActionMemberID,
	tdi.SelectorGroupID:    RoleSelectorGroupID,
	tdi.ActionMemberStatus: RoleActionMemberStatus,
	tdi.MaxGroupSize:       RoleMaxGroupSize,

	tdi.MulticastNodeID:  RoleMulticast,
	tdi.MulticastNodeXID: RoleMulticast,
	tdi.MulticastRID:     RoleMulticast,
	tdi.MulticastLagID:   RoleMulticast,
	tdi.MulticastDevPort: RoleMulticast,

	tdi.SnapshotEnable:   RoleSnapshot,
	tdi.SnapshotTrigger:  RoleSnapshot,
	tdi.SnapshotLiveness: RoleSnapshot,

	tdi.DebugCounterValue: RoleDebugCounter,
}

// indexRole maps the kind of a referenced resource table to the role of the
// action parameter indexing it.
func indexRole(t tdi.TableType) Role {
	switch t {
	case tdi.Counter:
		return RoleCounterIndex
	case tdi.Meter:
		return RoleMeterIndex
	case tdi.Register:
		return RoleRegisterIndex
	case tdi.Lpf:
		return RoleLpfIndex
	case tdi.Wred:
		return RoleWredIndex
	}
	return 0
}

// placementIndexRole is indexRole for resources known only to the placement
// descriptor.
func placementIndexRole(tableType string) Role {
	switch tableType {
	case "statistics":
		return RoleCounterIndex
	case "meter":
		return RoleMeterIndex
	case "stateful":
		return RoleRegisterIndex
	case "lpf":
		return RoleLpfIndex
	case "wred":
		return RoleWredIndex
	}
	return 0
}
