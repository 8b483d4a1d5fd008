// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tdi

import "strings"

// BuiltinPrefix starts the name of every field the device defines on its own.
const BuiltinPrefix = "$"

// Key fields that are not part of the P4 program.
const (
	MatchPriority   = "$MATCH_PRIORITY"
	ActionMemberID  = "$ACTION_MEMBER_ID"
	SelectorGroupID = "$SELECTOR_GROUP_ID"
	CounterIndex    = "$COUNTER_INDEX"
	MeterIndex      = "$METER_INDEX"
	RegisterIndex   = "$REGISTER_INDEX"
	LpfIndex        = "$LPF_INDEX"
	WredIndex       = "$WRED_INDEX"
)

// Data fields the device defines on its own.
const (
	CounterSpecBytes   = "$COUNTER_SPEC_BYTES"
	CounterSpecPackets = "$COUNTER_SPEC_PKTS"

	MeterSpecCirKbps  = "$METER_SPEC_CIR_KBPS"
	MeterSpecPirKbps  = "$METER_SPEC_PIR_KBPS"
	MeterSpecCbsKbits = "$METER_SPEC_CBS_KBITS"
	MeterSpecPbsKbits = "$METER_SPEC_PBS_KBITS"
	MeterSpecCirPps   = "$METER_SPEC_CIR_PPS"
	MeterSpecPirPps   = "$METER_SPEC_PIR_PPS"
	MeterSpecCbsPkts  = "$METER_SPEC_CBS_PKTS"
	MeterSpecPbsPkts  = "$METER_SPEC_PBS_PKTS"

	LpfSpecType                  = "$LPF_SPEC_TYPE"
	LpfSpecGainTimeConstant      = "$LPF_SPEC_GAIN_TIME_CONSTANT_NS"
	LpfSpecDecayTimeConstant     = "$LPF_SPEC_DECAY_TIME_CONSTANT_NS"
	LpfSpecOutputScaleDownFactor = "$LPF_SPEC_OUTPUT_SCALE_DOWN_FACTOR"

	WredSpecTimeConstant   = "$WRED_SPEC_TIME_CONSTANT_NS"
	WredSpecMinThreshold   = "$WRED_SPEC_MIN_THRESH_CELLS"
	WredSpecMaxThreshold   = "$WRED_SPEC_MAX_THRESH_CELLS"
	WredSpecMaxProbability = "$WRED_SPEC_MAX_PROBABILITY"

	EntryTTL           = "$ENTRY_TTL"
	EntryHitState      = "$ENTRY_HIT_STATE"
	ActionMemberStatus = "$ACTION_MEMBER_STATUS"
	MaxGroupSize       = "$MAX_GROUP_SIZE"

	MulticastNodeID   = "$MULTICAST_NODE_ID"
	MulticastNodeXID  = "$MULTICAST_NODE_L1_XID"
	MulticastRID      = "$MULTICAST_RID"
	MulticastLagID    = "$MULTICAST_LAG_ID"
	MulticastDevPort  = "$DEV_PORT"
	SnapshotEnable    = "$SNAPSHOT_ENABLE"
	SnapshotTrigger   = "$SNAPSHOT_TRIGGER_STATE"
	SnapshotLiveness  = "$SNAPSHOT_LIVENESS"
	DebugCounterValue = "$DEBUG_COUNTER_VALUE"
)

// Ids of the device defined fields. Program fields are numbered from 1 so
// these never collide with them.
const (
	MatchPriorityID uint32 = 65537 + iota
	ActionMemberIDID
	SelectorGroupIDID
	ResourceIndexID
	CounterSpecBytesID
	CounterSpecPacketsID
	MeterSpecCirID
	MeterSpecPirID
	MeterSpecCbsID
	MeterSpecPbsID
	EntryTTLID
	ActionMemberStatusID
	MaxGroupSizeID
)

// IsBuiltin reports whether name is a device defined field name.
func IsBuiltin(name string) bool {
	return strings.HasPrefix(name, BuiltinPrefix)
}
