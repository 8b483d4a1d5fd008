// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package tdi holds the interface descriptor of a pipeline program: the
// tables, keys, actions and data fields exposed by the runtime API together
// with their stable logical ids.
package tdi

import (
	"fmt"
	"strings"
)

// TableType is the interface-side classification of a table.
type TableType string

const (
	MatchActionDirect           TableType = "MatchAction_Direct"
	MatchActionIndirect         TableType = "MatchAction_Indirect"
	MatchActionIndirectSelector TableType = "MatchAction_Indirect_Selector"
	ActionProfile               TableType = "Action"
	Selector                    TableType = "Selector"
	Counter                     TableType = "Counter"
	Meter                       TableType = "Meter"
	Register                    TableType = "Register"
	Lpf                         TableType = "Lpf"
	Wred                        TableType = "Wred"
	ParserValueSet              TableType = "ParserValueSet"
	PortMetadata                TableType = "PortMetadata"
	DynHashConfigure            TableType = "DynHashConfigure"
	DynHashAlgorithm            TableType = "DynHashAlgorithm"

	// Fixed tables are built into the device and have no placement entry.
	Port              TableType = "Port"
	Mirror            TableType = "Mirror"
	PreMulticastGroup TableType = "PreMgid"
	PreNode           TableType = "PreNode"
	Snapshot          TableType = "Snapshot"
	DebugCounter      TableType = "DebugCounter"
)

// IsMatch reports whether the table is a match-action table.
func (t TableType) IsMatch() bool {
	switch t {
	case MatchActionDirect, MatchActionIndirect, MatchActionIndirectSelector:
		return true
	}
	return false
}

// IsFixed reports whether the table is a fixed (device built-in) table.
func (t TableType) IsFixed() bool {
	switch t {
	case Port, Mirror, PreMulticastGroup, PreNode, Snapshot, DebugCounter:
		return true
	}
	return false
}

// IsResource reports whether the table is an indexed resource table.
func (t TableType) IsResource() bool {
	switch t {
	case Counter, Meter, Register, Lpf, Wred:
		return true
	}
	return false
}

// MatchType of a key field.
type MatchType string

const (
	MatchExact    MatchType = "Exact"
	MatchTernary  MatchType = "Ternary"
	MatchLPM      MatchType = "LPM"
	MatchRange    MatchType = "Range"
	MatchOptional MatchType = "Optional"
)

// KeyField is one field of a table key.
type KeyField struct {
	ID        uint32
	Name      string
	Width     int
	MatchType MatchType
}

// DataField is one data field, either common to the table or owned by an
// action.
type DataField struct {
	ID    uint32
	Name  string
	Width int
}

// Action is one action of a table.
type Action struct {
	ID     uint32
	Name   string
	Fields []*DataField
}

// Table is the interface-side view of a table.
type Table struct {
	ID              uint32
	Name            string
	Type            TableType
	Size            int64
	KeyFields       []*KeyField
	Actions         []*Action
	CommonFields    []*DataField
	HasConstEntries bool
}

// Action looks up an action by name.
func (t *Table) Action(name string) *Action {
	for _, a := range t.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Learn is a notification schema.
type Learn struct {
	ID     uint32
	Name   string
	Fields []*DataField
}

// Info is the interface descriptor of one program across all its pipeline
// profiles.
type Info struct {
	Tables []*Table
	Learns []*Learn
}

// TableByName looks up a table by its profile-qualified name.
func (i *Info) TableByName(name string) *Table {
	for _, t := range i.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableByID looks up a table by logical id.
func (i *Info) TableByID(id uint32) *Table {
	for _, t := range i.Tables {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Merge appends the objects of other to i. Ids and names must stay unique.
func (i *Info) Merge(other *Info) error {
	ids := map[uint32]string{}
	names := map[string]bool{}
	for _, t := range i.Tables {
		ids[t.ID] = t.Name
		names[t.Name] = true
	}
	for _, l := range i.Learns {
		ids[l.ID] = l.Name
		names[l.Name] = true
	}
	for _, t := range other.Tables {
		if n, ok := ids[t.ID]; ok {
			return fmt.Errorf("table %s: id %#x already used by %s", t.Name, t.ID, n)
		}
		if names[t.Name] {
			return fmt.Errorf("table %s: duplicate name", t.Name)
		}
		ids[t.ID] = t.Name
		names[t.Name] = true
		i.Tables = append(i.Tables, t)
	}
	for _, l := range other.Learns {
		if n, ok := ids[l.ID]; ok {
			return fmt.Errorf("learn %s: id %#x already used by %s", l.Name, l.ID, n)
		}
		ids[l.ID] = l.Name
		names[l.Name] = true
		i.Learns = append(i.Learns, l)
	}
	return nil
}

// Qualify prefixes name with the pipeline-profile name.
func Qualify(profile, name string) string {
	if profile == "" || strings.HasPrefix(name, profile+".") {
		return name
	}
	return profile + "." + name
}
