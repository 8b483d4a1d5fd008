// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package tableinfo reconciles the interface descriptor of a program with the
// placement descriptors of its pipeline profiles and publishes the resulting
// table metadata: handles, key and data layouts, roles of data fields and the
// references between tables.
package tableinfo

import (
	"strings"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// NotPacked is the offset of a key field that has no bytes in the key.
const NotPacked = -1

// RefKind names a list of table references in the placement descriptor.
type RefKind string

const (
	RefActionData RefKind = ctxjson.ActionDataTableRefs
	RefSelection  RefKind = ctxjson.SelectionTableRefs
	RefMeter      RefKind = ctxjson.MeterTableRefs
	RefStatistics RefKind = ctxjson.StatisticsTableRefs
	RefStateful   RefKind = ctxjson.StatefulTableRefs
)

// ResourceRef is a reference from one table to another.
type ResourceRef struct {
	Name string `json:"name" yaml:"name"`
	// ID is 0 for direct references and for targets that are not part of the
	// interface descriptor.
	ID       uint32 `json:"id,omitempty" yaml:"id,omitempty"`
	Handle   uint32 `json:"handle" yaml:"handle"`
	Indirect bool   `json:"indirect" yaml:"indirect"`
}

// KeyField is the placement of one key field in the key byte array.
type KeyField struct {
	ID        uint32        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	MatchType tdi.MatchType `json:"match_type" yaml:"match_type"`
	Width     int           `json:"width" yaml:"width"`
	// Offset is NotPacked for fields the compiler leaves out of the key.
	Offset int `json:"offset" yaml:"offset"`
	// StartBit is the first bit of the field inside its parent field.
	StartBit int `json:"start_bit" yaml:"start_bit"`
	// ParentBytes is the byte size of the wire field the key field is cut
	// from. It equals the field's own byte size unless the field is a slice.
	ParentBytes      int  `json:"parent_bytes" yaml:"parent_bytes"`
	IsSlice          bool `json:"is_slice" yaml:"is_slice"`
	IsPartitionIndex bool `json:"is_partition_index" yaml:"is_partition_index"`
	IsPriority       bool `json:"is_priority" yaml:"is_priority"`
}

// DataField is the placement of one data field in a data blob.
type DataField struct {
	ID     uint32 `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Offset int    `json:"offset" yaml:"offset"`
	Roles  Role   `json:"roles" yaml:"roles"`
}

// Action is one action of a table with the layout of its data.
type Action struct {
	ID        uint32                     `json:"id" yaml:"id"`
	Name      string                     `json:"name" yaml:"name"`
	Handle    uint32                     `json:"handle" yaml:"handle"`
	DataBytes int                        `json:"data_bytes" yaml:"data_bytes"`
	DataBits  int                        `json:"data_bits" yaml:"data_bits"`
	Fields    []*DataField               `json:"fields,omitempty" yaml:"fields,omitempty"`
	Direct    capability.DirectResources `json:"direct" yaml:"direct"`

	rawHandle uint32
}

// Field looks up an action field by name.
func (a *Action) Field(name string) *DataField {
	return fieldByName(a.Fields, name)
}

// Table is the resolved metadata of one logical table. Tables are not
// modified once the registry holding them is published.
type Table struct {
	ID      uint32        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Handle  uint32        `json:"handle" yaml:"handle"`
	Type    tdi.TableType `json:"type" yaml:"type"`
	Profile string        `json:"profile,omitempty" yaml:"profile,omitempty"`
	Size    int64         `json:"size" yaml:"size"`

	Refs map[RefKind][]ResourceRef `json:"refs,omitempty" yaml:"refs,omitempty"`

	KeyBytes int         `json:"key_bytes" yaml:"key_bytes"`
	KeyBits  int         `json:"key_bits" yaml:"key_bits"`
	Key      []*KeyField `json:"key,omitempty" yaml:"key,omitempty"`

	CommonBytes  int          `json:"common_bytes" yaml:"common_bytes"`
	CommonBits   int          `json:"common_bits" yaml:"common_bits"`
	Common       []*DataField `json:"common,omitempty" yaml:"common,omitempty"`
	Actions      []*Action    `json:"actions,omitempty" yaml:"actions,omitempty"`
	MaxDataBytes int          `json:"max_data_bytes" yaml:"max_data_bytes"`
	MaxDataBits  int          `json:"max_data_bits" yaml:"max_data_bits"`

	HasConstEntries bool `json:"has_const_entries" yaml:"has_const_entries"`
	IsTernary       bool `json:"is_ternary" yaml:"is_ternary"`
	HashBitWidth    int  `json:"hash_bit_width,omitempty" yaml:"hash_bit_width,omitempty"`
	// ValuesPerEntry is the number of register values a read returns, one
	// per pipeline.
	ValuesPerEntry int `json:"values_per_entry,omitempty" yaml:"values_per_entry,omitempty"`
}

// KeyField looks up a key field by name.
func (t *Table) KeyField(name string) *KeyField {
	for _, k := range t.Key {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// CommonField looks up a common data field by name.
func (t *Table) CommonField(name string) *DataField {
	return fieldByName(t.Common, name)
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

// ActionByID looks up an action by logical id.
func (t *Table) ActionByID(id uint32) *Action {
	for _, a := range t.Actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Ref returns the first reference of the given kind.
func (t *Table) Ref(kind RefKind) (ResourceRef, bool) {
	refs := t.Refs[kind]
	if len(refs) == 0 {
		return ResourceRef{}, false
	}
	return refs[0], true
}

func fieldByName(fields []*DataField, name string) *DataField {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Learn is a resolved notification schema.
type Learn struct {
	ID      uint32       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Handle  uint32       `json:"handle" yaml:"handle"`
	Profile string       `json:"profile,omitempty" yaml:"profile,omitempty"`
	Fields  []*DataField `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Resolved is false when no profile carries the schema. Such a learn
	// cannot be used until the placement descriptors are fixed.
	Resolved bool `json:"resolved" yaml:"resolved"`
}

// unqualified strips the profile prefix from a qualified name.
func unqualified(profile, name string) string {
	return strings.TrimPrefix(name, profile+".")
}
