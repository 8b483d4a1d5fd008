// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package ctxjson loads the compiler placement descriptor (context.json) of
// one pipeline profile and gives random access to its tables, dynamic hash
// calculations, learn quanta and parser value sets.
package ctxjson

import (
	"bytes"
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"

	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

const component = "ctxjson"

// Reference list keys of a placement table.
const (
	ActionDataTableRefs = "action_data_table_refs"
	SelectionTableRefs  = "selection_table_refs"
	MeterTableRefs      = "meter_table_refs"
	StatisticsTableRefs = "statistics_table_refs"
	StatefulTableRefs   = "stateful_table_refs"
	ConditionTableRefs  = "condition_table_refs"
)

// RefKeys lists the resource reference keys in the order they are resolved.
var RefKeys = []string{
	ActionDataTableRefs,
	SelectionTableRefs,
	MeterTableRefs,
	StatisticsTableRefs,
	StatefulTableRefs,
}

var qualifiedRefKeys = []string{
	ActionDataTableRefs,
	SelectionTableRefs,
	MeterTableRefs,
	StatisticsTableRefs,
	StatefulTableRefs,
	ConditionTableRefs,
}

// Document is the parsed placement descriptor of one profile. Every object
// name in it has been qualified with the profile name.
type Document struct {
	Profile string
	Root    Node

	tables   []Node
	byName   map[string]Node
	byHandle map[uint32]Node
}

// Load reads and parses the placement descriptor at path.
func Load(profile, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tdierr.Wrap(tdierr.ErrIO, component, "", err)
	}
	return Parse(profile, data)
}

// Parse decodes a placement descriptor and qualifies its names.
func Parse(profile string, data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, tdierr.Wrap(tdierr.ErrParse, component, "", err)
	}
	if _, ok := root.(map[string]interface{}); !ok {
		return nil, tdierr.Newf(tdierr.ErrParse, component, "", "profile %s: top level is not an object", profile)
	}

	d := &Document{
		Profile:  profile,
		Root:     NewNode(root),
		byName:   map[string]Node{},
		byHandle: map[uint32]Node{},
	}
	tables := d.Root.Get("tables")
	if tables.Exists() {
		if _, ok := tables.Value().([]interface{}); !ok {
			return nil, tdierr.Newf(tdierr.ErrParse, component, "", "profile %s: tables is not an array", profile)
		}
	}
	for _, t := range tables.Array() {
		if t.Get("name").Str() == "" {
			return nil, tdierr.Newf(tdierr.ErrParse, component, "", "profile %s: table without name", profile)
		}
		d.qualifyTable(t)
		name := t.Get("name").Str()
		if _, dup := d.byName[name]; dup {
			log.WithFields(log.Fields{"component": component, "table": name}).Warn("duplicate placement table, keeping the first")
			continue
		}
		d.tables = append(d.tables, t)
		d.byName[name] = t
		d.byHandle[t.Get("handle").Uint32()] = t
	}
	for _, c := range d.DynHashCalculations() {
		d.qualify(c, "name")
	}
	for _, l := range d.LearnQuanta() {
		d.qualify(l, "name")
	}
	for _, s := range d.parserStates() {
		if s.Has("pvs_name") {
			d.qualify(s, "pvs_name")
		}
	}
	return d, nil
}

func (d *Document) qualify(n Node, key string) {
	if s := n.Get(key).Str(); s != "" {
		n.Set(key, tdi.Qualify(d.Profile, s))
	}
}

func (d *Document) qualifyTable(t Node) {
	d.qualify(t, "name")
	for _, key := range qualifiedRefKeys {
		for _, ref := range t.Get(key).Array() {
			d.qualify(ref, "name")
		}
	}
	for _, a := range t.Get("actions").Array() {
		d.qualify(a, "name")
		for _, r := range a.Get("indirect_resources").Array() {
			d.qualify(r, "resource_name")
		}
		for _, r := range a.Get("direct_resources").Array() {
			d.qualify(r, "resource_name")
		}
	}
	// ALPM tables carry their ATCAM child under match_attributes.
	if atcam := t.Path("match_attributes", "atcam_table"); atcam.Exists() {
		d.qualifyTable(atcam)
	}
}

// Tables returns the placement tables in document order.
func (d *Document) Tables() []Node {
	return d.tables
}

// TableByName looks up a placement table by its qualified name.
func (d *Document) TableByName(name string) (Node, bool) {
	t, ok := d.byName[name]
	return t, ok
}

// TableByHandle looks up a placement table by its raw, unmasked handle.
func (d *Document) TableByHandle(handle uint32) (Node, bool) {
	t, ok := d.byHandle[handle]
	return t, ok
}

// DynHashCalculations returns the dynamic hash calculation blobs.
func (d *Document) DynHashCalculations() []Node {
	return d.Root.Get("dynamic_hash_calculations").Array()
}

// LearnQuanta returns the learn (digest) schemas.
func (d *Document) LearnQuanta() []Node {
	return d.Root.Get("learn_quanta").Array()
}

// LearnByName looks up a learn quantum by qualified name.
func (d *Document) LearnByName(name string) (Node, bool) {
	for _, l := range d.LearnQuanta() {
		if l.Get("name").Str() == name {
			return l, true
		}
	}
	return Node{}, false
}

func (d *Document) parserStates() []Node {
	var states []Node
	for _, p := range d.Root.Path("parser", "parsers").Array() {
		states = append(states, p.Get("states").Array()...)
	}
	return states
}

// ValueSets returns one parser state per distinct parser value set name.
func (d *Document) ValueSets() []Node {
	seen := map[string]bool{}
	var sets []Node
	for _, s := range d.parserStates() {
		name := s.Get("pvs_name").Str()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		sets = append(sets, s)
	}
	return sets
}
