// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package capability is the hardware capability layer queried while table
// metadata is resolved.
package capability

import (
	"context"
	"sync"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
)

const component = "capability"

// DirectResources tells which direct resources an action drives.
type DirectResources struct {
	Counter  bool `json:"counter" yaml:"counter"`
	Meter    bool `json:"meter" yaml:"meter"`
	Register bool `json:"register" yaml:"register"`
}

// Capabilities answers device questions per pipeline profile. Handles are
// the raw handles of the profile's placement descriptor.
type Capabilities interface {
	HandleMask(ctx context.Context, profile string) (uint32, error)
	IsTernary(ctx context.Context, profile string, tableHandle uint32) (bool, error)
	NumPipelines(ctx context.Context, profile string) (int, error)
	ActionDirectResources(ctx context.Context, profile string, tableHandle, actionHandle uint32) (DirectResources, error)
}

// DefaultPipelines is the pipeline count of a profile without an override.
const DefaultPipelines = 4

type profileCaps struct {
	mask      uint32
	pipelines int
	doc       *ctxjson.Document
}

// Static answers from configuration and from the placement descriptors
// themselves, for use without a device.
type Static struct {
	mu       sync.RWMutex
	profiles map[string]*profileCaps
}

// NewStatic returns an empty Static capability layer.
func NewStatic() *Static {
	return &Static{profiles: map[string]*profileCaps{}}
}

func (s *Static) profile(name string) *profileCaps {
	p, ok := s.profiles[name]
	if !ok {
		p = &profileCaps{pipelines: DefaultPipelines}
		s.profiles[name] = p
	}
	return p
}

// SetProfile records the handle mask and pipeline count of a profile. A
// pipeline count of zero keeps the default.
func (s *Static) SetProfile(name string, mask uint32, pipelines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile(name)
	p.mask = mask
	if pipelines > 0 {
		p.pipelines = pipelines
	}
}

// AddDocument makes the placement descriptor of doc.Profile available to the
// table queries.
func (s *Static) AddDocument(doc *ctxjson.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(doc.Profile).doc = doc
}

func (s *Static) lookup(profile string) (profileCaps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profile]
	if !ok {
		return profileCaps{}, tdierr.Newf(tdierr.ErrObjectNotFound, component, "", "unknown profile %s", profile)
	}
	return *p, nil
}

func (s *Static) table(profile string, handle uint32) (ctxjson.Node, *ctxjson.Document, error) {
	p, err := s.lookup(profile)
	if err != nil {
		return ctxjson.Node{}, nil, err
	}
	if p.doc == nil {
		return ctxjson.Node{}, nil, tdierr.Newf(tdierr.ErrObjectNotFound, component, "", "profile %s has no placement descriptor", profile)
	}
	t, ok := p.doc.TableByHandle(handle)
	if !ok {
		return ctxjson.Node{}, nil, tdierr.Newf(tdierr.ErrObjectNotFound, component, "", "profile %s: no table with handle %#x", profile, handle)
	}
	return t, p.doc, nil
}

// HandleMask implements Capabilities.
func (s *Static) HandleMask(_ context.Context, profile string) (uint32, error) {
	p, err := s.lookup(profile)
	if err != nil {
		return 0, err
	}
	return p.mask, nil
}

// NumPipelines implements Capabilities.
func (s *Static) NumPipelines(_ context.Context, profile string) (int, error) {
	p, err := s.lookup(profile)
	if err != nil {
		return 0, err
	}
	return p.pipelines, nil
}

// IsTernary implements Capabilities. TCAM backed tables, including the
// algorithmic ones, are ternary.
func (s *Static) IsTernary(_ context.Context, profile string, tableHandle uint32) (bool, error) {
	t, _, err := s.table(profile, tableHandle)
	if err != nil {
		return false, err
	}
	switch t.Path("match_attributes", "match_type").Str() {
	case "ternary", "algorithmic_tcam", "algorithmic_lpm":
		return true, nil
	}
	return false, nil
}

// ActionDirectResources implements Capabilities.
func (s *Static) ActionDirectResources(_ context.Context, profile string, tableHandle, actionHandle uint32) (DirectResources, error) {
	var res DirectResources
	t, doc, err := s.table(profile, tableHandle)
	if err != nil {
		return res, err
	}
	for _, a := range t.Get("actions").Array() {
		if a.Get("handle").Uint32() != actionHandle {
			continue
		}
		for _, r := range a.Get("direct_resources").Array() {
			rt, ok := doc.TableByName(r.Get("resource_name").Str())
			if !ok {
				continue
			}
			switch rt.Get("table_type").Str() {
			case "statistics":
				res.Counter = true
			case "meter", "lpf", "wred":
				res.Meter = true
			case "stateful":
				res.Register = true
			}
		}
		return res, nil
	}
	return res, tdierr.Newf(tdierr.ErrObjectNotFound, component, t.Get("name").Str(), "no action with handle %#x", actionHandle)
}
