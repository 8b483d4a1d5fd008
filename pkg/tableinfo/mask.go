// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
)

// maskContext turns raw placement handles into device-unique handles. The
// owning profile of a handle is found through the name of the object it
// belongs to.
type maskContext struct {
	profileOf map[string]string
	masks     map[string]uint32
}

func newMaskContext() *maskContext {
	return &maskContext{
		profileOf: map[string]string{},
		masks:     map[string]uint32{},
	}
}

func (m *maskContext) setMask(profile string, mask uint32) {
	m.masks[profile] = mask
}

// bind records the owning profile of name. The first binding wins.
func (m *maskContext) bind(name, profile string) {
	if _, ok := m.profileOf[name]; !ok {
		m.profileOf[name] = profile
	}
}

func (m *maskContext) profile(name string) (string, bool) {
	p, ok := m.profileOf[name]
	return p, ok
}

// mask ORs the mask of the profile owning name into raw.
func (m *maskContext) mask(name string, raw uint32) (uint32, error) {
	p, ok := m.profileOf[name]
	if !ok {
		return 0, tdierr.Newf(tdierr.ErrObjectNotFound, "mask", name, "no owning profile")
	}
	return raw | m.masks[p], nil
}

func (m *maskContext) maskProfile(profile string, raw uint32) uint32 {
	return raw | m.masks[profile]
}
