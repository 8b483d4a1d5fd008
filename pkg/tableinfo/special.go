// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"strings"

	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

// resolveSpecial fills the attributes only some table kinds carry.
func (b *builder) resolveSpecial(t *Table, e *entry) {
	switch e.kind {
	case dynHashBlob:
		t.HashBitWidth = int(e.blob.Get("hash_bit_width").Int())
	case valueSetBlob:
		if t.Size == 0 {
			t.Size = e.blob.Get("pvs_size").Int()
		}
	}
	if t.Type == tdi.Register || hasDirectRegister(t) {
		t.ValuesPerEntry = b.pipelines(e.profile)
	}
}

const (
	configureSuffix = "configure"
	algorithmSuffix = "algorithm"
)

// algorithmTableName derives the algorithm table of a dynamic hash from its
// configure table.
func algorithmTableName(configure string) (string, error) {
	if !strings.HasSuffix(configure, configureSuffix) {
		return "", tdierr.Newf(tdierr.ErrParse, "builder", configure, "dynamic hash table name does not end in %q", configureSuffix)
	}
	return strings.TrimSuffix(configure, configureSuffix) + algorithmSuffix, nil
}

func (b *builder) resolveAlgorithm(cfg *entry) error {
	name, err := algorithmTableName(cfg.name)
	if err != nil {
		b.log.WithField("table", cfg.name).WithError(err).Error("no algorithm table")
		return nil
	}
	iface := b.info.TableByName(name)
	if iface == nil || iface.Type != tdi.DynHashAlgorithm {
		b.log.WithField("table", name).Warn("dynamic hash algorithm table not in the interface descriptor")
		return nil
	}
	e := &entry{name: name, iface: iface, blob: cfg.blob, kind: cfg.kind, profile: cfg.profile, doc: cfg.doc}
	if e.kind != noBlob {
		b.masks.bind(name, e.profile)
	}
	t, err := b.resolve(e)
	if err != nil {
		return b.tableError(name, err)
	}
	b.register(t)
	return nil
}

// isPhase0 reports whether the table is a port metadata table, whose action
// is published only by the placement descriptor.
func (r *dataResolver) isPhase0() bool {
	return r.t.Type == tdi.PortMetadata ||
		(r.e.kind == tableBlob && r.e.blob.Path("match_attributes", "match_type").Str() == phase0Match)
}
