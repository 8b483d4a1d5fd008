// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

const (
	matchWithNoKey = "match_with_no_key"
	phase0Match    = "phase_0_match"
)

func bytesOf(bits int) int {
	return (bits + 7) / 8
}

func (b *builder) resolveKey(t *Table, e *entry) error {
	fields := e.iface.KeyFields
	if e.kind != tableBlob || !(t.Type.IsMatch() || t.Type == tdi.PortMetadata) || !e.blob.Has("match_key_fields") {
		t.Key, t.KeyBytes, t.KeyBits = cumulativeKeyLayout(fields)
		return nil
	}
	key, bytes, bits, err := placedKeyLayout(t.Name, fields, e.blob, b.log.WithField("table", t.Name))
	if err != nil {
		return err
	}
	t.Key, t.KeyBytes, t.KeyBits = key, bytes, bits
	return nil
}

func newKeyField(f *tdi.KeyField) *KeyField {
	return &KeyField{
		ID:        f.ID,
		Name:      f.Name,
		MatchType: f.MatchType,
		Width:     f.Width,
	}
}

// cumulativeKeyLayout packs the fields back to back in declaration order.
// Slices cannot be told apart without a placement descriptor.
func cumulativeKeyLayout(fields []*tdi.KeyField) ([]*KeyField, int, int) {
	key := make([]*KeyField, 0, len(fields))
	offset, bits := 0, 0
	for _, f := range fields {
		k := newKeyField(f)
		if f.Name == tdi.MatchPriority {
			k.IsPriority = true
			k.Offset = NotPacked
			key = append(key, k)
			continue
		}
		k.Offset = offset
		k.ParentBytes = bytesOf(f.Width)
		offset += k.ParentBytes
		bits += f.Width
		key = append(key, k)
	}
	return key, offset, bits
}

// placedKeyLayout lays the key out as the compiler placed it. Interface
// fields are paired with the placement entries by order; fields sharing a
// position are slices of one wire field.
func placedKeyLayout(table string, fields []*tdi.KeyField, blob ctxjson.Node, lg *log.Entry) ([]*KeyField, int, int, error) {
	placed := blob.Get("match_key_fields").Array()

	widths := map[int]int{}
	for _, p := range placed {
		pos := int(p.Get("position").Int())
		w := int(p.Get("bit_width_full").Int())
		if w == 0 {
			w = int(p.Get("bit_width").Int())
		}
		if prev, ok := widths[pos]; ok && prev != w {
			return nil, 0, 0, tdierr.Newf(tdierr.ErrParse, "keylayout", table, "position %d has widths %d and %d", pos, prev, w)
		}
		widths[pos] = w
	}
	positions := make([]int, 0, len(widths))
	for pos := range widths {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	offsets := make(map[int]int, len(positions))
	totalBytes, totalBits := 0, 0
	for _, pos := range positions {
		offsets[pos] = totalBytes
		totalBytes += bytesOf(widths[pos])
		totalBits += widths[pos]
	}

	ma := blob.Get("match_attributes")
	notPacked := ma.Get("match_type").Str() == matchWithNoKey && blob.Get(ctxjson.ConditionTableRefs).Len() > 0
	partition := partitionField(ma)

	key := make([]*KeyField, 0, len(fields))
	i := 0
	for _, f := range fields {
		k := newKeyField(f)
		key = append(key, k)
		if f.Name == tdi.MatchPriority {
			k.IsPriority = true
			k.Offset = NotPacked
			continue
		}
		if notPacked {
			k.Offset = NotPacked
			continue
		}
		if i >= len(placed) {
			return nil, 0, 0, tdierr.Newf(tdierr.ErrParse, "keylayout", table, "%d key fields but %d placed", len(fields), len(placed)).WithField(f.Name)
		}
		p := placed[i]
		i++
		if name := p.Get("name").Str(); name != f.Name {
			lg.WithFields(log.Fields{"field": f.Name, "placed": name}).Warn("key field paired by position with a differently named placement entry")
		}
		pos := int(p.Get("position").Int())
		k.Offset = offsets[pos]
		k.ParentBytes = bytesOf(widths[pos])
		k.StartBit = int(p.Get("start_bit").Int())
		k.IsSlice = k.StartBit != 0 || bytesOf(f.Width) != k.ParentBytes
		k.IsPartitionIndex = partition != "" && f.Name == partition
		if k.Offset+k.ParentBytes > totalBytes {
			return nil, 0, 0, tdierr.Newf(tdierr.ErrParse, "keylayout", table, "field ends at byte %d past key size %d", k.Offset+k.ParentBytes, totalBytes).WithField(f.Name)
		}
	}
	if notPacked {
		return key, 0, 0, nil
	}
	return key, totalBytes, totalBits, nil
}

// partitionField returns the ATCAM partition index field. ALPM tables carry
// it on their ATCAM child.
func partitionField(matchAttributes ctxjson.Node) string {
	if name := matchAttributes.Get("partition_field_name").Str(); name != "" {
		return name
	}
	return matchAttributes.Path("atcam_table", "match_attributes", "partition_field_name").Str()
}
