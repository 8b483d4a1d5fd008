// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package tdi

import (
	"os"
	"path/filepath"
	"testing"

	p4configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

const testP4Info = `
tables {
  preamble { id: 33554433 name: "ingress.forward" }
  match_fields { id: 1 name: "hdr.ipv4.dst" bitwidth: 32 match_type: LPM }
  action_refs { id: 16777217 }
  size: 1024
  idle_timeout_behavior: NOTIFY_CONTROL
}
tables {
  preamble { id: 33554434 name: "ingress.acl" }
  match_fields { id: 1 name: "hdr.ipv4.src" bitwidth: 32 match_type: TERNARY }
  action_refs { id: 16777217 }
  size: 256
  is_const_table: true
}
tables {
  preamble { id: 33554435 name: "ingress.ecmp" }
  match_fields { id: 1 name: "meta.hash" bitwidth: 16 match_type: EXACT }
  action_refs { id: 16777217 }
  implementation_id: 285212673
  size: 128
}
actions {
  preamble { id: 16777217 name: "ingress.set_port" }
  params { id: 1 name: "port" bitwidth: 9 }
}
action_profiles {
  preamble { id: 285212673 name: "ingress.ecmp_ap" }
  table_ids: 33554435
  with_selector: true
  size: 64
}
counters {
  preamble { id: 302055425 name: "ingress.cntr" }
  spec { unit: BOTH }
  size: 512
}
direct_counters {
  preamble { id: 318832641 name: "ingress.forward_cntr" }
  spec { unit: PACKETS }
  direct_table_id: 33554433
}
registers {
  preamble { id: 369098753 name: "ingress.reg" }
  type_spec { bitstring { bit { bitwidth: 16 } } }
  size: 32
}
digests {
  preamble { id: 385875969 name: "mac_learn" }
  type_spec { struct { name: "mac_learn_t" } }
}
type_info {
  structs {
    key: "mac_learn_t"
    value {
      members { name: "src_mac" type_spec { bitstring { bit { bitwidth: 48 } } } }
      members { name: "port" type_spec { bitstring { bit { bitwidth: 9 } } } }
    }
  }
}
`

func parseTestP4Info(t *testing.T) *p4configv1.P4Info {
	t.Helper()
	info := &p4configv1.P4Info{}
	require.NoError(t, prototext.Unmarshal([]byte(testP4Info), info))
	return info
}

func TestFromP4Info(t *testing.T) {
	info, err := FromP4Info("pipe", parseTestP4Info(t))
	require.NoError(t, err)

	t.Run("direct table", func(t *testing.T) {
		tbl := info.TableByName("pipe.ingress.forward")
		require.NotNil(t, tbl)
		assert.Equal(t, MatchActionDirect, tbl.Type)
		assert.Equal(t, int64(1024), tbl.Size)
		require.Len(t, tbl.KeyFields, 1)
		assert.Equal(t, MatchLPM, tbl.KeyFields[0].MatchType)
		require.Len(t, tbl.Actions, 1)
		assert.Equal(t, "pipe.ingress.set_port", tbl.Actions[0].Name)
		assert.Equal(t, 9, tbl.Actions[0].Fields[0].Width)

		var names []string
		for _, f := range tbl.CommonFields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{EntryTTL, CounterSpecPackets}, names)
	})

	t.Run("ternary table gets a priority", func(t *testing.T) {
		tbl := info.TableByName("pipe.ingress.acl")
		require.NotNil(t, tbl)
		require.Len(t, tbl.KeyFields, 2)
		assert.Equal(t, MatchPriority, tbl.KeyFields[1].Name)
		assert.True(t, tbl.HasConstEntries)
	})

	t.Run("selector implementation", func(t *testing.T) {
		tbl := info.TableByName("pipe.ingress.ecmp")
		require.NotNil(t, tbl)
		assert.Equal(t, MatchActionIndirectSelector, tbl.Type)
		assert.Empty(t, tbl.Actions)

		ap := info.TableByName("pipe.ingress.ecmp_ap")
		require.NotNil(t, ap)
		assert.Equal(t, ActionProfile, ap.Type)
		require.Len(t, ap.Actions, 1)

		sel := info.TableByName("pipe.ingress.ecmp_ap_sel")
		require.NotNil(t, sel)
		assert.Equal(t, Selector, sel.Type)
		assert.Equal(t, uint32(0x81000001), sel.ID)
	})

	t.Run("resources", func(t *testing.T) {
		cntr := info.TableByName("pipe.ingress.cntr")
		require.NotNil(t, cntr)
		assert.Len(t, cntr.CommonFields, 2)
		assert.Equal(t, CounterIndex, cntr.KeyFields[0].Name)

		reg := info.TableByName("pipe.ingress.reg")
		require.NotNil(t, reg)
		require.Len(t, reg.CommonFields, 1)
		assert.Equal(t, "ingress.reg.f1", reg.CommonFields[0].Name)
		assert.Equal(t, 16, reg.CommonFields[0].Width)
	})

	t.Run("digest", func(t *testing.T) {
		require.Len(t, info.Learns, 1)
		learn := info.Learns[0]
		assert.Equal(t, "pipe.mac_learn", learn.Name)
		require.Len(t, learn.Fields, 2)
		assert.Equal(t, 48, learn.Fields[0].Width)
	})
}

func TestFromP4InfoUnknownImplementation(t *testing.T) {
	p4info := parseTestP4Info(t)
	p4info.ActionProfiles = nil
	_, err := FromP4Info("pipe", p4info)
	assert.Error(t, err)
}

func TestLoadP4Info(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "p4info.txt")
	require.NoError(t, os.WriteFile(text, []byte(testP4Info), 0o600))
	info, err := LoadP4Info(text)
	require.NoError(t, err)
	assert.Len(t, info.GetTables(), 3)

	bin, err := proto.Marshal(info)
	require.NoError(t, err)
	binPath := filepath.Join(dir, "p4info.bin")
	require.NoError(t, os.WriteFile(binPath, bin, 0o600))
	info, err = LoadP4Info(binPath)
	require.NoError(t, err)
	assert.Len(t, info.GetTables(), 3)

	_, err = LoadP4Info(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMerge(t *testing.T) {
	a := &Info{Tables: []*Table{{ID: 1, Name: "p0.t"}}}
	require.NoError(t, a.Merge(&Info{Tables: []*Table{{ID: 2, Name: "p1.t"}}}))
	assert.Len(t, a.Tables, 2)

	assert.Error(t, a.Merge(&Info{Tables: []*Table{{ID: 2, Name: "p2.t"}}}))
	assert.Error(t, a.Merge(&Info{Tables: []*Table{{ID: 3, Name: "p0.t"}}}))
	assert.Error(t, a.Merge(&Info{Learns: []*Learn{{ID: 1, Name: "p0.l"}}}))
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "pipe.t", Qualify("pipe", "t"))
	assert.Equal(t, "pipe.t", Qualify("pipe", "pipe.t"))
	assert.Equal(t, "t", Qualify("", "t"))
}
