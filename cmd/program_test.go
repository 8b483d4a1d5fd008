// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/config"
	"github.com/opiproject/opi-tdi-info/pkg/tableinfo"
)

const testP4Info = `
tables {
  preamble { id: 33554433 name: "ingress.fwd" }
  match_fields { id: 1 name: "dst" bitwidth: 32 match_type: EXACT }
  action_refs { id: 16777217 }
  size: 1024
}
actions {
  preamble { id: 16777217 name: "ingress.set_port" }
  params { id: 1 name: "port" bitwidth: 9 }
}
`

const testContext = `{
  "tables": [{
    "name": "ingress.fwd",
    "handle": 16777217,
    "table_type": "match",
    "match_attributes": {
      "match_type": "exact",
      "stage_tables": [
        {"action_format": [{"action_handle": 536870913, "immediate_fields": [{"param_name": "port"}]}]}
      ]
    },
    "match_key_fields": [{"name": "dst", "position": 0, "bit_width_full": 32, "start_bit": 0}],
    "actions": [{"name": "ingress.set_port", "handle": 536870913, "p4_parameters": [{"name": "port"}]}]
  }]
}`

func writeProgram(t *testing.T) config.ProgramConfig {
	t.Helper()
	dir := t.TempDir()
	p4info := filepath.Join(dir, "p4info.txt")
	ctx := filepath.Join(dir, "context.json")
	require.NoError(t, os.WriteFile(p4info, []byte(testP4Info), 0o600))
	require.NoError(t, os.WriteFile(ctx, []byte(testContext), 0o600))
	return config.ProgramConfig{
		Name: "simple",
		Profiles: []config.ProfileConfig{
			{Name: "pipe", ContextFile: ctx, P4InfoFile: p4info, HandleMask: 0x00010000},
		},
	}
}

func TestLoadProgram(t *testing.T) {
	reg, err := loadProgram(context.Background(), writeProgram(t), capability.NewStatic())
	require.NoError(t, err)

	tbl, ok := reg.TableByName("pipe.ingress.fwd")
	require.True(t, ok)
	assert.Equal(t, uint32(0x01010001), tbl.Handle)
	assert.Equal(t, 4, tbl.KeyBytes)
	a := tbl.Action("pipe.ingress.set_port")
	require.NotNil(t, a)
	assert.Equal(t, tableinfo.RoleActionParam, a.Field("port").Roles)
}

func TestLoadProgramMissingP4Info(t *testing.T) {
	p := writeProgram(t)
	p.Profiles[0].P4InfoFile = filepath.Join(t.TempDir(), "none.txt")
	_, err := loadProgram(context.Background(), p, capability.NewStatic())
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	reg, err := loadProgram(context.Background(), writeProgram(t), capability.NewStatic())
	require.NoError(t, err)
	mgr := tableinfo.NewManager(nil)
	version := mgr.Publish(reg)

	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, dump(path, mgr, []string{"simple", "unknown"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "simple", got[0]["program"])
	assert.Equal(t, version, got[0]["resource_version"])
	assert.Contains(t, string(data), "name: pipe.ingress.fwd")
	assert.Contains(t, string(data), "roles: action_param")
}
