// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package ctxjson

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
)

const testContext = `{
  "tables": [
    {
      "name": "ingress.fwd",
      "handle": 16777217,
      "table_type": "match",
      "match_attributes": {"match_type": "exact"},
      "statistics_table_refs": [{"name": "ingress.cntr", "handle": 16777218, "how_referenced": "direct"}],
      "actions": [
        {
          "name": "ingress.set_port",
          "handle": 536870913,
          "indirect_resources": [{"access_mode": "index", "parameter_name": "idx", "resource_name": "ingress.cntr"}],
          "direct_resources": [{"resource_name": "ingress.meter"}]
        }
      ]
    },
    {"name": "pipe.ingress.cntr", "handle": 16777218, "table_type": "statistics"},
    {"name": "ingress.fwd", "handle": 99, "table_type": "match"}
  ],
  "dynamic_hash_calculations": [{"name": "ipv4_hash", "handle": 16777300, "hash_bit_width": 32}],
  "learn_quanta": [{"name": "mac_learn", "handle": 1}],
  "parser": {
    "parsers": [
      {"states": [{"name": "start"}, {"name": "s1", "pvs_name": "vs", "pvs_handle": 7}]},
      {"states": [{"name": "s1", "pvs_name": "vs", "pvs_handle": 7}]}
    ]
  }
}`

func TestParseQualifiesNames(t *testing.T) {
	doc, err := Parse("pipe", []byte(testContext))
	require.NoError(t, err)
	assert.Equal(t, "pipe", doc.Profile)

	require.Len(t, doc.Tables(), 2)
	fwd, ok := doc.TableByName("pipe.ingress.fwd")
	require.True(t, ok)
	assert.Equal(t, uint32(16777217), fwd.Get("handle").Uint32())

	ref := fwd.Get(StatisticsTableRefs).Array()[0]
	assert.Equal(t, "pipe.ingress.cntr", ref.Get("name").Str())

	action := fwd.Get("actions").Array()[0]
	assert.Equal(t, "pipe.ingress.set_port", action.Get("name").Str())
	assert.Equal(t, "pipe.ingress.cntr", action.Get("indirect_resources").Array()[0].Get("resource_name").Str())
	assert.Equal(t, "pipe.ingress.meter", action.Get("direct_resources").Array()[0].Get("resource_name").Str())

	_, ok = doc.TableByName("pipe.ingress.cntr")
	assert.True(t, ok, "already qualified names are kept")

	byHandle, ok := doc.TableByHandle(16777218)
	require.True(t, ok)
	assert.Equal(t, "pipe.ingress.cntr", byHandle.Get("name").Str())
	_, ok = doc.TableByHandle(99)
	assert.False(t, ok, "duplicate table is dropped")

	assert.Equal(t, "pipe.ipv4_hash", doc.DynHashCalculations()[0].Get("name").Str())
	learn, ok := doc.LearnByName("pipe.mac_learn")
	require.True(t, ok)
	assert.Equal(t, int64(1), learn.Get("handle").Int())

	sets := doc.ValueSets()
	require.Len(t, sets, 1)
	assert.Equal(t, "pipe.vs", sets[0].Get("pvs_name").Str())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed", data: `{"tables": [`},
		{name: "not an object", data: `[1, 2]`},
		{name: "tables not an array", data: `{"tables": {}}`},
		{name: "table without name", data: `{"tables": [{"handle": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("pipe", []byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tdierr.ErrParse))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	require.NoError(t, os.WriteFile(path, []byte(testContext), 0o600))

	doc, err := Load("pipe", path)
	require.NoError(t, err)
	assert.Len(t, doc.Tables(), 2)

	_, err = Load("pipe", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tdierr.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNodeAccessors(t *testing.T) {
	doc, err := Parse("p", []byte(`{"a": {"b": [1, "x", true, "0x10"]}, "n": null}`))
	require.NoError(t, err)

	arr := doc.Root.Path("a", "b").Array()
	require.Len(t, arr, 4)
	assert.Equal(t, int64(1), arr[0].Int())
	assert.True(t, arr[0].IsNumber())
	assert.Equal(t, "x", arr[1].Str())
	assert.True(t, arr[2].Bool())
	assert.Equal(t, int64(16), arr[3].Int())

	assert.False(t, doc.Root.Get("n").Exists())
	assert.True(t, doc.Root.Has("n"))
	assert.False(t, doc.Root.Path("a", "missing", "deeper").Exists())
	assert.Equal(t, 0, doc.Root.Get("a").Len())
	assert.Equal(t, []string{"a", "n"}, doc.Root.Keys())
}
