// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	tdierr "github.com/opiproject/opi-tdi-info/pkg/errors"
)

const testContext = `{
  "tables": [
    {
      "name": "acl", "handle": 1, "table_type": "match",
      "match_attributes": {"match_type": "ternary"},
      "actions": [
        {"name": "count", "handle": 10, "direct_resources": [{"resource_name": "acl_cntr"}, {"resource_name": "acl_reg"}]},
        {"name": "drop", "handle": 11}
      ]
    },
    {"name": "fwd", "handle": 2, "table_type": "match", "match_attributes": {"match_type": "exact"}},
    {"name": "lpm", "handle": 3, "table_type": "match", "match_attributes": {"match_type": "algorithmic_lpm"}},
    {"name": "acl_cntr", "handle": 4, "table_type": "statistics"},
    {"name": "acl_reg", "handle": 5, "table_type": "stateful"}
  ]
}`

func newTestStatic(t *testing.T) *Static {
	t.Helper()
	doc, err := ctxjson.Parse("pipe", []byte(testContext))
	require.NoError(t, err)
	s := NewStatic()
	s.SetProfile("pipe", 0x10000000, 0)
	s.AddDocument(doc)
	return s
}

func TestStaticProfileQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStatic(t)

	mask, err := s.HandleMask(ctx, "pipe")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10000000), mask)

	pipes, err := s.NumPipelines(ctx, "pipe")
	require.NoError(t, err)
	assert.Equal(t, DefaultPipelines, pipes)

	s.SetProfile("pipe", 0x10000000, 2)
	pipes, err = s.NumPipelines(ctx, "pipe")
	require.NoError(t, err)
	assert.Equal(t, 2, pipes)

	_, err = s.HandleMask(ctx, "other")
	assert.True(t, errors.Is(err, tdierr.ErrObjectNotFound))
}

func TestStaticIsTernary(t *testing.T) {
	ctx := context.Background()
	s := newTestStatic(t)

	for handle, want := range map[uint32]bool{1: true, 2: false, 3: true} {
		got, err := s.IsTernary(ctx, "pipe", handle)
		require.NoError(t, err)
		assert.Equal(t, want, got, "handle %d", handle)
	}
	_, err := s.IsTernary(ctx, "pipe", 42)
	assert.True(t, errors.Is(err, tdierr.ErrObjectNotFound))
}

func TestStaticActionDirectResources(t *testing.T) {
	ctx := context.Background()
	s := newTestStatic(t)

	res, err := s.ActionDirectResources(ctx, "pipe", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, DirectResources{Counter: true, Register: true}, res)

	res, err = s.ActionDirectResources(ctx, "pipe", 1, 11)
	require.NoError(t, err)
	assert.Equal(t, DirectResources{}, res)

	_, err = s.ActionDirectResources(ctx, "pipe", 1, 12)
	assert.True(t, errors.Is(err, tdierr.ErrObjectNotFound))
}

func TestStaticWithoutDocument(t *testing.T) {
	s := NewStatic()
	s.SetProfile("pipe", 0, 0)
	_, err := s.IsTernary(context.Background(), "pipe", 1)
	assert.True(t, errors.Is(err, tdierr.ErrObjectNotFound))
}
