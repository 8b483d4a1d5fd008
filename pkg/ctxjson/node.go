// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package ctxjson

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Node is a read accessor over a decoded JSON value. Lookups on a missing
// key or on the wrong kind of value yield an empty Node, so chains such as
// n.Get("a").Get("b").Int() never panic.
type Node struct {
	v interface{}
}

// NewNode wraps a decoded JSON value.
func NewNode(v interface{}) Node {
	return Node{v: v}
}

// Value returns the wrapped value.
func (n Node) Value() interface{} {
	return n.v
}

// Exists reports whether the node holds a value.
func (n Node) Exists() bool {
	return n.v != nil
}

// Get returns the member key of an object node.
func (n Node) Get(key string) Node {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return Node{}
	}
	return Node{v: m[key]}
}

// Path follows keys through nested objects.
func (n Node) Path(keys ...string) Node {
	for _, k := range keys {
		n = n.Get(k)
	}
	return n
}

// Has reports whether an object node carries key.
func (n Node) Has(key string) bool {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// Keys returns the member names of an object node in sorted order.
func (n Node) Keys() []string {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Array returns the elements of an array node.
func (n Node) Array() []Node {
	a, ok := n.v.([]interface{})
	if !ok {
		return nil
	}
	nodes := make([]Node, len(a))
	for i, v := range a {
		nodes[i] = Node{v: v}
	}
	return nodes
}

// Len is the number of elements of an array node.
func (n Node) Len() int {
	a, _ := n.v.([]interface{})
	return len(a)
}

// Str returns a string node's value.
func (n Node) Str() string {
	s, _ := n.v.(string)
	return s
}

// Int returns a number node's value, 0 when the node is not an integer.
func (n Node) Int() int64 {
	switch v := n.v.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0
		}
		return i
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case uint32:
		return int64(v)
	case string:
		i, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// Uint32 returns a number node's value truncated to 32 bits.
func (n Node) Uint32() uint32 {
	return uint32(n.Int())
}

// Bool returns a boolean node's value.
func (n Node) Bool() bool {
	b, _ := n.v.(bool)
	return b
}

// IsNumber reports whether the node holds a number.
func (n Node) IsNumber() bool {
	switch n.v.(type) {
	case json.Number, float64, int, int64, uint32:
		return true
	}
	return false
}

// Set replaces member key of an object node. It is a no-op on other nodes.
func (n Node) Set(key string, v interface{}) {
	if m, ok := n.v.(map[string]interface{}); ok {
		m[key] = v
	}
}
