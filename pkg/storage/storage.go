// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

// Package storage exports published table metadata to a key-value store for
// consumers outside the process.
package storage

import (
	"fmt"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/gomap"
	"github.com/philippgille/gokv/redis"
)

// Store wraps the gokv client selected by configuration.
type Store struct {
	client gokv.Store
}

// NewStore opens a store of dbtype ("redis" or "gomap") at address. address
// is ignored by the in-memory store.
func NewStore(dbtype, address string) (*Store, error) {
	switch dbtype {
	case "redis":
		options := redis.DefaultOptions
		if address != "" {
			options.Address = address
		}
		client, err := redis.NewClient(options)
		if err != nil {
			return nil, fmt.Errorf("redis store at %s: %w", address, err)
		}
		return &Store{client: client}, nil
	case "gomap", "memory":
		return &Store{client: gomap.NewStore(gomap.DefaultOptions)}, nil
	}
	return nil, fmt.Errorf("unknown store type %q", dbtype)
}

// GetClient returns the underlying gokv store.
func (s *Store) GetClient() gokv.Store {
	return s.client
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.client.Close()
}
