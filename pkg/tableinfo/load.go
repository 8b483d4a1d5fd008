// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tableinfo

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/ctxjson"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

const tracerName = "github.com/opiproject/opi-tdi-info/pkg/tableinfo"

// Profile is one pipeline profile of a program.
type Profile struct {
	Name        string
	ContextFile string
}

// Program names a program and its pipeline profiles.
type Program struct {
	Name     string
	Profiles []Profile
}

// LoadDocuments reads the placement descriptor of every profile of p.
func LoadDocuments(ctx context.Context, p Program) ([]*ctxjson.Document, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "tableinfo.LoadDocuments",
		trace.WithAttributes(attribute.String("program", p.Name)))
	defer span.End()

	docs := make([]*ctxjson.Document, 0, len(p.Profiles))
	for _, prof := range p.Profiles {
		doc, err := ctxjson.Load(prof.Name, prof.ContextFile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "placement descriptor not loaded")
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Build reconciles the interface descriptor of a program with the placement
// descriptors of its profiles. docs must be in profile order; the first
// profile placing an object owns it.
func Build(ctx context.Context, program string, info *tdi.Info, docs []*ctxjson.Document, caps capability.Capabilities) (*Registry, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tableinfo.Build",
		trace.WithAttributes(
			attribute.String("program", program),
			attribute.Int("profiles", len(docs)),
			attribute.Int("interface_tables", len(info.Tables)),
		))
	defer span.End()

	reg, err := newBuilder(ctx, program, info, docs, caps).build()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "program not resolved")
		return nil, err
	}
	span.SetAttributes(attribute.Int("tables", len(reg.tables)), attribute.Int("learns", len(reg.learns)))
	return reg, nil
}

// Load reads the placement descriptors of p and builds its registry.
func Load(ctx context.Context, p Program, info *tdi.Info, caps capability.Capabilities) (*Registry, error) {
	docs, err := LoadDocuments(ctx, p)
	if err != nil {
		return nil, err
	}
	return Build(ctx, p.Name, info, docs, caps)
}
