// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	p4configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/config"
	"github.com/opiproject/opi-tdi-info/pkg/tableinfo"
	"github.com/opiproject/opi-tdi-info/pkg/tdi"
)

const p4RuntimeTimeout = 10 * time.Second

// loadProgram builds the interface descriptor of p from the P4Info of its
// profiles, registers the profiles with caps and resolves the program.
func loadProgram(ctx context.Context, p config.ProgramConfig, caps *capability.Static) (*tableinfo.Registry, error) {
	info := &tdi.Info{}
	program := tableinfo.Program{Name: p.Name}
	for _, prof := range p.Profiles {
		p4info, err := readP4Info(ctx, prof)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", prof.Name, err)
		}
		pinfo, err := tdi.FromP4Info(prof.Name, p4info)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", prof.Name, err)
		}
		if err := info.Merge(pinfo); err != nil {
			return nil, fmt.Errorf("profile %s: %w", prof.Name, err)
		}
		program.Profiles = append(program.Profiles, tableinfo.Profile{Name: prof.Name, ContextFile: prof.ContextFile})
	}

	docs, err := tableinfo.LoadDocuments(ctx, program)
	if err != nil {
		return nil, err
	}
	for i, doc := range docs {
		prof := p.Profiles[i]
		caps.SetProfile(prof.Name, prof.HandleMask, prof.Pipelines)
		caps.AddDocument(doc)
	}
	reg, err := tableinfo.Build(ctx, p.Name, info, docs, caps)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"program": p.Name, "tables": len(reg.Tables()), "learns": len(reg.Learns())}).Info("program resolved")
	return reg, nil
}

// readP4Info reads the P4Info of prof from its file, or from the pipeline
// installed on its device.
func readP4Info(ctx context.Context, prof config.ProfileConfig) (*p4configv1.P4Info, error) {
	if prof.P4InfoFile != "" {
		return tdi.LoadP4Info(prof.P4InfoFile)
	}
	ctx, cancel := context.WithTimeout(ctx, p4RuntimeTimeout)
	defer cancel()
	return tdi.FetchP4Info(ctx, prof.P4RuntimeAddr, prof.DeviceID)
}

type programDump struct {
	Program         string             `yaml:"program"`
	ResourceVersion string             `yaml:"resource_version"`
	Tables          []*tableinfo.Table `yaml:"tables"`
	Learns          []*tableinfo.Learn `yaml:"learns,omitempty"`
}

// dump writes the published registries of programs as YAML to path, or to
// stdout when path is "-".
func dump(path string, mgr *tableinfo.Manager, programs []string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	var dumps []programDump
	for _, name := range programs {
		reg, ok := mgr.Get(name)
		if !ok {
			continue
		}
		version, _ := mgr.Version(name)
		dumps = append(dumps, programDump{
			Program:         name,
			ResourceVersion: version,
			Tables:          reg.Tables(),
			Learns:          reg.Learns(),
		})
	}
	out, err := yaml.Marshal(dumps)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
