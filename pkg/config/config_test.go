// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
database: gomap
loglevel: debug
subscribers:
  - name: storage
    priority: 2
    events: [program_loaded, program_removed]
programs:
  - name: l3switch
    profiles:
      - name: pipe0
        context_file: /share/pipe0/context.json
        p4info_file: /share/p4info.txt
        handle_mask: 0
        pipelines: 2
      - name: pipe1
        context_file: /share/pipe1/context.json
        p4info_file: /share/p4info_pipe1.txt
        handle_mask: 65536
      - name: pipe2
        context_file: /share/pipe2/context.json
        p4runtime_addr: 10.0.0.1:9559
        device_id: 3
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tdi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	viper.Reset()
	t.Cleanup(viper.Reset)
	GlobalConfig = Config{CfgFile: path}

	require.NoError(t, LoadConfig())
	cfg := GetConfig()
	assert.Equal(t, path, cfg.CfgFile)
	assert.Equal(t, "gomap", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Programs, 1)
	require.Len(t, cfg.Programs[0].Profiles, 3)
	assert.Equal(t, uint32(65536), cfg.Programs[0].Profiles[1].HandleMask)
	assert.Equal(t, 2, cfg.Programs[0].Profiles[0].Pipelines)
	assert.Equal(t, "10.0.0.1:9559", cfg.Programs[0].Profiles[2].P4RuntimeAddr)
	assert.Equal(t, uint64(3), cfg.Programs[0].Profiles[2].DeviceID)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.SubscriberPriority("storage", "program_removed", 9))
	assert.Equal(t, 9, cfg.SubscriberPriority("dump", "program_loaded", 9))
}

func TestLoadConfigMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	GlobalConfig = Config{CfgFile: filepath.Join(t.TempDir(), "none.yaml")}
	assert.Error(t, LoadConfig())
}

func TestValidate(t *testing.T) {
	tests := map[string]Config{
		"unnamed program": {Programs: []ProgramConfig{{Profiles: []ProfileConfig{{Name: "p"}}}}},
		"no profiles":     {Programs: []ProgramConfig{{Name: "a"}}},
		"duplicate":       {Programs: []ProgramConfig{{Name: "a", Profiles: []ProfileConfig{{Name: "p", ContextFile: "c", P4InfoFile: "i"}}}, {Name: "a"}}},
		"missing files":   {Programs: []ProgramConfig{{Name: "a", Profiles: []ProfileConfig{{Name: "p"}}}}},
		"no p4info":       {Programs: []ProgramConfig{{Name: "a", Profiles: []ProfileConfig{{Name: "p", ContextFile: "c"}}}}},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, (&Config{}).Validate())
}
