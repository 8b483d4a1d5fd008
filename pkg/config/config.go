// SPDX-License-Identifier: Apache-2.0
// Copyright (C) 2023 Nordix Foundation.

// Package config holds the process configuration loaded through viper.
package config

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type SubscriberConfig struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Priority int      `yaml:"priority" mapstructure:"priority"`
	Events   []string `yaml:"events" mapstructure:"events"`
}

// ProfileConfig locates the descriptors of one pipeline profile.
type ProfileConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	ContextFile string `yaml:"context_file" mapstructure:"context_file"`
	P4InfoFile  string `yaml:"p4info_file" mapstructure:"p4info_file"`
	// P4RuntimeAddr is read for the P4Info when no P4InfoFile is given.
	P4RuntimeAddr string `yaml:"p4runtime_addr" mapstructure:"p4runtime_addr"`
	DeviceID      uint64 `yaml:"device_id" mapstructure:"device_id"`
	// HandleMask is ORed into every handle of the profile.
	HandleMask uint32 `yaml:"handle_mask" mapstructure:"handle_mask"`
	Pipelines  int    `yaml:"pipelines" mapstructure:"pipelines"`
}

type ProgramConfig struct {
	Name     string          `yaml:"name" mapstructure:"name"`
	Profiles []ProfileConfig `yaml:"profiles" mapstructure:"profiles"`
}

type Config struct {
	CfgFile     string
	Database    string             `yaml:"database" mapstructure:"database"`
	DBAddress   string             `yaml:"dbaddress" mapstructure:"dbaddress"`
	LogLevel    string             `yaml:"loglevel" mapstructure:"loglevel"`
	Dump        string             `yaml:"dump" mapstructure:"dump"`
	Tracing     bool               `yaml:"tracing" mapstructure:"tracing"`
	Subscribers []SubscriberConfig `yaml:"subscribers" mapstructure:"subscribers"`
	Programs    []ProgramConfig    `yaml:"programs" mapstructure:"programs"`
}

var GlobalConfig Config

func SetConfig(cfg Config) error {
	GlobalConfig = cfg
	return nil
}

// LoadConfig reads the config file and unmarshals viper's view of flags,
// environment and file into GlobalConfig. Without an explicit file, a missing
// config in the search path is not an error.
func LoadConfig() error {
	cfgFile := GlobalConfig.CfgFile
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("config file %s: %w", cfgFile, err)
		}
	} else {
		log.WithField("file", viper.ConfigFileUsed()).Info("using config file")
	}
	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return err
	}
	GlobalConfig.CfgFile = cfgFile
	log.Debugf("config %+v", GlobalConfig)
	return nil
}

// Validate checks that every program names its profiles and their
// descriptors.
func (c *Config) Validate() error {
	names := map[string]bool{}
	for _, p := range c.Programs {
		if p.Name == "" {
			return fmt.Errorf("program without name")
		}
		if names[p.Name] {
			return fmt.Errorf("program %s configured twice", p.Name)
		}
		names[p.Name] = true
		if len(p.Profiles) == 0 {
			return fmt.Errorf("program %s has no profiles", p.Name)
		}
		for _, prof := range p.Profiles {
			if prof.Name == "" || prof.ContextFile == "" {
				return fmt.Errorf("program %s: profile %q needs a name and a context_file", p.Name, prof.Name)
			}
			if prof.P4InfoFile == "" && prof.P4RuntimeAddr == "" {
				return fmt.Errorf("program %s: profile %s needs a p4info_file or a p4runtime_addr", p.Name, prof.Name)
			}
		}
	}
	return nil
}

// SubscriberPriority returns the configured priority of subscriber name for
// eventType, or def.
func (c *Config) SubscriberPriority(name, eventType string, def int) int {
	for _, s := range c.Subscribers {
		if s.Name != name {
			continue
		}
		for _, e := range s.Events {
			if e == eventType {
				return s.Priority
			}
		}
	}
	return def
}

func GetConfig() *Config {
	return &GlobalConfig
}
