// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (c) 2022-2023 Dell Inc, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package main is the main package of the application
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opiproject/opi-tdi-info/pkg/capability"
	"github.com/opiproject/opi-tdi-info/pkg/config"
	"github.com/opiproject/opi-tdi-info/pkg/eventbus"
	"github.com/opiproject/opi-tdi-info/pkg/storage"
	"github.com/opiproject/opi-tdi-info/pkg/tableinfo"
	"github.com/opiproject/opi-tdi-info/pkg/taskmanager"
	"github.com/opiproject/opi-tdi-info/pkg/utils"
)

const (
	configFilePath = "./"
	serviceName    = "opi-tdi-info"
	storageModule  = "storage"
	exportTimeout  = 2 * time.Minute
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "table metadata loader",
	Long:  "loads the interface and placement descriptors of P4 programs, resolves their table metadata and exports it",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateConfigs()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := config.GetConfig()
		level, _ := log.ParseLevel(cfg.LogLevel)
		log.SetLevel(level)
		log.SetReportCaller(true)

		if err := runTraced(cmd.Context(), cfg); err != nil {
			log.Error(err)
			os.Exit(1)
		}
	},
}

func runTraced(ctx context.Context, cfg *config.Config) error {
	if cfg.Tracing {
		tp := utils.InitTracerProvider(serviceName)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Errorf("Tracer Provider Shutdown: %v", err)
			}
		}()
	}
	return run(ctx, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := storage.NewStore(cfg.Database, cfg.DBAddress)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("store close failed")
		}
	}()

	tm := taskmanager.New(eventbus.EBus, 0)
	tm.StartTaskManager()
	defer tm.Stop()

	mgr := tableinfo.NewManager(eventbus.EBus)
	mgr.SetTaskManager(tm)
	exporter := storage.NewExporter(store.GetClient(), mgr)
	exporter.SetStatusReporter(tm)
	for _, eventType := range []string{eventbus.ProgramLoaded, eventbus.ProgramRemoved} {
		priority := cfg.SubscriberPriority(storageModule, eventType, 1)
		sub := eventbus.EBus.StartSubscriber(storageModule, eventType, priority, exporter)
		defer eventbus.EBus.UnsubscribeEvent(sub, eventType)
	}

	caps := capability.NewStatic()
	var published []string
	for _, p := range cfg.Programs {
		reg, err := loadProgram(ctx, p, caps)
		if err != nil {
			log.WithField("program", p.Name).WithError(err).Error("program not loaded")
			continue
		}
		mgr.Publish(reg)
		published = append(published, p.Name)
	}

	drainCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()
	if err := tm.Drain(drainCtx); err != nil {
		return fmt.Errorf("export not finished: %w", err)
	}

	if cfg.Dump != "" {
		if err := dump(cfg.Dump, mgr, published); err != nil {
			return err
		}
	}
	if len(published) < len(cfg.Programs) {
		return fmt.Errorf("%d of %d programs not loaded", len(cfg.Programs)-len(published), len(cfg.Programs))
	}
	return nil
}

func initialize() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&config.GlobalConfig.CfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&config.GlobalConfig.DBAddress, "dbaddress", "127.0.0.1:6379", "db address in ip_address:port format")
	rootCmd.PersistentFlags().StringVar(&config.GlobalConfig.Database, "database", "gomap", "Database type, redis or gomap")
	rootCmd.PersistentFlags().StringVar(&config.GlobalConfig.LogLevel, "loglevel", "info", "log level")
	rootCmd.PersistentFlags().StringVar(&config.GlobalConfig.Dump, "dump", "", "write the resolved metadata as YAML to this file, - for stdout")
	rootCmd.PersistentFlags().BoolVar(&config.GlobalConfig.Tracing, "tracing", false, "export spans over OTLP")

	if err := viper.GetViper().BindPFlags(rootCmd.PersistentFlags()); err != nil {
		log.Errorf("Error binding flags to Viper: %v", err)
		os.Exit(1)
	}
}

func initConfig() {
	if config.GlobalConfig.CfgFile == "" {
		// Search config in the default location
		viper.AddConfigPath(configFilePath)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}
	if err := config.LoadConfig(); err != nil {
		log.Fatal(err)
	}
}

func validateConfigs() error {
	cfg := config.GetConfig()

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid loglevel %q", cfg.LogLevel)
	}

	switch cfg.Database {
	case "gomap", "memory":
	case "redis":
		_, port, err := net.SplitHostPort(cfg.DBAddress)
		if err != nil {
			return fmt.Errorf("invalid DBAddress format. It should be in ip_address:port format")
		}
		dbPort, err := strconv.Atoi(port)
		if err != nil || dbPort <= 0 || dbPort > 65535 {
			return fmt.Errorf("invalid db port. It must be a positive integer between 1 and 65535")
		}
	default:
		return fmt.Errorf("unknown database %q", cfg.Database)
	}

	if len(cfg.Programs) == 0 {
		return fmt.Errorf("no programs configured")
	}
	return cfg.Validate()
}

func main() {
	initialize()
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
