// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/reel/internal/log"
	"github.com/teradata-labs/reel/internal/version"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "reel",
	Short:   "Reel - media store with ephemeral handle serving",
	Long:    `Reel stores media payloads in a durable local store and serves them through ephemeral, reference-counted file handles that are revoked when no longer leased.`,
	Version: version.Get(),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Custom help template with Support at bottom
	rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}
Support:
  GitHub: https://github.com/teradata-labs/reel/issues
  Documentation: https://github.com/teradata-labs/reel
`)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $REEL_DATA_DIR/reel.yaml)")

	// Store flags
	// dataDir respects the REEL_DATA_DIR environment variable
	defaultStoreDir := filepath.Join(dataDir(), "media")
	rootCmd.PersistentFlags().String("store-dir", defaultStoreDir, "media store directory")
	rootCmd.PersistentFlags().Bool("mem", false, "use an in-memory store (serve only, nothing survives restarts)")

	// Cache flags
	rootCmd.PersistentFlags().Int("capacity", 50, "handle cache capacity (soft bound, leased handles are never evicted)")

	// Server flags
	rootCmd.PersistentFlags().String("addr", "127.0.0.1:7450", "daemon listen address")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))
	_ = viper.BindPFlag("store.in_memory", rootCmd.PersistentFlags().Lookup("mem"))

	_ = viper.BindPFlag("cache.capacity", rootCmd.PersistentFlags().Lookup("capacity"))

	_ = viper.BindPFlag("server.addr", rootCmd.PersistentFlags().Lookup("addr"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Point the global logger at the configured level and format so store
	// operations invoked by one-shot commands log consistently. serve
	// rebuilds it after validating the full logging config.
	if l, err := buildLogger(config.Logging); err == nil {
		log.SetLogger(l)
	}
}
