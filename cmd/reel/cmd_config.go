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
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reel configuration",
	Long:  `Manage the reel configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate example configuration file",
	Long:  `Generate an example reel.yaml configuration file in the reel data directory.`,
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration (merged from all sources) as YAML.`,
	Run:   runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

const exampleConfig = `# Reel configuration
# Generated by: reel config init

store:
  # dir: ~/.reel/media
  watch: true
  watch_debounce_ms: 500

cache:
  capacity: 50
  max_attempts: 3
  base_delay_ms: 500
  max_delay_ms: 2000
  retain_released: true

server:
  addr: 127.0.0.1:7450
  lease_ttl_seconds: 300
  max_upload_mb: 512
  cors:
    enabled: true
    allowed_origins: ["*"]

logging:
  level: info
  format: text
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configDir := dataDir()
	configPath := filepath.Join(configDir, "reel.yaml")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists: %s\n", configPath)
		fmt.Print("Overwrite? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Config file created: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Ingest some media:")
	fmt.Println("   reel add photo.jpg")
	fmt.Println("2. Start the daemon:")
	fmt.Println("   reel serve")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	out, err := yaml.Marshal(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering config: %v\n", err)
		os.Exit(1)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# config file: %s\n", used)
	} else {
		fmt.Println("# config file: (none, defaults + environment)")
	}
	fmt.Printf("# data dir: %s\n", config.DataDir)
	fmt.Print(string(out))
}
