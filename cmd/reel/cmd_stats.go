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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/reel/pkg/handle"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics from a running daemon",
	Long: `Fetch and display handle cache statistics from a running reel daemon.

The daemon address comes from --addr, the REEL_SERVER_ADDR environment
variable, or server.addr in the config file.`,
	Run: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("http://%s/v1/stats", config.Server.Addr)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reaching daemon at %s: %v\n", config.Server.Addr, err)
		fmt.Fprintf(os.Stderr, "Is the daemon running? Start it with: reel serve\n")
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Unexpected response from daemon: %s\n", resp.Status)
		os.Exit(1)
	}

	var payload struct {
		Cache  handle.Stats `json:"cache"`
		Grants int          `json:"grants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding stats: %v\n", err)
		os.Exit(1)
	}

	st := payload.Cache

	fmt.Println("Handle cache:")
	fmt.Printf("  Entries: %d / %d\n", st.Entries, st.Capacity)
	fmt.Printf("  Hits: %d\n", st.Hits)
	fmt.Printf("  Misses: %d\n", st.Misses)
	if lookups := st.Hits + st.Misses; lookups > 0 {
		fmt.Printf("  Hit rate: %.1f%%\n", float64(st.Hits)/float64(lookups)*100)
	}
	fmt.Printf("  Materializations: %d\n", st.Materializations)
	fmt.Printf("  Retries: %d\n", st.Retries)
	fmt.Printf("  Evictions: %d\n", st.Evictions)
	fmt.Printf("  Invalidations: %d\n", st.Invalidations)
	fmt.Printf("  Releases: %d\n", st.Releases)
	fmt.Println()

	fmt.Println("Leases:")
	fmt.Printf("  Active grants: %d\n", payload.Grants)
}
