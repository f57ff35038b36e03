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

	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Compact the media store",
	Long: `Compact the media store: remove orphan blobs that no index row
references and verify the integrity of every indexed payload.

Damaged resources are reported but not removed; their ids stay listed so
the payloads can be re-ingested under fresh ids before cleaning up.`,
	Run: runGc,
}

func init() {
	rootCmd.AddCommand(gcCmd)
}

func runGc(cmd *cobra.Command, args []string) {
	st := openStore()
	defer func() { _ = st.Close() }()

	removed, damaged, err := st.Compact(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compacting store: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Removed %d orphan blob(s)\n", removed)

	if len(damaged) > 0 {
		fmt.Printf("Damaged resources (%d):\n", len(damaged))
		for _, id := range damaged {
			fmt.Printf("  - %s\n", id)
		}
		os.Exit(1)
	}
}
