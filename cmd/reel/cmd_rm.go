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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/reel/pkg/store"
)

var rmCmd = &cobra.Command{
	Use:   "rm [id]...",
	Short: "Remove media from the store",
	Long: `Remove one or more resources from the media store by id.

Removal is durable and immediate. A running reel daemon notices the blob
disappearing through its store watcher and revokes any handles it still
has cached for the resource, including leased ones.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) {
	st := openStore()
	defer func() { _ = st.Close() }()

	failed := 0
	for _, id := range args {
		if err := st.Delete(cmd.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "Not found: %s\n", id)
			} else {
				fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", id, err)
			}
			failed++
			continue
		}
		fmt.Printf("Removed %s\n", id)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
