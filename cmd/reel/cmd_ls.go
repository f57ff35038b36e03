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
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored media",
	Long:  `List all resources in the media store, newest first.`,
	Run:   runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) {
	st := openStore()
	defer func() { _ = st.Close() }()

	descs, err := st.List(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing media: %v\n", err)
		os.Exit(1)
	}

	if len(descs) == 0 {
		fmt.Println("No media stored")
		return
	}

	// Print table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tADDED")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, d := range descs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.Name,
			d.MIME,
			humanize.Bytes(uint64(d.Size)),
			humanize.Time(d.CreatedAt),
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d resource(s)\n", len(descs))
}
