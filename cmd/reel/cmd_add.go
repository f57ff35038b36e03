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
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/reel/internal/log"
	"github.com/teradata-labs/reel/pkg/store"
	"golang.org/x/sync/errgroup"
)

var addCmd = &cobra.Command{
	Use:   "add [file]...",
	Short: "Ingest files into the media store",
	Long: `Ingest one or more files into the media store.

Each file is compressed, content-addressed, and indexed under a new opaque
id. Files are ingested in parallel; if any file fails, nothing is printed
for it and the command exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

var addConcurrency int

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().IntVar(&addConcurrency, "concurrency", 4, "number of files ingested in parallel")
}

func runAdd(cmd *cobra.Command, args []string) {
	st := openStore()
	defer func() { _ = st.Close() }()

	descs := make([]store.Descriptor, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(addConcurrency)

	for i, path := range args {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			desc, err := st.Put(ctx, filepath.Base(path), detectMIME(path, data), data)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			descs[i] = desc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, d := range descs {
		fmt.Printf("%s  %s  %s  %s\n", d.ID, d.Name, d.MIME, humanize.Bytes(uint64(d.Size)))
	}
}

// detectMIME resolves a content type from the file extension, falling back
// to content sniffing.
func detectMIME(path string, data []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return http.DetectContentType(data)
}

// openStore opens the configured filesystem store or exits.
func openStore() *store.FSStore {
	st, err := store.NewFSStore(config.Store.Dir, log.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store at %s: %v\n", config.Store.Dir, err)
		os.Exit(1)
	}
	return st
}
