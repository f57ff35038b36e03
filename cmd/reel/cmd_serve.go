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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/reel/internal/log"
	"github.com/teradata-labs/reel/pkg/handle"
	"github.com/teradata-labs/reel/pkg/server"
	"github.com/teradata-labs/reel/pkg/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reel daemon",
	Long: `Start the reel HTTP daemon.

The daemon will:
- Open the media store (filesystem or in-memory)
- Materialize handles on demand through the reference-counted cache
- Serve media, leases, stats, and a deletion event stream over HTTP
- Watch the blob directory and revoke handles for removed media

Press Ctrl+C to gracefully shutdown.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildLogger constructs the process logger from logging configuration
// (stack traces only for ERROR level).
func buildLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	// Parse and set log level from config
	logLevel := zap.InfoLevel // default
	if cfg.Level != "" {
		if err := logLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level %q, using INFO: %v\n", cfg.Level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(logLevel)

	if cfg.Format == "text" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	// Configure log output file if specified
	if cfg.File != "" {
		zapConfig.OutputPaths = []string{cfg.File}
		zapConfig.ErrorOutputPaths = []string{cfg.File}
	}

	return zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
}

func runServe(cmd *cobra.Command, args []string) {
	// Validate configuration
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(config.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log.SetLogger(logger)

	logger.Info("Starting reel daemon", zap.String("version", rootCmd.Version))

	// Show actual config file used (not just the --config flag)
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		logger.Info("Config file loaded", zap.String("path", configFileUsed))
	} else {
		logger.Info("No config file found", zap.String("searched", "$REEL_DATA_DIR/reel.yaml, ./reel.yaml, /etc/reel/reel.yaml"))
		logger.Info("Using defaults + environment variables")
	}

	// Open the media store
	var st store.Store
	var fsStore *store.FSStore
	if config.Store.InMemory {
		logger.Warn("In-memory store configured, media will not survive restarts")
		st = store.NewMemStore()
	} else {
		fsStore, err = store.NewFSStore(config.Store.Dir, logger)
		if err != nil {
			logger.Fatal("Failed to open media store", zap.String("dir", config.Store.Dir), zap.Error(err))
		}
		st = fsStore
		logger.Info("Media store opened", zap.String("dir", config.Store.Dir))
	}

	// Create the handle cache
	cache, err := handle.New(st, handle.Config{
		Capacity:       config.Cache.Capacity,
		MaxAttempts:    config.Cache.MaxAttempts,
		BaseDelay:      time.Duration(config.Cache.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(config.Cache.MaxDelayMs) * time.Millisecond,
		ScratchDir:     config.Cache.ScratchDir,
		RetainReleased: config.Cache.RetainReleased,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create handle cache", zap.Error(err))
	}

	// Watch the blob directory so out-of-band removals revoke cached
	// handles, leased or not
	var watcher *store.Watcher
	if fsStore != nil && config.Store.Watch {
		watcher, err = store.NewWatcher(fsStore, store.WatcherConfig{
			DebounceMs: config.Store.WatchDebounceMs,
			Logger:     logger,
			OnRemove: func(id string) {
				cache.InvalidateSpecific(id)
			},
		})
		if err != nil {
			logger.Warn("Blob watcher unavailable, out-of-band removals will not revoke handles", zap.Error(err))
		} else if err := watcher.Start(context.Background()); err != nil {
			logger.Warn("Failed to start blob watcher", zap.Error(err))
			_ = watcher.Stop()
			watcher = nil
		} else {
			logger.Info("Blob watcher started", zap.String("dir", fsStore.BlobDir()))
		}
	}

	srv := server.New(st, cache, server.Config{
		Addr:           config.Server.Addr,
		CORS:           corsConfig(config.Server.CORS),
		LeaseTTL:       time.Duration(config.Server.LeaseTTLSeconds) * time.Second,
		ReapInterval:   time.Duration(config.Server.ReapIntervalSeconds) * time.Second,
		MaxUploadBytes: config.Server.MaxUploadMB << 20,
	}, logger)

	// Handle graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
		<-sigch
		logger.Info("Shutting down gracefully... (press Ctrl+C again to force)")

		// Start a goroutine to listen for second Ctrl+C (force shutdown)
		go func() {
			<-sigch
			logger.Warn("Force shutdown requested")
			os.Exit(1)
		}()

		// Stop the HTTP server first so no new leases are granted; Stop
		// also releases every outstanding grant
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("Error stopping HTTP server", zap.Error(err))
		} else {
			logger.Info("HTTP server stopped")
		}

		// Stop the blob watcher
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				logger.Warn("Error stopping blob watcher", zap.Error(err))
			} else {
				logger.Info("Blob watcher stopped")
			}
		}

		// Close the cache, revoking every remaining handle
		if err := cache.Close(); err != nil {
			logger.Warn("Error closing handle cache", zap.Error(err))
		} else {
			logger.Info("Handle cache closed")
		}

		// Close the store
		if err := st.Close(); err != nil {
			logger.Warn("Error closing media store", zap.Error(err))
		} else {
			logger.Info("Media store closed")
		}

		logger.Info("Shutdown complete")
	}()

	logger.Info("Ready to serve media",
		zap.String("addr", config.Server.Addr),
		zap.String("media_endpoint", fmt.Sprintf("http://%s/v1/media", config.Server.Addr)),
		zap.String("events_endpoint", fmt.Sprintf("http://%s/v1/events", config.Server.Addr)))

	if err := srv.Start(); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	<-shutdownDone
}

// corsConfig converts file-level CORS settings to the server package type.
func corsConfig(c CORSConfig) server.CORSConfig {
	return server.CORSConfig{
		Enabled:          c.Enabled,
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}
