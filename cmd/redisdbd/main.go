/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command redisdbd runs the RESP server: it loads configuration, opens the
// storage engine, and wires the dispatch, server, expiry and metrics
// packages together.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/config"
	"github.com/redisdb/redisdb/dispatch"
	"github.com/redisdb/redisdb/expiry"
	"github.com/redisdb/redisdb/logging"
	"github.com/redisdb/redisdb/metrics"
	"github.com/redisdb/redisdb/redis"
	"github.com/redisdb/redisdb/server"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "redisdbd",
		Short: "redisdbd serves a Redis-compatible wire protocol over an embedded LSM store",
		RunE:  run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func indexerType(name string) redisdb.IndexerType {
	switch name {
	case "art":
		return redisdb.ART
	case "bptree":
		return redisdb.BPlusTree
	default:
		return redisdb.BTree
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	engineOpts := redisdb.Options{
		DirectoryPath:      cfg.Engine.DataDirectory,
		DataFileSize:       cfg.Engine.DataFileSize,
		SyncWrites:         cfg.Engine.SyncWrites,
		BytesPerSync:       redisdb.DefaultOptions.BytesPerSync,
		IndexType:          indexerType(cfg.Engine.IndexType),
		MMapAtStartUp:      cfg.Engine.MMapAtStartup,
		DataFileMergeRatio: cfg.Engine.MergeRatio,
	}

	rds, err := redis.NewRedisDataStructure(engineOpts)
	if err != nil {
		return fmt.Errorf("opening storage engine: %w", err)
	}
	defer func() {
		if err := rds.Close(); err != nil {
			log.Error().Err(err).Msg("closing storage engine")
		}
	}()

	redis.RetryLimit = cfg.Txn.RetryLimit

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.New()
		go registry.WatchEngineStat(ctx, rds.Facade().Underlying(), cfg.SweepInterval())
		go func() {
			if err := registry.ListenAndServe(ctx, cfg.Metrics.Address); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
		log.Info().Str("address", cfg.Metrics.Address).Msg("metrics endpoint listening")
	}

	sweeperOpts := expiry.SweeperOptions{
		Interval:               cfg.SweepInterval(),
		BatchSize:              cfg.Sweeper.BatchSize,
		StaleVersionSampleSize: cfg.Sweeper.StaleVersionSampleSize,
	}
	sweeper := expiry.NewSweeper(rds.Facade(), sweeperOpts, log)
	if registry != nil {
		sweeper.OnTick = registry.ObserveSweep
	}
	go sweeper.Run(ctx)

	dispatcher := dispatch.New(rds, dispatch.Options{
		WorkerPoolSize: cfg.Server.WorkerPoolSize,
		ScanChunkSize:  cfg.Server.ScanChunkSize,
	})

	srv := server.New(dispatcher, registry, log, server.Options{Address: cfg.Server.Address})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}
