// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The batch command solves the datasets of a YAML configuration with every configured
// formulation and stores the makespans and runtimes in a SQLite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	log "github.com/golang/glog"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/batch"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/results"
)

var (
	configPath = flag.String("config", "", "YAML batch configuration; the built-in defaults when empty")
	dbPath     = flag.String("db", "", "SQLite results database; overrides the configuration's database")
)

func run(ctx context.Context) error {
	cfg, err := batch.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	store, err := results.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := batch.NewRunner(store).Run(ctx, cfg)
	if report != nil {
		fmt.Println(report)
	}
	return err
}

func main() {
	flag.Parse()
	defer log.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx); err != nil {
		log.Exitf("batch run failed: %v", err)
	}
}
