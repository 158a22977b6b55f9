/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Taxinomia Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/google/gridflow/demo"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (default: bundled demo grids)")
	verbosity := flag.Int("v", -1, "log verbosity, overrides log_level of the configuration")
	flag.Parse()

	cfg, err := demo.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridflow: %v\n", err)
		os.Exit(1)
	}
	if *verbosity >= 0 {
		cfg.LogLevel = *verbosity
	}

	log, sync, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridflow: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer sync()
	setupLog := log.WithName("setup")

	s, err := demo.SetupDemoServer(cfg, log.WithName("server"))
	if err != nil {
		setupLog.Error(err, "failed to set up grids")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           demo.NewHandler(s, log.WithName("http")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	setupLog.Info("server starting", "addr", "http://"+cfg.Addr, "grids", len(cfg.Grids))
	if err := srv.ListenAndServe(); err != nil {
		setupLog.Error(err, "server stopped")
		os.Exit(1)
	}
}

// newLogger builds a zap backed logr logger. logr verbosity V(n) maps to zap
// level -n, so LogLevel n enables V(0) through V(n).
func newLogger(cfg *demo.Config) (logr.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-cfg.LogLevel))
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}
