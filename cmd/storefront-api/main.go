// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
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

// Package main runs the storefront API: catalog browsing with visit-adjusted
// prices.
//
// Every product page view records one visit for the viewer and prices the
// product at base + visits*increment. Signed-in viewers (HS256 bearer token,
// subject = user id) are counted in the durable store selected by -store;
// guests are counted in a cookie held by their browser.
//
// Try it:
//
//	go run ./cmd/storefront-api -log_level=debug
//	curl -c jar -b jar localhost:8080/products/running-shoes
//
// Repeat the curl and watch display_price climb by 0.50 per view.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/api"
	"github.com/Shakthi-16/ecom-project/internal/visits/audit"
	"github.com/Shakthi-16/ecom-project/internal/visits/catalog"
	"github.com/Shakthi-16/ecom-project/internal/visits/core"
	"github.com/Shakthi-16/ecom-project/internal/visits/persistence"
	"github.com/Shakthi-16/ecom-project/internal/visits/telemetry"
)

func main() {
	envFile := envFileArg(os.Args[1:], ".env")
	cfg, err := loadEnv(envFile)
	if err != nil {
		logrus.WithError(err).Fatal("load environment")
	}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.String("env_file", envFile, "dotenv file with defaults for every flag")
	bindFlags(fs, &cfg)
	_ = fs.Parse(os.Args[1:])

	log := newLogger(cfg)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("storefront-api stopped")
	}
}

// envFileArg finds -env_file ahead of flag parsing, since the file supplies the
// flag defaults.
func envFileArg(args []string, def string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "env_file" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return def
}

func newLogger(cfg envConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func run(cfg envConfig, log *logrus.Logger) error {
	recordSettings(cfg)

	telemetry.Enable(telemetry.Config{
		Enabled:     cfg.Telemetry,
		MetricsAddr: cfg.MetricsAddr,
		LogInterval: cfg.LogInterval,
		TopN:        cfg.TopN,
		Logger:      log,
	})
	defer telemetry.Enable(telemetry.Config{Enabled: false})

	pricer, err := ecom.NewPricer(cfg.PriceIncrement)
	if err != nil {
		return err
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}

	// 1. Durable visit store for signed-in viewers.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := persistence.BuildStore(ctx, cfg.Store, persistence.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		PostgresDSN:   cfg.PostgresDSN,
		SQLitePath:    cfg.SQLitePath,
		LibSQLURL:     cfg.LibSQLURL,
		LibSQLToken:   cfg.LibSQLToken,
		Timeout:       cfg.StoreTimeout,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("build %s store: %w", cfg.Store, err)
	}
	defer store.Close()

	// 2. Tracker: counter + pricer, with the optional audit log.
	counter := core.NewCounter(store, core.WithStoreTimeout(cfg.StoreTimeout), core.WithLogger(log))
	trackerOpts := []core.TrackerOption{core.WithTrackerLogger(log)}
	if cfg.AuditLog != "" {
		sink, err := audit.NewFileSink(cfg.AuditLog, audit.WithLogger(log))
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.WithError(err).Error("close audit log")
			}
			if n := sink.Failed(); n > 0 {
				log.WithFields(logrus.Fields{"path": sink.Path(), "failed": n}).Warn("audit events lost")
			}
		}()
		trackerOpts = append(trackerOpts, core.WithAuditLog(sink))
	}
	tracker := core.NewTracker(counter, pricer, trackerOpts...)

	// 3. HTTP server.
	if cfg.JWTSecret == "" {
		log.Warn("no jwt secret configured; every viewer is a guest")
	}
	srv := api.NewServer(tracker, cat, api.Config{
		JWTSecret:     []byte(cfg.JWTSecret),
		SecureCookies: cfg.SecureCookies,
		ExposeMetrics: cfg.Telemetry && cfg.MetricsAddr == "",
		Logger:        log,
	})
	httpServer := srv.HTTPServer(cfg.HTTPAddr)

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.HTTPAddr,
			"store":    cfg.Store,
			"products": cat.Len(),
		}).Info("storefront API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	// 4. Graceful shutdown on signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	case <-stop:
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	core.PrintSummary(log)
	log.Info("server gracefully stopped")
	return nil
}

// recordSettings captures the effective configuration for the final summary.
// Secrets are recorded only as set/unset.
func recordSettings(cfg envConfig) {
	core.SetSetting("http_addr", cfg.HTTPAddr)
	core.SetSetting("store", cfg.Store)
	core.SetSettingDuration("store_timeout", cfg.StoreTimeout)
	core.SetSettingFloat64("price_increment", cfg.PriceIncrement)
	core.SetSetting("catalog", cfg.CatalogFile)
	core.SetSetting("audit_log", cfg.AuditLog)
	core.SetSettingBool("jwt_secret_set", cfg.JWTSecret != "")
	core.SetSettingBool("telemetry", cfg.Telemetry)
	core.SetSetting("metrics_addr", cfg.MetricsAddr)
	core.SetSettingDuration("top_log_interval", cfg.LogInterval)
	core.SetSettingInt64("top_n", int64(cfg.TopN))
}
