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

package main

import (
	"errors"
	"flag"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// envConfig holds environment-provided defaults. Flags override every field.
type envConfig struct {
	HTTPAddr       string        `env:"STOREFRONT_HTTP_ADDR,default=:8080"`
	Store          string        `env:"STOREFRONT_STORE,default=memory"`
	StoreTimeout   time.Duration `env:"STOREFRONT_STORE_TIMEOUT,default=2s"`
	PriceIncrement float64       `env:"STOREFRONT_PRICE_INCREMENT,default=0.5"`
	CatalogFile    string        `env:"STOREFRONT_CATALOG"`
	AuditLog       string        `env:"STOREFRONT_AUDIT_LOG"`
	JWTSecret      string        `env:"STOREFRONT_JWT_SECRET"`
	SecureCookies  bool          `env:"STOREFRONT_SECURE_COOKIES,default=false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	PostgresDSN   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH,default=data/visits.db"`
	LibSQLURL     string `env:"LIBSQL_URL"`
	LibSQLToken   string `env:"LIBSQL_AUTH_TOKEN"`

	Telemetry   bool          `env:"STOREFRONT_TELEMETRY,default=false"`
	MetricsAddr string        `env:"STOREFRONT_METRICS_ADDR"`
	LogInterval time.Duration `env:"STOREFRONT_TOP_LOG_INTERVAL,default=0s"`
	TopN        int           `env:"STOREFRONT_TOP_N,default=10"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
	LogJSON     bool          `env:"LOG_JSON,default=false"`
}

// loadEnv reads envFile into the process environment when it exists and
// decodes the result. Variables already set win over the file.
func loadEnv(envFile string) (envConfig, error) {
	var cfg envConfig
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, err
	}
	return cfg, nil
}

// bindFlags registers every knob on fs using env as defaults.
func bindFlags(fs *flag.FlagSet, env *envConfig) {
	fs.StringVar(&env.HTTPAddr, "http_addr", env.HTTPAddr, "HTTP listen address (e.g., :8080)")
	fs.StringVar(&env.Store, "store", env.Store, "Visit store adapter: memory, redis, postgres, sqlite, libsql")
	fs.DurationVar(&env.StoreTimeout, "store_timeout", env.StoreTimeout, "Bound on each durable store round trip; a timed-out view prices at 0 visits")
	fs.Float64Var(&env.PriceIncrement, "price_increment", env.PriceIncrement, "Price increase per recorded visit (0 uses the default of 0.5)")
	fs.StringVar(&env.CatalogFile, "catalog", env.CatalogFile, "YAML catalog seed; empty uses the built-in catalog")
	fs.StringVar(&env.AuditLog, "audit_log", env.AuditLog, "If non-empty, append recorded visits to this JSONL file")
	fs.StringVar(&env.JWTSecret, "jwt_secret", env.JWTSecret, "HS256 secret for bearer tokens; empty serves guests only")
	fs.BoolVar(&env.SecureCookies, "secure_cookies", env.SecureCookies, "Mark guest cookies Secure (HTTPS only)")

	fs.StringVar(&env.RedisAddr, "redis_addr", env.RedisAddr, "Redis address for -store=redis")
	fs.StringVar(&env.RedisPassword, "redis_password", env.RedisPassword, "Redis password")
	fs.IntVar(&env.RedisDB, "redis_db", env.RedisDB, "Redis DB number")
	fs.StringVar(&env.PostgresDSN, "pg_dsn", env.PostgresDSN, "Postgres DSN for -store=postgres")
	fs.StringVar(&env.SQLitePath, "sqlite_path", env.SQLitePath, "SQLite file for -store=sqlite")
	fs.StringVar(&env.LibSQLURL, "libsql_url", env.LibSQLURL, "libSQL/Turso URL for -store=libsql")
	fs.StringVar(&env.LibSQLToken, "libsql_token", env.LibSQLToken, "libSQL auth token")

	fs.BoolVar(&env.Telemetry, "telemetry", env.Telemetry, "Enable Prometheus telemetry (also mounts /metrics on the API)")
	fs.StringVar(&env.MetricsAddr, "metrics_addr", env.MetricsAddr, "If non-empty, expose /metrics on a dedicated address (e.g., :9090)")
	fs.DurationVar(&env.LogInterval, "top_log_interval", env.LogInterval, "If > 0, periodically log the most viewed items")
	fs.IntVar(&env.TopN, "top_n", env.TopN, "Items to include in the periodic top-items log")
	fs.StringVar(&env.LogLevel, "log_level", env.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&env.LogJSON, "log_json", env.LogJSON, "Emit JSON logs")
}
