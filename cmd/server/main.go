// Copyright (c) 2026 John Earle
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

// Contact Relay
//
// Entry point for the contact form relay service. It:
//  1. Loads configuration from config.yaml / environment
//  2. Connects to Redis (rate limiting, duplicate filter) when configured
//  3. Connects to PostgreSQL (delivery log) when configured
//  4. Serves the contact form endpoint and a health check
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/anonymize-dev/contact-relay/internal/archive"
	"github.com/anonymize-dev/contact-relay/internal/config"
	"github.com/anonymize-dev/contact-relay/internal/contact"
	"github.com/anonymize-dev/contact-relay/internal/dedup"
	"github.com/anonymize-dev/contact-relay/internal/form"
	"github.com/anonymize-dev/contact-relay/internal/mailer"
	"github.com/anonymize-dev/contact-relay/internal/ratelimit"
	"github.com/anonymize-dev/contact-relay/internal/recaptcha"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting contact relay service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"rate_limit", cfg.RateLimit,
		"rate_period", cfg.RatePeriod,
		"recaptcha_enabled", cfg.RecaptchaSecret != "",
		"mail_configured", cfg.Graph.Configured(),
	)

	if !cfg.Graph.Configured() {
		// The service still boots; submissions will get a generic 500
		// until credentials arrive, matching the rest of the pipeline.
		slog.Warn("Graph credentials not configured, mail relay disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to Redis (optional) ---
	var rdb *redis.Client
	var rateStore ratelimit.Store
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)

		redisStore := ratelimit.NewRedisStore(rdb)
		if err := redisStore.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		rateStore = redisStore
		slog.Info("connected to Redis")
	} else {
		rateStore = ratelimit.NewMemoryStore()
		slog.Info("no REDIS_URL configured, using in-memory rate limiting")
	}

	// --- Connect to PostgreSQL (optional) ---
	var pgPool *pgxpool.Pool
	var deliveries *archive.Store
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}

		deliveries, err = archive.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise delivery log", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")
	}

	// --- Pipeline components ---
	limiter := ratelimit.NewLimiter(rateStore, cfg.RateLimit, cfg.RatePeriod)
	validator := form.NewValidator(cfg.SpamKeywords)
	verifier := recaptcha.NewVerifier(cfg.RecaptchaSecret, cfg.OutboundTimeout)
	m := mailer.New(mailer.Config{
		TenantID:      cfg.Graph.TenantID,
		ClientID:      cfg.Graph.ClientID,
		ClientSecret:  cfg.Graph.ClientSecret,
		Sender:        cfg.Graph.Sender,
		Recipient:     cfg.Recipient,
		SubjectPrefix: cfg.SubjectPrefix,
		Timeout:       cfg.OutboundTimeout,
	})

	handler := contact.NewHandler(limiter, validator, verifier, m, cfg.AllowedOrigin)
	handler.TrustProxy = cfg.TrustProxy
	if rdb != nil {
		handler.Duplicates = dedup.NewFilter(rdb)
	}
	if deliveries != nil {
		handler.Deliveries = deliveries
	}

	// --- HTTP Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send-message", handler.ServeSubmission)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		if pgPool != nil {
			if err := pgPool.Ping(r.Context()); err != nil {
				http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		if rdb != nil {
			rdb.Close()
		}
		if pgPool != nil {
			pgPool.Close()
		}
	}()

	slog.Info("contact relay listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("contact relay stopped")
}
