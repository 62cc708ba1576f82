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

// Package archive provides a Postgres-backed delivery log. It records the
// outcome of each relay attempt, never the submission itself. Name, email,
// and message content stay out of storage.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// Record is one relay attempt.
type Record struct {
	ID       string // submission correlation ID (uuid)
	Interest string // interest key as submitted
	Outcome  string
	// RecaptchaScore is set only when verification actually ran.
	RecaptchaScore *float64
	CreatedAt      time.Time
}

// Store writes delivery records to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a delivery log backed by the given Postgres pool.
// It ensures the deliveries table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure delivery schema: %w", err)
	}
	slog.Info("delivery log initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS deliveries (
			id              UUID PRIMARY KEY,
			interest        TEXT DEFAULT '',
			outcome         TEXT NOT NULL,
			recaptcha_score DOUBLE PRECISION,
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_created ON deliveries(created_at);
		CREATE INDEX IF NOT EXISTS idx_deliveries_outcome ON deliveries(outcome);
	`)
	return err
}

// Record inserts one delivery record.
func (s *Store) Record(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deliveries (id, interest, outcome, recaptcha_score)
		VALUES ($1, $2, $3, $4)
	`, r.ID, r.Interest, r.Outcome, r.RecaptchaScore)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}
