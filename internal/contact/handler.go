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

// Package contact handles contact form submissions. The pipeline is
// strictly linear: rate limit, parse, validate, verify the bot score,
// acquire a Graph token, send the mail. The first failing step answers
// the request; later steps never run. Upstream failure detail goes to
// the log, clients only ever see generic messages.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anonymize-dev/contact-relay/internal/archive"
	"github.com/anonymize-dev/contact-relay/internal/form"
	"github.com/anonymize-dev/contact-relay/internal/mailer"
	"github.com/anonymize-dev/contact-relay/internal/ratelimit"
	"github.com/anonymize-dev/contact-relay/internal/recaptcha"
)

// maxBodyBytes caps the request body; a contact form fits comfortably.
const maxBodyBytes = 1 << 16

// DuplicateFilter suppresses repeat sends for an idempotency key.
type DuplicateFilter interface {
	FirstUse(ctx context.Context, key string) (bool, error)
}

// DeliveryLog records relay outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, r archive.Record) error
}

// Handler processes contact form submissions.
type Handler struct {
	limiter   *ratelimit.Limiter
	validator *form.Validator
	verifier  *recaptcha.Verifier
	mailer    *mailer.Mailer
	origin    string

	// Optional collaborators; nil disables the feature.
	Duplicates DuplicateFilter
	Deliveries DeliveryLog

	// TrustProxy enables X-Forwarded-For client identification. Leave it
	// off unless a trusted reverse proxy fronts the service.
	TrustProxy bool
}

// NewHandler creates a contact form handler.
func NewHandler(
	limiter *ratelimit.Limiter,
	validator *form.Validator,
	verifier *recaptcha.Verifier,
	m *mailer.Mailer,
	origin string,
) *Handler {
	return &Handler{
		limiter:   limiter,
		validator: validator,
		verifier:  verifier,
		mailer:    m,
		origin:    origin,
	}
}

type response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ServeSubmission handles a contact form request.
func (h *Handler) ServeSubmission(w http.ResponseWriter, r *http.Request) {
	h.writeCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Error: "Method not allowed"})
		return
	}

	ctx := r.Context()
	client := h.clientKey(r)

	if !h.limiter.Allow(ctx, client) {
		slog.Info("rate limited", "client", client)
		writeJSON(w, http.StatusTooManyRequests, response{Error: "Too many requests. Please wait a minute."})
		return
	}

	var sub form.Submission
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "Invalid request data"})
		return
	}
	sub.Trim()

	if errs := h.validator.Validate(&sub); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, response{Errors: errs})
		return
	}

	// Bot-score gate. No token or no secret key skips verification; the
	// form still works when reCAPTCHA is down or unconfigured. When both
	// are present, a verifier we cannot reach fails closed: admitting
	// unverifiable traffic would defeat the gate.
	var score *float64
	if sub.RecaptchaToken != "" && h.verifier.Enabled() {
		result, err := h.verifier.Verify(ctx, sub.RecaptchaToken, client)
		if err != nil {
			slog.Error("recaptcha verification unavailable", "client", client, "error", err)
			writeJSON(w, http.StatusForbidden, response{Error: "Security verification failed. Please try again."})
			return
		}
		if !result.Human() {
			slog.Info("recaptcha rejected submission",
				"client", client,
				"success", result.Success,
				"score", result.Score,
			)
			writeJSON(w, http.StatusForbidden, response{Error: "Security verification failed. Please try again."})
			return
		}
		score = &result.Score
	}

	id := uuid.New().String()

	if key := r.Header.Get("X-Idempotency-Key"); key != "" && h.Duplicates != nil {
		fresh, err := h.Duplicates.FirstUse(ctx, key)
		if err != nil {
			slog.Warn("duplicate filter unavailable, proceeding", "error", err)
		} else if !fresh {
			slog.Info("duplicate submission suppressed", "submission", id, "idempotency_key", key)
			h.record(r, id, sub.Interest, archive.OutcomeDuplicate, score)
			writeJSON(w, http.StatusOK, response{Success: true, Message: "Message sent successfully"})
			return
		}
	}

	if !h.mailer.Configured() {
		slog.Error("graph credentials not configured", "submission", id)
		writeJSON(w, http.StatusInternalServerError, response{Error: "Email service not configured"})
		return
	}

	token, err := h.mailer.AcquireToken(ctx)
	if err != nil {
		slog.Error("token acquisition failed", "submission", id, "error", err)
		h.record(r, id, sub.Interest, archive.OutcomeFailed, score)
		msg := "Email service temporarily unavailable"
		if errors.Is(err, mailer.ErrTokenRejected) {
			msg = "Email service authentication failed"
		}
		writeJSON(w, http.StatusInternalServerError, response{Error: msg})
		return
	}

	if err := h.mailer.Send(ctx, token, &sub, client); err != nil {
		slog.Error("mail relay failed", "submission", id, "error", err)
		h.record(r, id, sub.Interest, archive.OutcomeFailed, score)
		writeJSON(w, http.StatusInternalServerError, response{Error: "Failed to send message. Please try again."})
		return
	}

	slog.Info("contact message relayed",
		"submission", id,
		"interest", sub.Interest,
		"client", client,
	)
	h.record(r, id, sub.Interest, archive.OutcomeDelivered, score)

	writeJSON(w, http.StatusOK, response{Success: true, Message: "Message sent successfully"})
}

// record writes a delivery log entry. Log failures never fail the request.
func (h *Handler) record(r *http.Request, id, interest, outcome string, score *float64) {
	if h.Deliveries == nil {
		return
	}
	rec := archive.Record{
		ID:             id,
		Interest:       interest,
		Outcome:        outcome,
		RecaptchaScore: score,
	}
	if err := h.Deliveries.Record(r.Context(), rec); err != nil {
		slog.Warn("delivery log write failed", "submission", id, "error", err)
	}
}

func (h *Handler) writeCORS(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", h.origin)
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

// clientKey identifies the client for rate limiting and verification. The
// socket address is authoritative. X-Forwarded-For is client-writable, so it
// counts only behind a trusted reverse proxy, and then only the last hop,
// the one that proxy itself appended.
func (h *Handler) clientKey(r *http.Request) string {
	if h.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			hops := strings.Split(fwd, ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
