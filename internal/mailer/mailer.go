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

// Package mailer relays contact submissions as HTML email through the
// Microsoft Graph API. Each send acquires a fresh token via the OAuth2
// client-credentials grant and makes a single attempt. This is best-effort
// contact-form delivery, not guaranteed delivery.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/anonymize-dev/contact-relay/internal/form"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	tokenURLFormat      = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope          = "https://graph.microsoft.com/.default"
)

// Failure categories. The HTTP handler maps these to generic client messages;
// the wrapped detail is for server logs only.
var (
	// ErrNotConfigured means Graph credentials are missing.
	ErrNotConfigured = errors.New("mail service not configured")
	// ErrTokenUnavailable means the token endpoint could not be reached.
	ErrTokenUnavailable = errors.New("token endpoint unreachable")
	// ErrTokenRejected means the token endpoint answered without a usable token.
	ErrTokenRejected = errors.New("token request rejected")
	// ErrSendFailed means the sendMail call did not return 2xx.
	ErrSendFailed = errors.New("send request failed")
)

// Config holds the settings for a Mailer. TokenURL and GraphBaseURL override
// the Microsoft endpoints, for tests.
type Config struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	Sender        string
	Recipient     string
	SubjectPrefix string
	Timeout       time.Duration

	TokenURL     string
	GraphBaseURL string
}

// Mailer sends contact submissions through the Graph API.
type Mailer struct {
	creds         *clientcredentials.Config // nil when unconfigured
	httpClient    *http.Client
	graphBaseURL  string
	sender        string
	recipient     string
	subjectPrefix string
}

// New creates a Mailer. Missing credentials yield an unconfigured Mailer
// whose AcquireToken returns ErrNotConfigured; the service still boots so
// the rest of the pipeline stays observable.
func New(cfg Config) *Mailer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	m := &Mailer{
		httpClient:    &http.Client{Timeout: timeout},
		graphBaseURL:  cfg.GraphBaseURL,
		sender:        cfg.Sender,
		recipient:     cfg.Recipient,
		subjectPrefix: cfg.SubjectPrefix,
	}
	if m.graphBaseURL == "" {
		m.graphBaseURL = defaultGraphBaseURL
	}

	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.Sender != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf(tokenURLFormat, cfg.TenantID)
		}
		m.creds = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
		}
	}

	return m
}

// Configured reports whether Graph credentials are present.
func (m *Mailer) Configured() bool {
	return m.creds != nil
}

// AcquireToken performs the client-credentials grant and returns a bearer
// token. One attempt, no caching; each submission exchanges credentials
// fresh.
func (m *Mailer) AcquireToken(ctx context.Context) (string, error) {
	if m.creds == nil {
		return "", ErrNotConfigured
	}

	// Route the grant through our bounded-timeout client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.creds.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		var urlErr *url.Error
		switch {
		case errors.As(err, &retrieveErr):
			return "", fmt.Errorf("%w: token endpoint returned HTTP %d",
				ErrTokenRejected, retrieveErr.Response.StatusCode)
		case errors.As(err, &urlErr):
			return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
		default:
			// Reachable endpoint, parseable response, no usable access_token.
			return "", fmt.Errorf("%w: %v", ErrTokenRejected, err)
		}
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: response missing access_token", ErrTokenRejected)
	}

	return tok.AccessToken, nil
}

// Send relays one submission to the fixed recipient. Only a 2xx response
// counts as delivered; anything else is ErrSendFailed. There is no
// idempotency at this layer, so a retried request sends again.
func (m *Mailer) Send(ctx context.Context, token string, sub *form.Submission, clientIP string) error {
	body, err := renderBody(sub, clientIP, time.Now())
	if err != nil {
		return err
	}

	payload := sendMailRequest{
		Message: graphMessage{
			Subject: fmt.Sprintf("%s New contact: %s", m.subjectPrefix, InterestLabel(sub.Interest)),
			Body: graphBody{
				ContentType: "HTML",
				Content:     body,
			},
			ToRecipients: []graphRecipient{
				{EmailAddress: graphAddress{Address: m.recipient}},
			},
			ReplyTo: []graphRecipient{
				{EmailAddress: graphAddress{Address: sub.Email, Name: sub.Name}},
			},
		},
		SaveToSentItems: false,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMail payload: %w", err)
	}

	sendURL := fmt.Sprintf("%s/users/%s/sendMail", m.graphBaseURL, url.PathEscape(m.sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build sendMail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: graph API returned HTTP %d", ErrSendFailed, resp.StatusCode)
	}

	return nil
}
