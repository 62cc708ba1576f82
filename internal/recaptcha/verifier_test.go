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

package recaptcha

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestResult_Human verifies the score threshold boundary.
func TestResult_Human(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"at threshold", Result{Success: true, Score: 0.5}, true},
		{"above threshold", Result{Success: true, Score: 0.9}, true},
		{"just below threshold", Result{Success: true, Score: 0.499}, false},
		{"zero score", Result{Success: true, Score: 0}, false},
		{"failed verification", Result{Success: false, Score: 0.9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Human(); got != tt.want {
				t.Errorf("Human() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestVerify_PostsFormFields verifies the siteverify request carries the
// secret, token, and remote address.
func TestVerify_PostsFormFields(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotSecret = r.PostFormValue("secret")
		gotResponse = r.PostFormValue("response")
		gotRemoteIP = r.PostFormValue("remoteip")
		fmt.Fprint(w, `{"success": true, "score": 0.9}`)
	}))
	defer srv.Close()

	v := NewVerifier("secret-key", 2*time.Second)
	v.Endpoint = srv.URL

	result, err := v.Verify(context.Background(), "client-token", "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if gotSecret != "secret-key" || gotResponse != "client-token" || gotRemoteIP != "1.2.3.4" {
		t.Errorf("form = secret:%q response:%q remoteip:%q", gotSecret, gotResponse, gotRemoteIP)
	}
	if !result.Human() {
		t.Errorf("result = %+v, want human", result)
	}
}

// TestVerify_LowScore verifies a bot-like score fails the gate.
func TestVerify_LowScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "score": 0.1}`)
	}))
	defer srv.Close()

	v := NewVerifier("secret-key", 2*time.Second)
	v.Endpoint = srv.URL

	result, err := v.Verify(context.Background(), "token", "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Human() {
		t.Error("score 0.1 passed, want rejected")
	}
}

// TestVerify_TransportFailure verifies an unreachable endpoint surfaces an error.
func TestVerify_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connections will now be refused

	v := NewVerifier("secret-key", time.Second)
	v.Endpoint = srv.URL

	if _, err := v.Verify(context.Background(), "token", "1.2.3.4"); err == nil {
		t.Error("Verify against closed server returned nil error")
	}
}

// TestVerify_Non200 verifies unexpected status codes surface as errors.
func TestVerify_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewVerifier("secret-key", time.Second)
	v.Endpoint = srv.URL

	if _, err := v.Verify(context.Background(), "token", "1.2.3.4"); err == nil {
		t.Error("Verify with HTTP 502 returned nil error")
	}
}

// TestEnabled verifies the unconfigured verifier reports disabled.
func TestEnabled(t *testing.T) {
	if NewVerifier("", time.Second).Enabled() {
		t.Error("empty secret reports enabled")
	}
	if !NewVerifier("key", time.Second).Enabled() {
		t.Error("configured secret reports disabled")
	}
}
