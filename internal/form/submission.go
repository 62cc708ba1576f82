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

// Package form defines the contact form submission and its validation rules.
package form

import "strings"

// Submission is one contact form post. It lives for the duration of a single
// request and is never persisted.
type Submission struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Company        string `json:"company"`
	Interest       string `json:"interest"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptcha_token"`
}

// Trim strips surrounding whitespace from every field.
func (s *Submission) Trim() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Company = strings.TrimSpace(s.Company)
	s.Interest = strings.TrimSpace(s.Interest)
	s.Message = strings.TrimSpace(s.Message)
	s.RecaptchaToken = strings.TrimSpace(s.RecaptchaToken)
}
