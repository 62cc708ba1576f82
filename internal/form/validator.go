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

package form

import (
	"regexp"
	"strings"
)

// emailPattern is a superficial address check; real validation happens when
// the reply bounces.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator checks submissions for missing fields and spam markers.
type Validator struct {
	spamPatterns []*regexp.Regexp
}

// NewValidator builds a validator with the given spam keyword list. The
// keywords become a single word-boundary alternation; the remaining patterns
// catch forum link markup, raw anchor tags, and multi-URL payloads.
func NewValidator(spamKeywords []string) *Validator {
	var patterns []*regexp.Regexp

	if len(spamKeywords) > 0 {
		quoted := make([]string, len(spamKeywords))
		for i, kw := range spamKeywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		patterns = append(patterns,
			regexp.MustCompile(`(?i)\b(`+strings.Join(quoted, "|")+`)\b`))
	}

	patterns = append(patterns,
		regexp.MustCompile(`(?i)\[url=`),
		regexp.MustCompile(`(?i)<a\s+href`),
		regexp.MustCompile(`(?i)https?://\S+\s+https?://`),
	)

	return &Validator{spamPatterns: patterns}
}

// Validate returns the list of problems with a submission, empty when it is
// acceptable. Field errors accumulate; the spam check runs afterwards and
// contributes at most one error, stopping at the first pattern that matches
// either the message or the name.
func (v *Validator) Validate(s *Submission) []string {
	var errs []string

	if s.Name == "" {
		errs = append(errs, "Name is required")
	}
	if s.Email == "" || !emailPattern.MatchString(s.Email) {
		errs = append(errs, "Valid email is required")
	}
	if s.Message == "" {
		errs = append(errs, "Message is required")
	}

	for _, p := range v.spamPatterns {
		if p.MatchString(s.Message) || p.MatchString(s.Name) {
			errs = append(errs, "Message flagged as spam")
			break
		}
	}

	return errs
}
