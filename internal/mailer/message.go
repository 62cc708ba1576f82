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

package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/anonymize-dev/contact-relay/internal/form"
)

// interestLabels maps form interest keys to human-readable labels for the
// mail subject. Unknown keys fall back to "Not specified".
var interestLabels = map[string]string{
	"sales":      "Sales Inquiry",
	"mcp":        "MCP Server Integration",
	"api":        "API Access",
	"desktop":    "Desktop App",
	"enterprise": "Enterprise Solution",
	"support":    "Technical Support",
	"other":      "General Inquiry",
}

// InterestLabel resolves an interest key to its label.
func InterestLabel(key string) string {
	if label, ok := interestLabels[key]; ok {
		return label
	}
	return "Not specified"
}

// Graph sendMail request structure, per
// https://learn.microsoft.com/graph/api/user-sendmail
type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         graphBody        `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
	ReplyTo      []graphRecipient `json:"replyTo"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// bodyData feeds the HTML body template. All string fields pass through
// html/template's contextual escaping, so user input cannot inject markup.
type bodyData struct {
	Name          string
	Email         string
	Company       string
	InterestLabel string
	Message       string
	ClientIP      string
	Time          string
}

var bodyTemplate = template.Must(template.New("mail").Parse(`<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0a0a0f; color: #e5e5e5; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; background: #12121a; border: 1px solid #1e1e2e; border-radius: 8px; padding: 24px; }
h1 { color: #00ffff; font-size: 20px; margin-bottom: 20px; }
.field { margin-bottom: 16px; }
.label { color: #6b7280; font-size: 12px; text-transform: uppercase; letter-spacing: 0.05em; }
.value { color: #e5e5e5; margin-top: 4px; }
.message { background: #1e1e2e; padding: 16px; border-radius: 4px; margin-top: 20px; }
.footer { margin-top: 24px; padding-top: 16px; border-top: 1px solid #1e1e2e; color: #6b7280; font-size: 12px; }
</style>
</head>
<body>
<div class='container'>
<h1>New Contact Form Submission</h1>

<div class='field'>
<div class='label'>Name</div>
<div class='value'>{{.Name}}</div>
</div>

<div class='field'>
<div class='label'>Email</div>
<div class='value'><a href='mailto:{{.Email}}' style='color: #00ffff;'>{{.Email}}</a></div>
</div>

<div class='field'>
<div class='label'>Company</div>
<div class='value'>{{.Company}}</div>
</div>

<div class='field'>
<div class='label'>Interest</div>
<div class='value' style='color: #00ff41;'>{{.InterestLabel}}</div>
</div>

<div class='message'>
<div class='label'>Message</div>
<div class='value' style='white-space: pre-wrap;'>{{.Message}}</div>
</div>

<div class='footer'>
Sent from anonymize.dev contact form<br>
IP: {{.ClientIP}}<br>
Time: {{.Time}}
</div>
</div>
</body>
</html>
`))

// renderBody produces the HTML mail body for a submission.
func renderBody(sub *form.Submission, clientIP string, now time.Time) (string, error) {
	company := sub.Company
	if company == "" {
		company = "Not provided"
	}

	data := bodyData{
		Name:          sub.Name,
		Email:         sub.Email,
		Company:       company,
		InterestLabel: InterestLabel(sub.Interest),
		Message:       sub.Message,
		ClientIP:      clientIP,
		Time:          now.Format("2006-01-02 15:04:05 MST"),
	}

	var b strings.Builder
	if err := bodyTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return b.String(), nil
}
