package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// VerificationSubject is the subject line of every verification email.
const VerificationSubject = "Verify your email address"

var verificationTemplate = template.Must(template.New("verification").Parse(`<html>
<body>
    <h2>Welcome! Please verify your email</h2>
    <p>Thank you for registering. Please click the link below to verify your email address:</p>
    <p><a href="{{.URL}}" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; display: inline-block;">Verify Email</a></p>
    <p>Or copy and paste this link in your browser:</p>
    <p>{{.URL}}</p>
    <p>Your verification code is: <strong>{{.Code}}</strong></p>
    <p>This link will expire in {{.ExpiresIn}}.</p>
    <br>
    <p>If you did not create an account, please ignore this email.</p>
</body>
</html>
`))

// VerificationURL is the link a user follows to confirm an address.
func VerificationURL(appURL, code string) string {
	return strings.TrimRight(appURL, "/") + "/verify-email?token=" + code
}

// RenderVerification returns the HTML body carrying the verification link and code.
func RenderVerification(appURL, code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	err := verificationTemplate.Execute(&buf, struct {
		URL       string
		Code      string
		ExpiresIn string
	}{
		URL:       VerificationURL(appURL, code),
		Code:      code,
		ExpiresIn: humanizeTTL(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("render verification email: %w", err)
	}
	return buf.String(), nil
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d > time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0 && d > 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
