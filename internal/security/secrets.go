// Package security flags and redacts credentials in chunk text before
// it leaves the process for embedding or storage.
package security

import (
	"regexp"
	"strings"
)

// Finding is one detected secret.
type Finding struct {
	Type     string `json:"type"`
	Line     int    `json:"line"`
	StartPos int    `json:"start_pos"`
	EndPos   int    `json:"end_pos"`
}

type secretRule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// Detector scans text against an ordered secret rule table.
type Detector struct {
	rules        []secretRule
	placeholders []string
}

// NewDetector creates a detector with the default rule table.
func NewDetector() *Detector {
	return &Detector{
		rules: []secretRule{
			{
				name:        "api_key",
				pattern:     regexp.MustCompile(`(?i)(api[_-]?key|apikey|api_secret)(\s*[=:]\s*)["'][a-zA-Z0-9_\-]{20,}["']`),
				replacement: `${1}${2}"[REDACTED]"`,
			},
			{
				name:        "aws_access_key",
				pattern:     regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
				replacement: "[REDACTED_AWS_KEY]",
			},
			{
				name:        "password",
				pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd|secret)(\s*[=:]\s*)["'][^\s"']{8,}["']`),
				replacement: `${1}${2}"[REDACTED]"`,
			},
			{
				name:        "connection_string",
				pattern:     regexp.MustCompile(`(?i)((?:mongodb|postgres|mysql|redis|amqp)://[^:/\s"']+:)[^@\s"']+(@)`),
				replacement: "${1}[REDACTED]${2}",
			},
			{
				name:        "private_key",
				pattern:     regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-----`),
				replacement: "[REDACTED_PRIVATE_KEY]",
			},
			{
				name:        "jwt_token",
				pattern:     regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
				replacement: "[REDACTED_JWT]",
			},
		},
		placeholders: []string{
			"your-", "example", "placeholder", "xxx", "changeme",
			"TODO", "FIXME", "<", ">", "${", "{{",
		},
	}
}

// Scan finds secrets in text. Lines that look like documentation
// placeholders are skipped to keep the false-positive rate down.
func (d *Detector) Scan(text string) []Finding {
	var findings []Finding

	for lineNum, line := range strings.Split(text, "\n") {
		if d.isPlaceholder(line) {
			continue
		}
		for _, r := range d.rules {
			for _, loc := range r.pattern.FindAllStringIndex(line, -1) {
				findings = append(findings, Finding{
					Type:     r.name,
					Line:     lineNum + 1,
					StartPos: loc[0],
					EndPos:   loc[1],
				})
			}
		}
	}

	return findings
}

// HasSecrets reports whether text contains any finding.
func (d *Detector) HasSecrets(text string) bool {
	return len(d.Scan(text)) > 0
}

// Redact replaces every rule match in text with its redacted form.
func (d *Detector) Redact(text string) string {
	for _, r := range d.rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

func (d *Detector) isPlaceholder(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range d.placeholders {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
