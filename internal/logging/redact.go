package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// secretKeyPatterns are substrings of attribute and environment variable
// names whose values are masked. Matching is case-insensitive.
var secretKeyPatterns = []string{
	"TOKEN",
	"SECRET",
	"PASSWORD",
	"PASSWD",
	"AUTH",
	"CREDENTIAL",
	"API_KEY",
	"APIKEY",
	"PRIVATE",
}

// tokenPrefixes mark values that are credentials whatever their key.
var tokenPrefixes = []string{
	"ghp_",        // GitHub personal access token
	"gho_",        // GitHub OAuth token
	"ghs_",        // GitHub server-to-server token
	"github_pat_", // GitHub fine-grained token
	"glpat-",      // GitLab personal access token
	"npm_",        // npm automation token
	"sk-",         // OpenAI/Anthropic keys
	"AKIA",        // AWS access key prefix
	"xoxb-",       // Slack bot token
	"xoxp-",       // Slack user token
}

// inlineSecret matches credentials embedded in dotfile lines, such as
// "//registry.npmjs.org/:_authToken=abc" in ~/.npmrc or
// "password = hunter2" in an ini file.
var inlineSecret = regexp.MustCompile(`(?i)(_authtoken|_auth|_password|password|token|secret)(\s*[=:]\s*)("?)([^\s"]+)`)

// MaskSecrets returns a copy of env with sensitive values redacted.
// Keys matching a secret pattern or values carrying a token prefix are masked.
func MaskSecrets(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}

	masked := make(map[string]string, len(env))
	for k, v := range env {
		if ShouldMask(k) || ContainsTokenPrefix(v) {
			masked[k] = MaskValue(v)
		} else {
			masked[k] = v
		}
	}
	return masked
}

// MaskValue masks a potentially sensitive string value.
// Values with 4 or fewer characters are fully masked as "********".
// Longer values show the last 4 characters: "****xxxx".
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}

// ShouldMask returns true if the key name suggests it contains sensitive data.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ContainsTokenPrefix returns true if the value starts with a known token prefix.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// RedactInline masks credentials assigned inside s, leaving the rest of
// the text intact. Hook and plugin output often echoes dotfile contents.
func RedactInline(s string) string {
	return inlineSecret.ReplaceAllStringFunc(s, func(m string) string {
		parts := inlineSecret.FindStringSubmatch(m)
		return parts[1] + parts[2] + parts[3] + MaskValue(parts[4])
	})
}

// redactAttr masks a's value when its key or value looks secret.
func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		switch {
		case ShouldMask(a.Key), ContainsTokenPrefix(s):
			return slog.String(a.Key, MaskValue(s))
		default:
			return slog.String(a.Key, RedactInline(s))
		}
	case slog.KindGroup, slog.KindLogValuer:
		return a
	default:
		if ShouldMask(a.Key) {
			return slog.String(a.Key, MaskValue(a.Value.String()))
		}
		return a
	}
}
