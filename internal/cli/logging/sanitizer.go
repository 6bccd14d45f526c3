// Package logging redacts sensitive material before it reaches structured logs.
package logging

import (
	"regexp"
	"strings"
)

const redactionPlaceholder = "***"

var allowlistedEnvKeys = map[string]struct{}{
	"PATH":    {},
	"HOME":    {},
	"USER":    {},
	"SHELL":   {},
	"PWD":     {},
	"LANG":    {},
	"TMPDIR":  {},
	"CC":      {},
	"CFLAGS":  {},
	"LDFLAGS": {},
}

var sensitiveWords = []string{"password", "passphrase", "secret", "token", "apikey", "api_key", "privatekey", "license_key", "credential"}

// SanitizeCommand renders a tool command line with sensitive values redacted.
// Both `--token=x` and `--token x` forms are handled, as are preprocessor
// defines such as `-DAPI_TOKEN=x`.
func SanitizeCommand(args []string) string {
	if len(args) == 0 {
		return ""
	}

	out := make([]string, 0, len(args))
	redactNext := false
	for _, arg := range args {
		if redactNext {
			out = append(out, redactionPlaceholder)
			redactNext = false
			continue
		}
		if eq := strings.Index(arg, "="); eq > 0 {
			if isSensitive(arg[:eq]) {
				out = append(out, arg[:eq+1]+redactionPlaceholder)
				continue
			}
			out = append(out, arg)
			continue
		}
		if strings.HasPrefix(arg, "-") && isSensitive(arg) {
			redactNext = true
		}
		out = append(out, arg)
	}
	if redactNext {
		out = append(out, redactionPlaceholder)
	}
	return strings.Join(out, " ")
}

// SanitizeEnv returns a copy of env with sensitive values replaced.
func SanitizeEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for key, value := range env {
		if _, ok := allowlistedEnvKeys[strings.ToUpper(key)]; ok {
			out[key] = value
			continue
		}
		if isSensitive(key) {
			out[key] = redactionPlaceholder
			continue
		}
		out[key] = value
	}
	return out
}

var sensitivePattern = regexp.MustCompile(`(?i)(password|passphrase|secret|token|api_?key|private_?key|license_key)=([^\s]{1,128})`)

// SanitizeText redacts sensitive key/value pairs inside freeform strings.
func SanitizeText(text string) string {
	return sensitivePattern.ReplaceAllString(text, "${1}="+redactionPlaceholder)
}

func isSensitive(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
