// Package sanitizer вычищает учётные данные, токены и куки из текста перед логированием.
package sanitizer

import (
	"net/url"
	"strings"
)

const filtered = "[FILTERED]"

type DataSanitizer struct {
	rules []SanitizerRule
}

type SanitizerRule interface {
	Sanitize(text string) string
}

// New создаёт санитайзер со стандартными правилами.
// secrets - конкретные значения (логин, пароль), которые надо вырезать дословно.
func New(secrets ...string) *DataSanitizer {
	return &DataSanitizer{
		rules: []SanitizerRule{
			NewSecretSanitizer(secrets...),
			&PasswordSanitizer{},
			&TokenSanitizer{},
			&CookieSanitizer{},
		},
	}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}

	return result
}

// SanitizeURL маскирует userinfo и чувствительные query-параметры.
// Невалидный URL обрабатывается как обычный текст.
func (s *DataSanitizer) SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return s.Sanitize(raw)
	}

	if u.User != nil {
		u.User = url.User(filtered)
	}

	q := u.Query()
	changed := false
	for key := range q {
		if isSensitiveParam(key) {
			q.Set(key, filtered)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	// url.Values экранирует скобки маркера
	out := strings.ReplaceAll(u.String(), url.QueryEscape(filtered), filtered)
	return s.Sanitize(out)
}

func isSensitiveParam(key string) bool {
	lower := strings.ToLower(key)

	sensitiveKeywords := []string{
		"pass", "pwd", "token", "secret", "session", "auth", "key", "user", "login",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return false
}
