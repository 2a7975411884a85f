package sanitizer

import "regexp"

type TokenSanitizer struct{}

var tokenRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)(token|токен)\s*[:=]\s*["']?([a-zA-Z0-9._-]{20,})["']?`), `${1}=` + filtered},
	{regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?token|access[_-]?token)\s*[:=]\s*["']?([a-zA-Z0-9._-]{20,})["']?`), `${1}=` + filtered},
	{regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9._-]{20,})`), `${1}` + filtered},
	{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{32,}`), filtered},
}

func (s *TokenSanitizer) Sanitize(text string) string {
	for _, rule := range tokenRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}

	return text
}
