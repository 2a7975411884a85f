package sanitizer

import (
	"sort"
	"strings"
)

// SecretSanitizer вырезает заранее известные значения (логин и пароль текущей сессии).
type SecretSanitizer struct {
	secrets []string
}

func NewSecretSanitizer(secrets ...string) *SecretSanitizer {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		// слишком короткие значения дадут ложные срабатывания
		if len(s) >= 3 {
			kept = append(kept, s)
		}
	}
	// длинные первыми, чтобы не оставлять хвосты от вложенных совпадений
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &SecretSanitizer{secrets: kept}
}

func (s *SecretSanitizer) Sanitize(text string) string {
	for _, secret := range s.secrets {
		text = strings.ReplaceAll(text, secret, filtered)
	}
	return text
}
