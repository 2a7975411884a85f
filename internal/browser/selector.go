package browser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	containsDouble   = regexp.MustCompile(`:contains\("([^"]*)"\)`)
	containsSingle   = regexp.MustCompile(`:contains\('([^']*)'\)`)
	containsNoQuotes = regexp.MustCompile(`:contains\(([^)'"]+)\)`)
	colonSpace       = regexp.MustCompile(`^([a-zA-Z][\w.#-]*):\s+(.+)$`)
)

// NormalizeSelector приводит селектор к синтаксису playwright.
// jQuery :contains() превращается в :has-text(), "button: Войти" - в button:has-text("Войти").
// Такие селекторы приходят из подсказок LLM и из старых конфигов.
// Возвращает селектор и флаг, был ли он изменён.
func NormalizeSelector(selector string) (string, bool) {
	if selector == "" {
		return selector, false
	}

	// text=..., xpath=... и прочие движки playwright не трогаем
	if engine, _, ok := strings.Cut(selector, "="); ok && isSelectorEngine(engine) {
		return selector, false
	}

	normalized := selector

	if m := colonSpace.FindStringSubmatch(normalized); m != nil {
		text := strings.ReplaceAll(strings.TrimSpace(m[2]), `"`, `\"`)
		normalized = m[1] + `:has-text("` + text + `")`
	}

	normalized = containsDouble.ReplaceAllString(normalized, `:has-text("$1")`)
	normalized = containsSingle.ReplaceAllString(normalized, `:has-text('$1')`)
	normalized = containsNoQuotes.ReplaceAllStringFunc(normalized, func(match string) string {
		text := containsNoQuotes.FindStringSubmatch(match)[1]
		return `:has-text("` + strings.TrimSpace(text) + `")`
	})

	return normalized, normalized != selector
}

func isSelectorEngine(prefix string) bool {
	switch prefix {
	case "text", "xpath", "css", "id", "data-testid", "role", "internal:text":
		return true
	}
	return false
}

// ValidateSelector отсекает то, что точно не селектор: пустые строки и URL.
func ValidateSelector(selector string) error {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return fmt.Errorf("селектор не может быть пустым")
	}

	if strings.Contains(trimmed, "://") {
		return fmt.Errorf("селектор не может быть URL: %s", selector)
	}

	return nil
}
