// Package discovery ищет селекторы и ключи данных на незнакомом портале
// по упорядоченным таблицам кандидатов.
package discovery

import (
	"context"
)

// Probe - минимум, нужный для проверки кандидата: есть ли элемент и виден ли он.
// Реализуется живой страницей браузера и статическим HTMLProbe.
type Probe interface {
	Count(ctx context.Context, selector string) (int, error)
	IsVisible(ctx context.Context, selector string) (bool, error)
}

// TextProbe дополнительно умеет читать текст первого совпадения.
type TextProbe interface {
	Probe
	TextContent(ctx context.Context, selector string) (string, error)
}

// Strategy - упорядоченный список кандидатов. Порядок и есть уверенность:
// выигрывает первый найденный видимый элемент.
type Strategy []string

// Resolve возвращает первый кандидат, который есть на странице и виден.
// Ошибки проверки отдельного кандидата означают "пробуем следующий".
func (s Strategy) Resolve(ctx context.Context, probe Probe) string {
	for _, candidate := range s {
		if ctx.Err() != nil {
			return ""
		}
		if Usable(ctx, probe, candidate) {
			return candidate
		}
	}
	return ""
}

// Usable: элемент найден хотя бы один раз и первый из них виден.
func Usable(ctx context.Context, probe Probe, selector string) bool {
	if selector == "" {
		return false
	}

	n, err := probe.Count(ctx, selector)
	if err != nil || n == 0 {
		return false
	}

	visible, err := probe.IsVisible(ctx, selector)
	return err == nil && visible
}

// With возвращает новую стратегию с extra в начале, без дублей.
func (s Strategy) With(extra ...string) Strategy {
	out := make(Strategy, 0, len(extra)+len(s))
	seen := make(map[string]struct{}, len(extra)+len(s))
	for _, list := range [][]string{extra, s} {
		for _, sel := range list {
			if sel == "" {
				continue
			}
			if _, ok := seen[sel]; ok {
				continue
			}
			seen[sel] = struct{}{}
			out = append(out, sel)
		}
	}
	return out
}
