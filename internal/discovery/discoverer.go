package discovery

import (
	"context"

	"go.uber.org/zap"
)

// Page - страница, которую можно и проверять селекторами, и выгрузить целиком.
type Page interface {
	Probe
	Content(ctx context.Context) (string, error)
}

// Suggester предлагает селекторы по HTML, когда таблицы ничего не нашли.
type Suggester interface {
	SuggestLoginSelectors(ctx context.Context, html string) (Selectors, error)
}

type Discoverer struct {
	log       *zap.Logger
	suggester Suggester
}

// New: suggester может быть nil, тогда работают только таблицы.
func New(log *zap.Logger, suggester Suggester) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{
		log:       log.Named("discovery"),
		suggester: suggester,
	}
}

// LoginSelectors: таблицы кандидатов, затем подсказка для недостающих полей.
// Подсказанный селектор принимается, только если проходит ту же проверку, что и кандидаты.
func (d *Discoverer) LoginSelectors(ctx context.Context, page Page) Selectors {
	found := LoginSelectors(ctx, page)
	if found.Complete() {
		return found
	}

	d.log.Info("Таблицы кандидатов не нашли часть полей", zap.Strings("missing", found.Missing()))

	if d.suggester == nil {
		return found
	}

	html, err := page.Content(ctx)
	if err != nil {
		d.log.Warn("Не удалось получить HTML страницы", zap.Error(err))
		return found
	}

	suggested, err := d.suggester.SuggestLoginSelectors(ctx, html)
	if err != nil {
		d.log.Warn("Подсказка селекторов не удалась", zap.Error(err))
		return found
	}

	verified := Selectors{}
	if Usable(ctx, page, suggested.UsernameInput) {
		verified.UsernameInput = suggested.UsernameInput
	}
	if Usable(ctx, page, suggested.PasswordInput) {
		verified.PasswordInput = suggested.PasswordInput
	}
	if Usable(ctx, page, suggested.LoginButton) {
		verified.LoginButton = suggested.LoginButton
	}

	merged := found.Merge(verified)
	d.log.Info("Селекторы после подсказки",
		zap.Bool("complete", merged.Complete()),
		zap.Strings("missing", merged.Missing()),
	)

	return merged
}
