package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLProbe проверяет кандидатов по статическому снимку страницы.
// Понимает CSS, text=... и :has-text(...). Видимость оценивается по атрибутам
// hidden, type=hidden и inline-стилям, без раскладки.
type HTMLProbe struct {
	doc *goquery.Document
}

var hasTextPattern = regexp.MustCompile(`^(.*):has-text\((['"])(.*)['"]\)$`)

func NewHTMLProbe(html string) (*HTMLProbe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора HTML: %w", err)
	}
	return &HTMLProbe{doc: doc}, nil
}

func (p *HTMLProbe) Count(ctx context.Context, selector string) (int, error) {
	return p.find(selector).Length(), nil
}

func (p *HTMLProbe) IsVisible(ctx context.Context, selector string) (bool, error) {
	sel := p.find(selector).First()
	if sel.Length() == 0 {
		return false, nil
	}

	for node := sel; node.Length() > 0; node = node.Parent() {
		if hidden(node) {
			return false, nil
		}
	}
	return true, nil
}

func (p *HTMLProbe) TextContent(ctx context.Context, selector string) (string, error) {
	sel := p.find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("элемент %s не найден", selector)
	}
	return sel.Text(), nil
}

func (p *HTMLProbe) find(selector string) *goquery.Selection {
	selector = strings.TrimSpace(selector)

	if text, ok := strings.CutPrefix(selector, "text="); ok {
		return p.byText("*", strings.Trim(text, `"'`))
	}

	if m := hasTextPattern.FindStringSubmatch(selector); m != nil {
		base := m[1]
		if base == "" {
			base = "*"
		}
		return p.doc.Find(base).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return containsFold(s.Text(), m[3])
		})
	}

	return p.doc.Find(selector)
}

// byText возвращает самые глубокие элементы, содержащие text, как это делает text= в playwright.
func (p *HTMLProbe) byText(base, text string) *goquery.Selection {
	return p.doc.Find("body " + base).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if !containsFold(s.Text(), text) {
			return false
		}
		inner := false
		s.Children().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			inner = containsFold(c.Text(), text)
			return !inner
		})
		return !inner
	})
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if goquery.NodeName(s) == "input" {
		if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}

	style, _ := s.Attr("style")
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
