package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sashabaranov/go-openai"

	"uniTrack/internal/discovery"
)

// maxElements ограничивает размер промпта на перегруженных страницах.
const maxElements = 60

type selectorSuggestion struct {
	UsernameInput string `json:"username_input"`
	PasswordInput string `json:"password_input"`
	LoginButton   string `json:"login_button"`
}

// SuggestLoginSelectors просит модель выбрать селекторы формы входа.
// В модель уходит не весь HTML, а только описание полей ввода и кнопок.
func (c *Client) SuggestLoginSelectors(ctx context.Context, html string) (discovery.Selectors, error) {
	elements, err := describeFormElements(html)
	if err != nil {
		return discovery.Selectors{}, err
	}
	if len(elements) == 0 {
		return discovery.Selectors{}, fmt.Errorf("на странице нет полей ввода и кнопок")
	}

	prompt := fmt.Sprintf(`These are the input and button elements of a university portal login page, one per line:

%s

Pick CSS selectors (Playwright syntax is allowed, e.g. button:has-text('Login')) for:
1. the username / roll number / email input
2. the password input
3. the control that submits the login form

Use an empty string when no element fits. Respond in JSON:
{"username_input": "...", "password_input": "...", "login_button": "..."}`, strings.Join(elements, "\n"))

	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at analyzing web page structure and writing robust CSS selectors.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return discovery.Selectors{}, fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return discovery.Selectors{}, fmt.Errorf("пустой ответ от OpenAI")
	}

	var s selectorSuggestion
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &s); err != nil {
		return discovery.Selectors{}, fmt.Errorf("ошибка парсинга ответа: %w", err)
	}

	return discovery.Selectors{
		UsernameInput: strings.TrimSpace(s.UsernameInput),
		PasswordInput: strings.TrimSpace(s.PasswordInput),
		LoginButton:   strings.TrimSpace(s.LoginButton),
	}, nil
}

// describeFormElements превращает поля ввода и кнопки в короткие строки вида
// <input type="text" name="uid" id="user" placeholder="Roll No">.
func describeFormElements(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора HTML: %w", err)
	}

	var out []string
	doc.Find("input, button, a[onclick], [role='button']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
			return true
		}

		var b strings.Builder
		b.WriteString("<" + goquery.NodeName(s))
		for _, attr := range []string{"type", "name", "id", "class", "placeholder", "value", "aria-label"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				fmt.Fprintf(&b, " %s=%q", attr, v)
			}
		}
		b.WriteString(">")
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			if len(text) > 40 {
				text = text[:40]
			}
			b.WriteString(text)
		}

		out = append(out, b.String())
		return len(out) < maxElements
	})

	return out, nil
}
