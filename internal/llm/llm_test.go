package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"uniTrack/internal/discovery"
)

const loginHTML = `<html><body>
<form>
  <input type="hidden" name="csrf" value="x">
  <input type="text" name="uid" placeholder="Roll No">
  <input type="text" name="pin">
  <a onclick="doLogin()" class="btn">Enter</a>
</form>
</body></html>`

func TestDescribeFormElements(t *testing.T) {
	got, err := describeFormElements(loginHTML)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`<input type="text" name="uid" placeholder="Roll No">`,
		`<input type="text" name="pin">`,
		`<a class="btn">Enter`,
	}, got)
}

func TestSuggestLoginSelectors(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `{"username_input":" input[name='uid'] ","password_input":"input[name='pin']","login_button":"a.btn"}`,
				},
			}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	c := newClient(cfg, "gpt-4o-mini", 200, zaptest.NewLogger(t))

	sel, err := c.SuggestLoginSelectors(context.Background(), loginHTML)
	require.NoError(t, err)

	assert.Equal(t, discovery.Selectors{
		UsernameInput: "input[name='uid']",
		PasswordInput: "input[name='pin']",
		LoginButton:   "a.btn",
	}, sel)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.NotContains(t, got.Messages[1].Content, "csrf")
}

func TestSuggestLoginSelectors_EmptyPage(t *testing.T) {
	c := NewClient("test-key", "gpt-4o-mini", 200, nil)

	_, err := c.SuggestLoginSelectors(context.Background(), "<html><body><p>down</p></body></html>")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	require.NoError(t, rl.AllowRequest())
	require.NoError(t, rl.AllowRequest())
	assert.Error(t, rl.AllowRequest())

	now = now.Add(30 * time.Second)
	assert.NoError(t, rl.AllowRequest())
}
