// Package llm подсказывает селекторы формы входа через OpenAI,
// когда таблицы кандидатов ничего не нашли.
package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	log         *zap.Logger
	rateLimiter *RateLimiter
}

func NewClient(apiKey, model string, maxTokens int, log *zap.Logger) *Client {
	return newClient(openai.DefaultConfig(apiKey), model, maxTokens, log)
}

func newClient(cfg openai.ClientConfig, model string, maxTokens int, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		log:         log.Named("llm"),
		rateLimiter: NewRateLimiter(20),
	}
}

// createChatCompletionWithRateLimit выполняет запрос с проверкой rate limit
func (c *Client) createChatCompletionWithRateLimit(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.rateLimiter.AllowRequest(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, err
	}

	c.log.Debug("Запрос к LLM выполнен",
		zap.String("model", c.model),
		zap.Int("tokens", resp.Usage.TotalTokens),
	)
	return resp, nil
}
