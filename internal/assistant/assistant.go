// Package assistant answers free-text questions with a chat completion model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel = "gpt-4o-mini"

	maxTokens   = 300
	temperature = 0.8
)

var ErrEmptyAnswer = errors.New("assistant: empty answer")

// Completer produces a reply to userText under the given system prompt.
type Completer interface {
	Complete(ctx context.Context, prompt, userText string) (string, error)
}

type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (a *OpenAI) Complete(ctx context.Context, prompt, userText string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(userText),
		},
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// Prompt is the system prompt describing the assistant and the current price.
func Prompt(price int) string {
	return "Ты — нейро-ассистент Анжелики, тренера по вниманию и пробуждению. " +
		"Помогай клиенту мягко и вдохновляюще. " +
		fmt.Sprintf("Текущая стоимость доступа: %d тенге, ", price) +
		"цена фиксируется при оплате и растёт каждый месяц."
}
