package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"dialogos/platform"
)

// CompletionRequest is one bounded call to the completion service: the system
// directive, the windowed turns, and an attribution tag passed through for
// abuse tracking on the provider side.
type CompletionRequest struct {
	Directive string
	Turns     []Turn
	User      string
}

// Completer is the completion collaborator. The production implementation
// wraps the OpenAI-compatible client; tests substitute their own.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type llmCompleter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewLLMCompleter(config platform.Config) Completer {
	return &llmCompleter{
		client:      platform.LLMClient,
		model:       config.LLMModel,
		temperature: config.LLMTemperature,
		maxTokens:   config.LLMMaxTokens,
	}
}

func (l *llmCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:       openai.F(l.model),
		Temperature: openai.F(l.temperature),
		MaxTokens:   openai.F(l.maxTokens),
		User:        openai.F(req.User),
	}

	var systemContent any = req.Directive
	params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
		Role:    openai.F(openai.ChatCompletionMessageParamRoleSystem),
		Content: openai.F(systemContent),
	})
	for _, turn := range req.Turns {
		var content any = turn.Content
		params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
			Role:    openai.F(openai.ChatCompletionMessageParamRole(turn.Role)),
			Content: openai.F(content),
		})
	}

	completion, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logger.Errorf("Completion API error (status %d): %s", apiErr.StatusCode, apiErr.Error())
		} else {
			logger.Errorf("Completion call failed: %s", err)
		}
		return "", fmt.Errorf("%w: completion call failed", ErrUpstream)
	}
	if len(completion.Choices) == 0 {
		logger.Errorf("Completion returned no choices")
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
