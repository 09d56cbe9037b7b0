package platform

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	LLMClient *openai.Client
)

func InitLLMClient(config Config) {
	LLMClient = openai.NewClient(
		option.WithBaseURL(config.LLMBaseURL),
		option.WithAPIKey(config.LLMAPIKey),
	)
}
