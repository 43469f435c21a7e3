package agent

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAIClient builds a chat client. baseURL is optional and may be given
// with or without the trailing /v1.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
