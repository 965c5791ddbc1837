package chat

import "iqtoolkit/analyzer/pkg/providers"

// Request is an OpenAI chat completion request.
type Request struct {
	Model       string              `json:"model"`
	Messages    []providers.Message `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// Response is the subset of an OpenAI chat completion response the adapter
// reads.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is a completion choice.
type Choice struct {
	Index        int               `json:"index"`
	Message      providers.Message `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// buildRequest wraps prompt into a system+user conversation.
func buildRequest(config providers.ProviderConfig, systemPrompt, prompt string) *Request {
	return &Request{
		Model: config.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: prompt},
		},
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	}
}

// transformResponse extracts the first choice's content.
func transformResponse(name string, resp *Response) (string, error) {
	if len(resp.Choices) == 0 {
		return "", providers.NewProtocolError(name, 0, "no choices in response", false, nil)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", providers.NewProtocolError(name, 0, "first choice has no message content", false, nil)
	}
	return content, nil
}
