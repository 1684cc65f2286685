package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

type OpenAILLM struct {
	apiKey      string
	url         string
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAILLM(apiKey string, model string) *OpenAILLM {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAILLM{
		apiKey:      apiKey,
		url:         "https://api.openai.com/v1/chat/completions",
		model:       model,
		temperature: 0.7,
		maxTokens:   4096,
	}
}

// NewOpenAICompatibleLLM points the same wire format at an arbitrary
// OpenAI-compatible chat-completions endpoint (e.g. a Boson-style base URL).
func NewOpenAICompatibleLLM(apiKey, baseURL, model string) *OpenAILLM {
	l := NewOpenAILLM(apiKey, model)
	l.url = baseURL
	return l
}

func (l *OpenAILLM) SetSampling(temperature float64, maxTokens int) {
	l.temperature = temperature
	l.maxTokens = maxTokens
}

func (l *OpenAILLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	payload := map[string]interface{}{
		"model":       l.model,
		"messages":    messages,
		"temperature": l.temperature,
		"max_tokens":  l.maxTokens,
		"stream":      false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return result.Choices[0].Message.Content, nil
}

func (l *OpenAILLM) Name() string {
	return "openai-llm"
}
