package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const systemPrompt = "You are a flight training scheduling assistant. Respond only with JSON."

// ChatCompletionsGenerator asks an OpenAI-compatible chat completions endpoint for candidates
type ChatCompletionsGenerator struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewChatCompletionsGenerator(url, apiKey, model string) *ChatCompletionsGenerator {
	return &ChatCompletionsGenerator{
		url:    url,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedOption struct {
	ProposedTime string   `json:"proposedTime"`
	Score        *float64 `json:"score"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

type generatedReply struct {
	Options []generatedOption `json:"options"`
}

func (g *ChatCompletionsGenerator) Generate(ctx context.Context, prompt Prompt) ([]Candidate, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt.Render()},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation API error: %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("generation response has no choices")
	}

	var reply generatedReply
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse generated options: %w", err)
	}

	candidates := make([]Candidate, 0, len(reply.Options))
	for _, o := range reply.Options {
		c := Candidate{ProposedTime: o.ProposedTime, Reasoning: o.Reasoning}
		switch {
		case o.Score != nil:
			c.Score = *o.Score
		case o.Confidence != nil:
			c.Score = *o.Confidence
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
