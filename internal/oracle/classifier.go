package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Classifier answers whether an event's outcome markets are mutually
// exclusive and exhaustive.
type Classifier interface {
	Classify(ctx context.Context, eventID, description string) (bool, error)
}

// HTTPClassifier calls an OpenAI-compatible chat-completions endpoint and
// parses a strict yes/no verdict out of the response.
type HTTPClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPClassifier creates a classifier client. baseURL is the API root,
// e.g. "https://api.openai.com/v1".
func NewHTTPClassifier(baseURL, apiKey, model string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

const classifierPrompt = `You are given the description of a prediction-market event consisting of several outcome markets. Answer strictly "yes" if exactly one of the outcomes must resolve true in every possible real-world scenario (the outcomes are mutually exclusive and exhaustive), otherwise answer strictly "no".`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify asks the model for a verdict on the given event description.
func (c *HTTPClassifier) Classify(ctx context.Context, eventID, description string) (bool, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifierPrompt},
			{Role: "user", Content: description},
		},
		Temperature: 0,
		MaxTokens:   4,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return false, fmt.Errorf("oracle: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("oracle: classify event %s: %w", eventID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("oracle: classify event %s: HTTP %d: %s", eventID, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("oracle: decode response: %w", err)
	}
	if parsed.Error != nil {
		return false, fmt.Errorf("oracle: classify event %s: %s", eventID, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return false, fmt.Errorf("oracle: classify event %s: empty response", eventID)
	}

	answer := strings.ToLower(strings.TrimSpace(parsed.Choices[0].Message.Content))
	return strings.HasPrefix(answer, "yes"), nil
}
