package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/reliability"
)

const (
	maxResponseSize   = 10 << 20
	transportAttempts = 3
	backoffBase       = 500 * time.Millisecond
	backoffCap        = 4 * time.Second
)

// HTTPCompleter talks to an OpenAI-compatible chat-completions endpoint.
type HTTPCompleter struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

func NewHTTPCompleter(url, apiKey, model string, timeout time.Duration) *HTTPCompleter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o"
	}
	return &HTTPCompleter{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one chat-completions request. Retryable transport
// failures (429, 5xx) get a short backoff loop here; response-content
// failures are left to the caller's validation retry.
func (c *HTTPCompleter) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildChatRequest(req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var raw []byte
	for attempt := 0; ; attempt++ {
		raw, err = c.send(ctx, body)
		if err == nil {
			break
		}
		if attempt >= transportAttempts-1 || !errors.Is(err, errRetryableStatus) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(reliability.ExponentialBackoff(attempt, backoffBase, backoffCap)):
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("brain error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("brain returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

var errRetryableStatus = errors.New("retryable status")

func (c *HTTPCompleter) send(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		err := fmt.Errorf("brain http status %d: %s", res.StatusCode, truncate(string(raw), 256))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return nil, fmt.Errorf("%w: %w", errRetryableStatus, err)
		}
		return nil, err
	}
	return raw, nil
}

func (c *HTTPCompleter) buildChatRequest(req Request) chatRequest {
	parts := make([]contentPart, 0, len(req.Parts))
	for _, part := range req.Parts {
		switch {
		case part.ImageURL != "":
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: part.ImageURL, Detail: "auto"},
			})
		case part.Text != "":
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		}
	}
	if len(parts) == 0 {
		parts = append(parts, contentPart{Type: "text", Text: "No specific user input"})
	}

	out := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: parts},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != "" {
		out.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   req.SchemaName,
				Schema: json.RawMessage(req.Schema),
				Strict: true,
			},
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
