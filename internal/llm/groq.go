package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// GroqClient implements Provider against the Groq chat-completions
// API. The wire format is OpenAI-compatible, so any backend speaking
// that protocol works by overriding the base URL.
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewGroqClient builds a client from configuration.
func NewGroqClient(cfg config.AIConfig) *GroqClient {
	return &GroqClient{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

// Model returns the configured default model.
func (c *GroqClient) Model() string {
	return c.model
}

type groqRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type groqStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamCompletion starts a streaming chat completion.
func (c *GroqClient) StreamCompletion(ctx context.Context, req Request) (*Stream, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(groqRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	return c.newStream(resp.Body), nil
}

// newStream adapts the SSE chunk protocol into a fragment stream.
// The protocol terminates with a "data: [DONE]" line; chunks whose
// delta carries no content are skipped.
func (c *GroqClient) newStream(body io.ReadCloser) *Stream {
	scanner := newSSEScanner(body)

	return NewStream(func() (string, error) {
		for {
			if !scanner.Next() {
				if err := scanner.Err(); err != nil {
					return "", fmt.Errorf("llm: reading stream: %w", err)
				}
				// Upstream closed without [DONE]; treat as truncation.
				return "", fmt.Errorf("llm: stream ended without completion marker")
			}

			event := scanner.Event()
			if event.Data == "[DONE]" {
				return "", io.EOF
			}

			var chunk groqStreamChunk
			if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
				return "", fmt.Errorf("llm: parsing stream chunk: %w", err)
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				return content, nil
			}
		}
	}, body)
}

// APIError is returned when the provider responds with an error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wireError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: wireError.Error.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
