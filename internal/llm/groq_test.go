package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func chunkLine(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, content) + "\n\n"
}

func newTestClient(url string) *GroqClient {
	return NewGroqClient(config.AIConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "llama3-8b-8192",
	})
}

func collect(stream *Stream) ([]string, error) {
	defer stream.Close()
	var fragments []string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			return fragments, nil
		}
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, fragment)
	}
}

func TestStreamCompletion(t *testing.T) {
	var gotAuth string
	var gotReq groqRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, chunkLine("Hello"))
		io.WriteString(w, chunkLine(" world"))
		io.WriteString(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamCompletion(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}

	fragments, err := collect(stream)
	if err != nil {
		t.Fatalf("recv error: %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "Hello" || fragments[1] != " world" {
		t.Fatalf("unexpected fragments %v", fragments)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if !gotReq.Stream {
		t.Fatalf("expected stream:true in request")
	}
	if gotReq.Model != "llama3-8b-8192" {
		t.Fatalf("model = %q", gotReq.Model)
	}
}

func TestStreamCompletionRequestModelOverride(t *testing.T) {
	var gotReq groqRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	stream, err := newTestClient(server.URL).StreamCompletion(context.Background(), Request{
		Model:    "other-model",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if _, err := collect(stream); err != nil {
		t.Fatalf("recv error: %v", err)
	}
	if gotReq.Model != "other-model" {
		t.Fatalf("model = %q", gotReq.Model)
	}
}

func TestStreamCompletionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StreamCompletion(context.Background(), Request{})
	if err == nil {
		t.Fatalf("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid api key" {
		t.Fatalf("unexpected error %v", apiErr)
	}
}

func TestStreamCompletionTruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chunkLine("partial"))
		// Connection closes without the [DONE] marker.
	}))
	defer server.Close()

	stream, err := newTestClient(server.URL).StreamCompletion(context.Background(), Request{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}

	fragments, err := collect(stream)
	if err == nil {
		t.Fatalf("expected truncation error")
	}
	if len(fragments) != 1 || fragments[0] != "partial" {
		t.Fatalf("unexpected fragments %v", fragments)
	}
}

func TestStreamCompletionSkipsEmptyDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
		io.WriteString(w, chunkLine("text"))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	stream, err := newTestClient(server.URL).StreamCompletion(context.Background(), Request{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	fragments, err := collect(stream)
	if err != nil {
		t.Fatalf("recv error: %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "text" {
		t.Fatalf("unexpected fragments %v", fragments)
	}
}
