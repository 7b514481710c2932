package llm

import (
	"context"
	"io"
)

// Message is one conversation turn sent to the completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles understood by chat-completion APIs.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request describes a streaming completion call.
type Request struct {
	Model    string
	Messages []Message
}

// Provider is the interface to a completion backend that emits its
// response incrementally.
type Provider interface {
	// StreamCompletion starts a completion and returns a Stream of
	// text fragments. The caller must Close the stream, even when
	// iteration ends early.
	StreamCompletion(ctx context.Context, req Request) (*Stream, error)
}

// recvFunc yields the next text fragment, io.EOF when the provider
// signaled completion.
type recvFunc func() (string, error)

// Stream is a single-pass, forward-only sequence of text fragments.
// It is not safe for concurrent use.
type Stream struct {
	recv   recvFunc
	closer io.Closer
	done   bool
}

// NewStream wraps a provider-specific iteration function and the
// underlying resource (typically the HTTP response body).
func NewStream(recv recvFunc, closer io.Closer) *Stream {
	return &Stream{recv: recv, closer: closer}
}

// Recv returns the next fragment. It returns io.EOF once the provider
// signals completion and any other error on upstream failure.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	fragment, err := s.recv()
	if err != nil {
		s.done = true
	}
	return fragment, err
}

// Close releases the underlying resources. Must be called when done
// with the stream, even if iteration ended early.
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
