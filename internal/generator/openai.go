// Package generator streams completions from an OpenAI-compatible chat
// endpoint. Each call opens a fresh, non-restartable stream of text
// fragments; abandoning the stream is the cancellation mechanism.
package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"axisconnect/internal/domain"
)

// DefaultTimeout bounds one whole generation, including streaming. An
// unresponsive endpoint must not block a session indefinitely.
const DefaultTimeout = 120 * time.Second

// Client is a streaming chat completion client.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// Config configures the chat completion client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// NewClient creates a streaming chat client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = DefaultTimeout
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    key,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: t},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chunkEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate opens a streamed completion for the assembled context.
func (c *Client) Generate(ctx context.Context, pc domain.PromptContext) (domain.TokenStream, error) {
	messages := make([]chatMessage, 0, len(pc.History)+2)
	messages = append(messages, chatMessage{Role: "system", Content: pc.System})
	for _, turn := range pc.History {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: pc.Input})

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return &sseStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body), cancel: cancel}, nil
}

// sseStream reads "data:" events off a server-sent-events body. Close may
// be called from another goroutine while Recv is blocked on the body.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	done    atomic.Bool
}

func (s *sseStream) Recv() (string, error) {
	if s.done.Load() {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.finish()
			return "", io.EOF
		}
		var ev chunkEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.finish()
			return "", fmt.Errorf("decoding stream event: %w", err)
		}
		if len(ev.Choices) == 0 {
			continue
		}
		if content := ev.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
		if ev.Choices[0].FinishReason != "" {
			s.finish()
			return "", io.EOF
		}
	}
	err := s.scanner.Err()
	s.finish()
	if err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	return "", io.EOF
}

func (s *sseStream) finish() {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	_ = s.body.Close()
}

// Close abandons the stream. Safe to call more than once.
func (s *sseStream) Close() error {
	s.finish()
	return nil
}
