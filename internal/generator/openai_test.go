package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axisconnect/internal/domain"
)

func sseBody(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		payload, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"delta": map[string]string{"content": f}},
			},
		})
		fmt.Fprintf(&b, "data: %s\n\n", payload)
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("AXIS_TEST_KEY", "test-key")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "AXIS_TEST_KEY", Model: "test-model"})
	require.NoError(t, err)
	return c
}

func drain(t *testing.T, stream domain.TokenStream) string {
	t.Helper()
	var b strings.Builder
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b.WriteString(frag)
	}
	return b.String()
}

func TestGenerateStreamsFragmentsInOrder(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseBody("You have ", "20 days", " of annual leave."))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	stream, err := c.Generate(context.Background(), domain.PromptContext{
		System: "system prompt",
		History: []domain.Turn{
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "hi"},
		},
		Input: "how much leave do I have?",
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "You have 20 days of annual leave.", drain(t, stream))

	assert.True(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 4)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "hello", gotReq.Messages[1].Content)
	assert.Equal(t, "assistant", gotReq.Messages[2].Role)
	assert.Equal(t, "how much leave do I have?", gotReq.Messages[3].Content)
}

func TestGenerateReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Generate(context.Background(), domain.PromptContext{Input: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestGenerateMissingKey(t *testing.T) {
	t.Setenv("AXIS_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "AXIS_EMPTY_KEY"})
	assert.Error(t, err)
}

func TestStreamCloseAbortsTransfer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		payload, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]string{"content": "partial"}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL)
	stream, err := c.Generate(context.Background(), domain.PromptContext{Input: "hi"})
	require.NoError(t, err)

	frag, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", frag)

	require.NoError(t, stream.Close())

	done := make(chan struct{})
	go func() {
		_, _ = stream.Recv()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not return after Close")
	}
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.Generate(ctx, domain.PromptContext{Input: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	cancel()
	_, err = stream.Recv()
	assert.Error(t, err)
}

func TestStaticStreamYieldsOnce(t *testing.T) {
	s := Static("fixed answer")
	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "fixed answer", frag)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Close())
}
