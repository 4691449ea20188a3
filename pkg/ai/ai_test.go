package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubGenerator struct {
	answer string
	err    error
	calls  int
}

func (s *stubGenerator) Generate(_ context.Context, _ Request) (string, error) {
	s.calls++
	return s.answer, s.err
}

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"Here you go: {\"a\":1} thanks": `{"a":1}`,
		"[1,2,3]":                       `[1,2,3]`,
		"plain":                         "plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanJSON(in), in)
	}
}

func TestFallbackService_StructuredPrefersGemini(t *testing.T) {
	gem := &stubGenerator{answer: `{"ok":true}`}
	oll := &stubGenerator{answer: `{"ok":false}`}
	svc := NewFallbackService(gem, oll, zap.NewNop())

	out, err := svc.Generate(context.Background(), Request{Schema: &Schema{Type: "object"}})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, 0, oll.calls)
}

func TestFallbackService_FallsBackOnQuota(t *testing.T) {
	gem := &stubGenerator{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}
	oll := &stubGenerator{answer: `{"ok":true}`}
	svc := NewFallbackService(gem, oll, zap.NewNop())

	out, err := svc.Generate(context.Background(), Request{Schema: &Schema{Type: "object"}})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, 1, gem.calls)
}

func TestFallbackService_TextPrefersOllama(t *testing.T) {
	gem := &stubGenerator{answer: "from gemini"}
	oll := &stubGenerator{answer: "from ollama"}
	svc := NewFallbackService(gem, oll, zap.NewNop())

	out, err := svc.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from ollama", out)
}

func TestFallbackService_BothFail(t *testing.T) {
	gem := &stubGenerator{err: errors.New("boom")}
	oll := &stubGenerator{err: errors.New("dial tcp: connection refused")}
	svc := NewFallbackService(gem, oll, zap.NewNop())

	_, err := svc.Generate(context.Background(), Request{Schema: &Schema{Type: "object"}})
	assert.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("Too Many Requests")))
	assert.False(t, isQuotaError(errors.New("bad request")))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:11434: connection refused")))
	assert.False(t, isConnectionError(nil))
}

func TestOllamaService_Generate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": `{"greeting":"hi"}`, "done": true})
	}))
	defer srv.Close()

	svc := NewOllamaService(srv.URL, "tiny")
	out, err := svc.Generate(context.Background(), Request{
		Prompt: "say hi",
		Schema: &Schema{Type: "object", Properties: map[string]*Schema{"greeting": {Type: "string"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"greeting":"hi"}`, out)
	assert.Equal(t, "tiny", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.NotNil(t, got["format"])
}

func TestOllamaService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaService(srv.URL, "missing").Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorContains(t, err, "404")
}

func TestOllamaService_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"","done":true}`))
	}))
	defer srv.Close()

	_, err := NewOllamaService(srv.URL, "m").Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestToGenaiSchema(t *testing.T) {
	s := &Schema{
		Type:     "object",
		Required: []string{"items"},
		Properties: map[string]*Schema{
			"items": {Type: "array", Items: &Schema{Type: "string", Enum: []string{"a", "b"}}},
		},
	}
	out := toGenaiSchema(s)
	require.NotNil(t, out)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, genai.TypeArray, out.Properties["items"].Type)
	assert.Equal(t, genai.TypeString, out.Properties["items"].Items.Type)
	assert.Equal(t, []string{"a", "b"}, out.Properties["items"].Items.Enum)
	assert.Nil(t, toGenaiSchema(nil))
}
