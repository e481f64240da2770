package generate

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

	"github.com/syngh-ai/syngh"
)

var testMessages = []syngh.Message{
	{Role: syngh.RoleSystem, Content: "sys"},
	{Role: syngh.RoleUser, Content: "hi"},
}

var testOptions = Options{Model: "m", Temperature: 0.5, TopP: 0.9, MaxTokens: 2048}

func TestCompleteSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m", req["model"])
		assert.Equal(t, 0.5, req["temperature"])
		assert.Equal(t, 0.9, req["top_p"])
		assert.Equal(t, float64(2048), req["max_completion_tokens"])
		assert.Equal(t, false, req["stream"])
		assert.Len(t, req["messages"], 2)

		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"<think>x</think>{}"}}]}`)
	}))
	defer srv.Close()

	out, err := NewGenerator(srv.URL, "secret", time.Minute).Complete(context.Background(), testMessages, testOptions)
	require.NoError(t, err)
	assert.Equal(t, "<think>x</think>{}", out)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, "status 401"},
		{"api error object", http.StatusOK, `{"error":{"message":"model overloaded"}}`, "model overloaded"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"not json", http.StatusOK, `<html>`, "failed to parse response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGenerator(srv.URL, "k", 0).Complete(context.Background(), testMessages, testOptions)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompleteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewGenerator(url, "k", time.Second).Complete(context.Background(), testMessages, testOptions)
	assert.Error(t, err)
}

func sseServer(t *testing.T, events ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprintf(w, "%s\n\n", e)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func delta(s string) string {
	b, _ := json.Marshal(s)
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%s}}]}`, b)
}

func TestStreamYieldsFragmentsInOrder(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		delta("<think>"),
		delta("hmm"),
		": keep-alive comment",
		delta("</think>"),
		delta("yo"),
		`data: {"choices":[]}`,
		"data: [DONE]",
		delta("after done"),
	)

	s, err := NewGenerator(srv.URL, "k", 0).Stream(context.Background(), testMessages, testOptions)
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for s.Next() {
		got = append(got, s.Text())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"<think>", "hmm", "</think>", "yo"}, got)
	assert.False(t, s.Next(), "stream is not restartable")
}

func TestStreamEndsWithoutDone(t *testing.T) {
	srv := sseServer(t, delta("a"), delta("b"))
	s, err := NewGenerator(srv.URL, "k", 0).Stream(context.Background(), testMessages, testOptions)
	require.NoError(t, err)

	var sb strings.Builder
	for s.Next() {
		sb.WriteString(s.Text())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, "ab", sb.String())
}

func TestStreamMidStreamError(t *testing.T) {
	srv := sseServer(t, delta("partial"), `data: {"error":{"message":"rate limited"}}`, delta("never"))
	s, err := NewGenerator(srv.URL, "k", 0).Stream(context.Background(), testMessages, testOptions)
	require.NoError(t, err)

	require.True(t, s.Next())
	assert.Equal(t, "partial", s.Text())
	assert.False(t, s.Next())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "rate limited")
}

func TestStreamOpenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewGenerator(srv.URL, "k", 0).Stream(context.Background(), testMessages, testOptions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestOptionsFor(t *testing.T) {
	t.Setenv("SYNGH_MODEL", "")
	opts := OptionsFor(syngh.ProfileConfig{Model: "llama", Temperature: 0.6, TopP: 0.95, MaxTokens: 1024})
	assert.Equal(t, Options{Model: "llama", Temperature: 0.6, TopP: 0.95, MaxTokens: 1024}, opts)

	t.Setenv("SYNGH_MODEL", "override")
	assert.Equal(t, "override", OptionsFor(syngh.ProfileConfig{Model: "llama"}).Model)
}
