package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syngh-ai/syngh"
)

// topicVector maps text onto three fixed topics so nearest neighbours are predictable.
func topicVector(text string) []float32 {
	v := []float32{0.01, 0.01, 0.01}
	switch {
	case strings.Contains(text, "docker"):
		v[0] = 1
	case strings.Contains(text, "git"):
		v[1] = 1
	default:
		v[2] = 1
	}
	return v
}

func newEmbeddingServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		calls.Add(1)

		var req struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var texts []string
		switch in := req.Input.(type) {
		case string:
			texts = []string{in}
		case []any:
			for _, s := range in {
				texts = append(texts, s.(string))
			}
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for i, text := range texts {
			resp.Data = append(resp.Data, item{Index: i, Embedding: topicVector(text)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := NewEmbedder("http://localhost:0", "key", "model")
	result, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewEmbedder(srv.URL, "key", "model").Embed(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestRecallDisabledWithoutEmbedder(t *testing.T) {
	r := NewRecall(nil)
	assert.False(t, r.Enabled())
	require.NoError(t, r.Index(context.Background(), []syngh.SessionRecord{{Prompt: "x"}}))
	got, err := r.Related(context.Background(), "x", 3, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecallRelated(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbeddingServer(t, &calls)
	r := NewRecall(NewEmbedder(srv.URL, "key", "topics"))

	records := []syngh.SessionRecord{
		{Prompt: "clean up docker images", Code: "docker image prune", Action: syngh.ActionRun},
		{Prompt: "undo last git commit", Code: "git reset HEAD~1", Action: syngh.ActionSkip},
		{Prompt: "write a fizzbuzz", Filename: "fizz.py", Action: syngh.ActionRun},
		{Prompt: "undo last git commit", Code: "git reset --soft HEAD~1", Action: syngh.ActionRun},
	}
	require.NoError(t, r.Index(context.Background(), records))
	assert.Equal(t, 3, r.Len())

	got, err := r.Related(context.Background(), "show git log", 1, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "git reset --soft HEAD~1", got[0].Code, "latest record for a prompt wins")

	got, err = r.Related(context.Background(), "show git log", 2, func(rec syngh.SessionRecord) bool {
		return strings.Contains(rec.Prompt, "git")
	})
	require.NoError(t, err)
	for _, rec := range got {
		assert.NotContains(t, rec.Prompt, "git")
	}
}

func TestRecallCacheSkipsEmbeddingCalls(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbeddingServer(t, &calls)
	path := filepath.Join(t.TempDir(), "recall_cache.json")
	records := []syngh.SessionRecord{{Prompt: "docker ps"}, {Prompt: "git status"}}

	first := NewRecall(NewEmbedder(srv.URL, "key", "topics"))
	require.NoError(t, first.Index(context.Background(), records))
	require.NoError(t, first.SaveCache(path))
	before := calls.Load()

	second := NewRecall(NewEmbedder(srv.URL, "key", "topics"))
	require.NoError(t, second.LoadCache(path))
	require.NoError(t, second.Index(context.Background(), records))
	assert.Equal(t, before, calls.Load())
	assert.Equal(t, 2, second.Len())

	// A different model ignores the cache and embeds again.
	third := NewRecall(NewEmbedder(srv.URL, "key", "other"))
	require.NoError(t, third.LoadCache(path))
	require.NoError(t, third.Index(context.Background(), records))
	assert.Greater(t, calls.Load(), before)
}

func TestRecallCacheDropsExpiredEmbeddings(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbeddingServer(t, &calls)
	path := filepath.Join(t.TempDir(), "recall_cache.json")

	cf := cacheFile{Model: "topics", Entries: []cacheEntry{
		{Hash: hashText("docker ps"), Embedding: topicVector("docker ps"), ExpiresAt: time.Now().Add(time.Hour)},
		{Hash: hashText("git status"), Embedding: topicVector("git status"), ExpiresAt: time.Now().Add(-time.Hour)},
		{Hash: hashText("make build"), Embedding: topicVector("make build")},
	}}
	data, err := json.Marshal(cf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r := NewRecall(NewEmbedder(srv.URL, "key", "topics"))
	require.NoError(t, r.LoadCache(path))
	records := []syngh.SessionRecord{{Prompt: "docker ps"}, {Prompt: "git status"}, {Prompt: "make build"}}
	require.NoError(t, r.Index(context.Background(), records))
	assert.Equal(t, int64(1), calls.Load(), "only the expired prompt is embedded again")
	assert.Equal(t, 3, r.Len())

	require.NoError(t, r.SaveCache(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var saved cacheFile
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved.Entries, 3)
	for _, e := range saved.Entries {
		assert.True(t, e.ExpiresAt.After(time.Now()), "entry %s", e.Hash)
	}
}

func TestRecallCacheRefreshesUsedEmbeddings(t *testing.T) {
	var calls atomic.Int64
	srv := newEmbeddingServer(t, &calls)
	path := filepath.Join(t.TempDir(), "recall_cache.json")

	soon := time.Now().Add(time.Minute)
	cf := cacheFile{Model: "topics", Entries: []cacheEntry{
		{Hash: hashText("docker ps"), Embedding: topicVector("docker ps"), ExpiresAt: soon},
		{Hash: hashText("unused"), Embedding: topicVector("unused"), ExpiresAt: soon},
	}}
	data, err := json.Marshal(cf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r := NewRecall(NewEmbedder(srv.URL, "key", "topics"))
	require.NoError(t, r.LoadCache(path))
	require.NoError(t, r.Index(context.Background(), []syngh.SessionRecord{{Prompt: "docker ps"}}))
	assert.Zero(t, calls.Load())
	require.NoError(t, r.SaveCache(path))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var saved cacheFile
	require.NoError(t, json.Unmarshal(data, &saved))
	expiry := make(map[string]time.Time)
	for _, e := range saved.Entries {
		expiry[e.Hash] = e.ExpiresAt
	}
	assert.WithinDuration(t, time.Now().Add(embeddingTTL), expiry[hashText("docker ps")], time.Minute)
	assert.WithinDuration(t, soon, expiry[hashText("unused")], time.Second)
}
