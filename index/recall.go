package index

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/hnsw"
	"github.com/jellydator/ttlcache/v3"

	"github.com/syngh-ai/syngh"
)

const (
	indexBatchSize = 32

	// Embeddings not used for this long are dropped from the cache file.
	embeddingTTL = 30 * 24 * time.Hour
	// embeddingCapacity bounds the cache file; least recently used go first.
	embeddingCapacity = 4096
)

// Recall finds past sessions whose prompts resemble a new prompt.
// Prompt embeddings are kept in an HNSW graph keyed by prompt hash, and in
// an expiring cache that is persisted between runs.
type Recall struct {
	embedder   *Embedder
	graph      *hnsw.Graph[string]
	records    map[string]syngh.SessionRecord // hash -> latest record with that prompt
	embeddings *ttlcache.Cache[string, []float32]
}

// NewRecall creates a recall index. A nil embedder disables it.
func NewRecall(embedder *Embedder) *Recall {
	return &Recall{
		embedder: embedder,
		graph:    hnsw.NewGraph[string](),
		records:  make(map[string]syngh.SessionRecord),
		// No expiration goroutine: Get ignores expired entries and SaveCache drops them.
		embeddings: ttlcache.New[string, []float32](
			ttlcache.WithTTL[string, []float32](embeddingTTL),
			ttlcache.WithCapacity[string, []float32](embeddingCapacity),
			ttlcache.WithDisableTouchOnHit[string, []float32](),
		),
	}
}

// Enabled reports whether recall has an embedder to work with.
func (r *Recall) Enabled() bool { return r != nil && r.embedder != nil }

// Len returns the number of indexed prompts.
func (r *Recall) Len() int { return r.graph.Len() }

// Index embeds the prompts of records not yet in the graph. Later records
// with the same prompt replace earlier ones.
func (r *Recall) Index(ctx context.Context, records []syngh.SessionRecord) error {
	if !r.Enabled() {
		return nil
	}

	type pending struct {
		hash   string
		prompt string
	}
	var toEmbed []pending
	queued := make(map[string]bool)
	var nodes []hnsw.Node[string]

	for _, rec := range records {
		if rec.Prompt == "" {
			continue
		}
		hash := hashText(rec.Prompt)
		r.records[hash] = rec
		if _, exists := r.graph.Lookup(hash); exists || queued[hash] {
			continue
		}
		queued[hash] = true
		if item := r.embeddings.Get(hash); item != nil {
			// Used again, so it gets a full lifetime.
			r.embeddings.Set(hash, item.Value(), ttlcache.DefaultTTL)
			nodes = append(nodes, hnsw.MakeNode(hash, item.Value()))
			continue
		}
		toEmbed = append(toEmbed, pending{hash: hash, prompt: rec.Prompt})
	}

	for i := 0; i < len(toEmbed); i += indexBatchSize {
		end := min(i+indexBatchSize, len(toEmbed))
		batch := toEmbed[i:end]

		texts := make([]string, len(batch))
		for j, p := range batch {
			texts[j] = p.prompt
		}
		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed prompts: %w", err)
		}
		for j, p := range batch {
			r.embeddings.Set(p.hash, vectors[j], ttlcache.DefaultTTL)
			nodes = append(nodes, hnsw.MakeNode(p.hash, vectors[j]))
		}
	}

	if len(nodes) > 0 {
		r.graph.Add(nodes...)
	}
	slog.Debug("recall indexed", "prompts", r.graph.Len(), "embedded", len(toEmbed))
	return nil
}

// Related returns up to topK records whose prompts are nearest to query,
// nearest first. Records for which skip returns true are left out.
func (r *Recall) Related(ctx context.Context, query string, topK int, skip func(syngh.SessionRecord) bool) ([]syngh.SessionRecord, error) {
	if !r.Enabled() || topK <= 0 || r.graph.Len() == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch so skipped records do not starve the result.
	neighbors := r.graph.Search(queryVec, topK*2+1)
	out := make([]syngh.SessionRecord, 0, topK)
	for _, n := range neighbors {
		rec, ok := r.records[n.Key]
		if !ok || (skip != nil && skip(rec)) {
			continue
		}
		out = append(out, rec)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

type cacheFile struct {
	Model   string       `json:"model"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Hash      string    `json:"hash"`
	Embedding []float32 `json:"embedding"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// SaveCache writes the live cached embeddings to disk so later runs skip
// the API.
func (r *Recall) SaveCache(path string) error {
	if !r.Enabled() {
		return nil
	}

	items := r.embeddings.Items()
	entries := make([]cacheEntry, 0, len(items))
	for hash, item := range items {
		if item.IsExpired() {
			continue
		}
		entries = append(entries, cacheEntry{Hash: hash, Embedding: item.Value(), ExpiresAt: item.ExpiresAt().UTC()})
	}

	data, err := json.Marshal(cacheFile{Model: r.embedder.Model(), Entries: entries})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCache loads embeddings saved by SaveCache. A cache written for a
// different model is ignored, and so are entries past their expiry.
// Entries without an expiry get a fresh lifetime.
func (r *Recall) LoadCache(path string) error {
	if !r.Enabled() {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}
	if cf.Model != r.embedder.Model() {
		return nil
	}
	loaded := 0
	for _, e := range cf.Entries {
		ttl := ttlcache.DefaultTTL
		if !e.ExpiresAt.IsZero() {
			if ttl = time.Until(e.ExpiresAt); ttl <= 0 {
				continue
			}
		}
		r.embeddings.Set(e.Hash, e.Embedding, ttl)
		loaded++
	}
	slog.Debug("recall cache loaded", "entries", loaded, "expired", len(cf.Entries)-loaded)
	return nil
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
