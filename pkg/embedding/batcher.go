package embedding

import (
	"log"
	"strings"
	"sync"
	"time"
)

const (
	defaultCacheSize = 100
	cacheKeyMaxLen   = 512
	retryBackoff     = 500 * time.Millisecond
)

// Batcher deduplicates and batches embedding requests on top of a provider.
// Repeated texts hit a bounded LRU keyed by normalized text, so the same
// query asked twice never pays for a second network call. Constructed once
// per process and injected; it owns no global state.
type Batcher struct {
	provider EmbeddingProvider
	cache    *lruCache
	logger   *log.Logger
	warmOnce sync.Once
}

func NewBatcher(provider EmbeddingProvider, cacheSize int, logger *log.Logger) *Batcher {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Batcher{
		provider: provider,
		cache:    newLRUCache(cacheSize),
		logger:   logger,
	}
}

// EmbedMany returns one vector per input text, in input order. Identical
// texts are embedded once. On provider failure the batch is retried once
// after a fixed backoff; if that also fails the failed slots are nil and the
// caller proceeds with whatever succeeded. This method never returns an
// error: a degraded result beats an aborted answer.
func (b *Batcher) EmbedMany(texts []string, taskType string) [][]float32 {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors
	}

	// Resolve cache hits and collect the unique misses.
	pending := make([]string, 0, len(texts))
	pendingKeys := make([]string, 0, len(texts))
	slots := make(map[string][]int, len(texts))

	for i, text := range texts {
		key := cacheKey(text)
		if vec, ok := b.cache.Get(key); ok {
			vectors[i] = vec
			continue
		}
		if _, seen := slots[key]; !seen {
			pending = append(pending, text)
			pendingKeys = append(pendingKeys, key)
		}
		slots[key] = append(slots[key], i)
	}

	if len(pending) == 0 {
		return vectors
	}

	res, err := b.provider.GenerateBatch(pending, taskType)
	if err != nil {
		b.logger.Printf("[EMBED] batch of %d failed, retrying once: %v", len(pending), err)
		time.Sleep(retryBackoff)
		res, err = b.provider.GenerateBatch(pending, taskType)
	}
	if err != nil {
		b.logger.Printf("[EMBED] batch of %d dropped after retry: %v", len(pending), err)
		return vectors
	}

	for j, emb := range res.Embeddings {
		key := pendingKeys[j]
		b.cache.Add(key, emb.Values)
		for _, i := range slots[key] {
			vectors[i] = emb.Values
		}
	}

	return vectors
}

// EmbedOne is a convenience wrapper over EmbedMany for single queries.
// Returns nil when the provider is unavailable.
func (b *Batcher) EmbedOne(text string, taskType string) []float32 {
	return b.EmbedMany([]string{text}, taskType)[0]
}

// Warmup fires one throwaway embedding in the background so cold-start
// latency lands before the first user query. Subsequent calls are no-ops.
func (b *Batcher) Warmup() {
	b.warmOnce.Do(func() {
		go func() {
			if _, err := b.provider.Generate("warmup", TaskRetrievalQuery); err != nil {
				b.logger.Printf("[EMBED] warmup call failed: %v", err)
			}
		}()
	})
}

// CacheLen reports the number of cached vectors, for diagnostics.
func (b *Batcher) CacheLen() int {
	return b.cache.Len()
}

func cacheKey(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if len(key) > cacheKeyMaxLen {
		key = key[:cacheKeyMaxLen]
	}
	return key
}
