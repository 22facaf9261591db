package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"jobsearch-api/internal/common/database"
	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder generates vector embeddings from text for semantic similarity
// ranking. Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAIEmbedder implements Embedder on an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   logger.Logger
}

func NewOpenAIEmbedder(config *EmbedderConfig, log logger.Logger) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	} else {
		opts = append(opts, openai.WithToken("none"))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		logger:   log.WithFields(map[string]interface{}{"component": "embedder"}),
	}, nil
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, errors.NewEmbeddingFailedError(err)
	}
	if len(vectors) == 0 {
		return []float32{}, nil
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, errors.NewEmbeddingFailedError(err)
	}
	return vectors, nil
}

// CachedEmbedder wraps an Embedder with a Redis cache so repeated listings
// don't re-embed. Cache failures fall through to the inner embedder.
type CachedEmbedder struct {
	inner  Embedder
	redis  *database.RedisClient
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedEmbedder(inner Embedder, redis *database.RedisClient, model string, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CachedEmbedder{
		inner:  inner,
		redis:  redis,
		model:  model,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "embedder-cache"}),
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if cached, err := c.redis.Get(ctx, key); err == nil {
		var vector []float32
		if err := json.Unmarshal([]byte(cached), &vector); err == nil {
			return vector, nil
		}
	}

	vector, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(vector); err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl); err != nil {
			c.logger.Warn("embedding cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return vector, nil
}

func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))

	for i, text := range texts {
		if cached, err := c.redis.Get(ctx, c.cacheKey(text)); err == nil {
			var vector []float32
			if err := json.Unmarshal([]byte(cached), &vector); err == nil {
				vectors[i] = vector
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	texts2 := make([]string, len(missing))
	for i, idx := range missing {
		texts2[i] = texts[idx]
	}

	fresh, err := c.inner.EmbedTexts(ctx, texts2)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(texts2) {
		return nil, errors.NewEmbeddingFailedError(
			fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(texts2)))
	}

	for i, idx := range missing {
		vectors[idx] = fresh[i]
		if encoded, err := json.Marshal(fresh[i]); err == nil {
			_ = c.redis.Set(ctx, c.cacheKey(texts[idx]), encoded, c.ttl)
		}
	}

	return vectors, nil
}
