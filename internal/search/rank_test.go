package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorEmbedder returns preset vectors: profile on EmbedText, listing
// vectors in order on EmbedTexts.
type vectorEmbedder struct {
	profile    []float32
	listings   [][]float32
	textErr    error
	textsErr   error
	seenTexts  []string
	textsCalls int
}

func (v *vectorEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	if v.textErr != nil {
		return nil, v.textErr
	}
	return v.profile, nil
}

func (v *vectorEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	v.textsCalls++
	v.seenTexts = texts
	if v.textsErr != nil {
		return nil, v.textsErr
	}
	return v.listings, nil
}

func rankedListing(id string) models.Listing {
	return models.Listing{"id": id, "title": "t-" + id, "description": "d-" + id}
}

func TestRanker_ScoresAndSortsDescending(t *testing.T) {
	embedder := &vectorEmbedder{
		profile: []float32{1, 0},
		listings: [][]float32{
			{0, 1},       // orthogonal, score 0
			{1, 0},       // identical, score 100
			{0.6, 0.8},   // cos 0.6, score 60
		},
	}
	listings := []models.Listing{rankedListing("a"), rankedListing("b"), rankedListing("c")}

	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].ID())
	assert.Equal(t, 100, ranked[0].RelevanceScore())
	assert.Equal(t, "c", ranked[1].ID())
	assert.Equal(t, 60, ranked[1].RelevanceScore())
	assert.Equal(t, "a", ranked[2].ID())
	assert.Equal(t, 0, ranked[2].RelevanceScore())
}

func TestRanker_ScoreBounds(t *testing.T) {
	embedder := &vectorEmbedder{
		profile: []float32{1, 0},
		listings: [][]float32{
			{-1, 0}, // negative similarity clamps to 0
			{1, 0},
			{0, 0}, // zero magnitude
		},
	}
	listings := []models.Listing{rankedListing("neg"), rankedListing("pos"), rankedListing("zero")}

	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	for _, l := range ranked {
		score := l.RelevanceScore()
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestRanker_StableTieOrder(t *testing.T) {
	embedder := &vectorEmbedder{
		profile:  []float32{1, 0},
		listings: [][]float32{{1, 0}, {1, 0}, {1, 0}},
	}
	listings := []models.Listing{rankedListing("first"), rankedListing("second"), rankedListing("third")}

	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	assert.Equal(t, "first", ranked[0].ID())
	assert.Equal(t, "second", ranked[1].ID())
	assert.Equal(t, "third", ranked[2].ID())
}

func TestRanker_ProfileEmbeddingFailureDegrades(t *testing.T) {
	embedder := &vectorEmbedder{textErr: errors.New("producer unavailable")}
	listings := []models.Listing{rankedListing("a"), rankedListing("b")}

	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].ID(), "original order preserved")
	assert.Equal(t, "b", ranked[1].ID())
	for _, l := range ranked {
		assert.Equal(t, 0, l.RelevanceScore())
		assert.Equal(t, degradedReasoning, l["relevance_reasoning"])
	}
	assert.Equal(t, 0, embedder.textsCalls, "listing embeddings skipped after profile failure")
}

func TestRanker_ListingEmbeddingFailureDegrades(t *testing.T) {
	embedder := &vectorEmbedder{
		profile:  []float32{1, 0},
		textsErr: errors.New("producer unavailable"),
	}
	listings := []models.Listing{rankedListing("a")}

	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].RelevanceScore())
}

func TestRanker_TruncatesDescription(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	listings := []models.Listing{{"id": "a", "title": "T", "description": string(long)}}

	embedder := &vectorEmbedder{profile: []float32{1}, listings: [][]float32{{1}}}
	NewRanker(embedder, 100, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	require.Len(t, embedder.seenTexts, 1)
	assert.Len(t, embedder.seenTexts[0], len("T\n")+100)
}

func TestRanker_TruncatesOnRuneBoundary(t *testing.T) {
	// 120 two-byte runes; an odd byte limit lands mid-rune.
	long := strings.Repeat("é", 120)
	listings := []models.Listing{{"id": "a", "title": "T", "description": long}}

	embedder := &vectorEmbedder{profile: []float32{1}, listings: [][]float32{{1}}}
	NewRanker(embedder, 101, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", listings)

	require.Len(t, embedder.seenTexts, 1)
	text := embedder.seenTexts[0]
	assert.True(t, utf8.ValidString(text))
	assert.Len(t, text, len("T\n")+100, "cut backs up to the previous rune boundary")
}

func TestRanker_EmptyInput(t *testing.T) {
	embedder := &vectorEmbedder{}
	ranked := NewRanker(embedder, 0, logger.NewNoOpLogger()).
		Rank(context.Background(), "profile", nil)

	assert.Empty(t, ranked)
	assert.Equal(t, 0, embedder.textsCalls)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
