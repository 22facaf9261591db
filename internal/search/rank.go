package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"jobsearch-api/internal/ai"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/common/metrics"
	"jobsearch-api/internal/models"
)

const (
	defaultDescriptionLimit = 1500
	degradedReasoning       = "ranking unavailable: embedding step failed"
)

// Ranker orders listings by cosine similarity between the user's profile
// summary and each listing's text.
type Ranker struct {
	embedder         ai.Embedder
	descriptionLimit int
	logger           logger.Logger
}

func NewRanker(embedder ai.Embedder, descriptionLimit int, log logger.Logger) *Ranker {
	if descriptionLimit <= 0 {
		descriptionLimit = defaultDescriptionLimit
	}
	return &Ranker{
		embedder:         embedder,
		descriptionLimit: descriptionLimit,
		logger:           log.WithFields(map[string]interface{}{"component": "ranker"}),
	}
}

// Rank scores every listing in [0,100] and sorts descending; ties keep
// the input (merge) order. Embedding failures degrade every listing to
// score 0 in the original order rather than failing the search.
func (r *Ranker) Rank(ctx context.Context, profileSummary string, listings []models.Listing) []models.Listing {
	if len(listings) == 0 {
		return listings
	}

	profileVector, err := r.embedder.EmbedText(ctx, profileSummary)
	if err != nil {
		return r.degrade(listings, err)
	}

	texts := make([]string, len(listings))
	for i, listing := range listings {
		texts[i] = r.listingText(listing)
	}
	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vectors) != len(listings) {
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors for %d listings", len(vectors), len(listings))
		}
		return r.degrade(listings, err)
	}

	for i, listing := range listings {
		similarity := cosineSimilarity(profileVector, vectors[i])
		listing.SetRelevance(
			scoreFromSimilarity(similarity),
			fmt.Sprintf("cosine similarity %.3f against profile", similarity),
		)
	}

	sort.SliceStable(listings, func(a, b int) bool {
		return listings[a].RelevanceScore() > listings[b].RelevanceScore()
	})

	return listings
}

func (r *Ranker) degrade(listings []models.Listing, cause error) []models.Listing {
	metrics.RankingDegradedTotal.Inc()
	r.logger.WithError(cause).Error("ranking degraded, scoring all listings 0", map[string]interface{}{
		"listingCount": len(listings),
	})
	for _, listing := range listings {
		listing.SetRelevance(0, degradedReasoning)
	}
	return listings
}

// listingText is the bounded embedding input: title plus a truncated
// description, so oversized postings don't blow the embedding request.
// The cut backs up to a rune boundary so accented text stays valid UTF-8.
func (r *Ranker) listingText(listing models.Listing) string {
	description := listing.Description()
	if len(description) > r.descriptionLimit {
		cut := r.descriptionLimit
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut]
	}
	return listing.Title() + "\n" + description
}

// scoreFromSimilarity maps cosine similarity to an integer score.
// Negative similarity clamps to 0 rather than floor-truncating into a
// negative score.
func scoreFromSimilarity(similarity float64) int {
	if similarity <= 0 {
		return 0
	}
	score := int(math.Floor(similarity * 100))
	if score > 100 {
		return 100
	}
	return score
}

// cosineSimilarity is 0 for zero-magnitude or mismatched vectors, never
// an error.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
