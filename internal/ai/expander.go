// Package ai holds the LLM-backed collaborators of the search orchestrator:
// query expansion and text embedding.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xeipuuv/gojsonschema"
)

// QueryExpander turns a free-text query plus a profile summary into an
// ordered list of search variations.
type QueryExpander interface {
	Expand(ctx context.Context, userQuery, profileSummary string) ([]models.SearchVariation, error)
}

// variationsSchema constrains the model output before it reaches the
// orchestrator: anything that fails validation here is retried, never
// passed downstream.
const variationsSchema = `{
	"type": "object",
	"properties": {
		"variations": {
			"type": "array",
			"minItems": 1,
			"maxItems": 6,
			"items": {
				"type": "object",
				"properties": {
					"keywords": {"type": "string", "minLength": 1},
					"location_raw": {"type": "string"},
					"location_type": {"type": "string", "enum": ["region", "departement", "commune", "unknown"]},
					"experience_level": {"type": "string"},
					"experience_requirement": {"type": "string"},
					"contract_type": {"type": "string"},
					"is_full_time": {"type": "boolean"}
				},
				"required": ["keywords"]
			}
		}
	},
	"required": ["variations"]
}`

const expanderSystemPrompt = `You are a job-search query planner for the French job market.
Given a user's request and a summary of their professional profile, produce between 2 and 5
search parameter variations to run in parallel against a job-listing API.
Vary the keywords (synonyms, related roles) and keep any location the user mentioned.
Respond with JSON only, of the form:
{"variations": [{"keywords": "...", "location_raw": "...", "location_type": "region|departement|commune|unknown",
"experience_level": "...", "experience_requirement": "...", "contract_type": "...", "is_full_time": true}]}
Omit any field you cannot infer. location_type is your best guess at what kind of place location_raw names.`

type ExpanderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// LLMExpander implements QueryExpander on an OpenAI-compatible chat API.
type LLMExpander struct {
	client llms.Model
	config *ExpanderConfig
	schema gojsonschema.JSONLoader
	logger logger.Logger
}

func NewLLMExpander(config *ExpanderConfig, log logger.Logger) (*LLMExpander, error) {
	opts := []openai.Option{
		openai.WithModel(config.Model),
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

	return newLLMExpander(client, config, log), nil
}

// newLLMExpander wires an existing model, used directly by tests.
func newLLMExpander(client llms.Model, config *ExpanderConfig, log logger.Logger) *LLMExpander {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	return &LLMExpander{
		client: client,
		config: config,
		schema: gojsonschema.NewStringLoader(variationsSchema),
		logger: log.WithFields(map[string]interface{}{"component": "query-expander"}),
	}
}

func (e *LLMExpander) Expand(ctx context.Context, userQuery, profileSummary string) ([]models.SearchVariation, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(expanderSystemPrompt)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(
				fmt.Sprintf("Request: %s\n\nProfile:\n%s", userQuery, profileSummary),
			)},
		},
	}

	// Malformed JSON from the model is worth a couple of retries before
	// the whole request gives up.
	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		response, err := e.client.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, errors.NewExpansionTimeoutError()
			}
			return nil, errors.NewExpansionFailedError(err)
		}
		if len(response.Choices) < 1 {
			return nil, errors.NewExpansionFailedError(fmt.Errorf("model returned no choices"))
		}

		variations, err := e.parse(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("expansion payload rejected, retrying", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			continue
		}

		e.logger.Info("query expanded", map[string]interface{}{
			"variationCount": len(variations),
		})
		return variations, nil
	}

	return nil, errors.NewExpansionBadOutputError(lastErr.Error())
}

func (e *LLMExpander) parse(raw string) ([]models.SearchVariation, error) {
	raw = strings.TrimSpace(raw)
	// Some models wrap JSON in a fenced block even in JSON mode.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	result, err := gojsonschema.Validate(e.schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("invalid variations payload: %s", strings.Join(details, "; "))
	}

	var payload struct {
		Variations []models.SearchVariation `json:"variations"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return payload.Variations, nil
}
