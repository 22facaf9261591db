// Package audit writes one Elasticsearch document per smart search so
// search quality can be inspected after the fact. Audit writes never
// affect the request that produced them.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"jobsearch-api/internal/common/database"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/search"

	"github.com/google/uuid"
)

const defaultIndex = "smart-search-audit"

type searchDocument struct {
	UserID         int64     `json:"user_id"`
	Query          string    `json:"query"`
	VariationCount int       `json:"variation_count"`
	TaskCount      int       `json:"task_count"`
	FailedTasks    int       `json:"failed_tasks"`
	ResultCount    int       `json:"result_count"`
	FallbackUsed   bool      `json:"fallback_used"`
	DurationMs     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"@timestamp"`
}

// SearchLog implements search.AuditSink against an Elasticsearch index.
type SearchLog struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewSearchLog(es *database.ElasticsearchClient, index string, log logger.Logger) *SearchLog {
	if index == "" {
		index = defaultIndex
	}
	return &SearchLog{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-audit"}),
	}
}

// RecordSearch indexes one search summary. Failures are logged and
// swallowed; the search result has already been served.
func (l *SearchLog) RecordSearch(ctx context.Context, record search.AuditRecord) {
	doc := searchDocument{
		UserID:         record.UserID,
		Query:          record.Query,
		VariationCount: record.VariationCount,
		TaskCount:      record.TaskCount,
		FailedTasks:    record.FailedTasks,
		ResultCount:    record.ResultCount,
		FallbackUsed:   record.FallbackUsed,
		DurationMs:     record.Duration.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		l.logger.Warn("audit document marshal failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	res, err := l.es.Client.Index(
		l.index,
		bytes.NewReader(body),
		l.es.Client.Index.WithContext(ctx),
		l.es.Client.Index.WithDocumentID(uuid.New().String()),
	)
	if err != nil {
		l.logger.Warn("audit index write failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		l.logger.Warn("audit index write rejected", map[string]interface{}{
			"status": res.Status(),
		})
	}
}
