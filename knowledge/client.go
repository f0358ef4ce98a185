// Package knowledge queries the knowledge-base service and gates external
// model answers on retrieval confidence.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Document is one retrieved knowledge snippet.
type Document struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResult is the knowledge service's reply for a query.
type SearchResult struct {
	Results      []Document `json:"results"`
	HasKnowledge bool       `json:"has_knowledge"`
	HighestScore float64    `json:"highest_score"`
}

// SearchClient posts queries to the knowledge-base /search endpoint.
type SearchClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSearchClient creates a search client with a bounded request timeout.
func NewSearchClient(baseURL string, timeout time.Duration) *SearchClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SearchClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search runs a knowledge query. Transport failures and non-200 statuses are
// returned as errors; the caller decides how to degrade.
func (c *SearchClient) Search(ctx context.Context, query string) (*SearchResult, error) {
	payload, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, errors.Wrap(err, "marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "knowledge search")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge search: status %d", resp.StatusCode)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	slog.Debug("knowledge: search completed",
		"results", len(result.Results),
		"highest_score", result.HighestScore,
	)
	return &result, nil
}
