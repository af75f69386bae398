// Package scoring provides the batch scorers the driver consults before
// export.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

var (
	// ErrUnavailable indicates the scoring service could not be reached.
	ErrUnavailable = errors.New("scoring service unavailable")
	// ErrScoreCount indicates the service returned the wrong number of scores.
	ErrScoreCount = errors.New("score count does not match batch size")
)

// Passthrough scores every document 1.0, so every record clears any
// threshold below one.
type Passthrough struct{}

// Score implements ingest.Scorer.
func (Passthrough) Score(_ context.Context, docs []string) ([]float64, error) {
	scores := make([]float64, len(docs))
	for i := range scores {
		scores[i] = 1
	}
	return scores, nil
}

// ScoreRequest is the body posted to the scoring endpoint.
type ScoreRequest struct {
	Documents []string `json:"documents"`
}

// ScoreResponse is the body returned by the scoring endpoint.
type ScoreResponse struct {
	Scores []float64 `json:"scores"`
}

// HTTPScorer posts batches to a remote model server.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPScorer builds a scorer for baseURL. A non-positive timeout leaves
// requests bounded only by the caller's context.
func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: max(timeout, 0)},
	}
}

// Score implements ingest.Scorer.
func (s *HTTPScorer) Score(ctx context.Context, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(ScoreRequest{Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("score request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	if len(out.Scores) != len(docs) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrScoreCount, len(out.Scores), len(docs))
	}
	return out.Scores, nil
}

var (
	_ ingest.Scorer = Passthrough{}
	_ ingest.Scorer = (*HTTPScorer)(nil)
)
