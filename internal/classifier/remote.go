package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/metrics"
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Remote classifies text through a hosted sentiment model endpoint. The
// endpoint accepts a JSON batch and returns one label/score pair per input.
type Remote struct {
	endpoint string
	client   *http.Client
}

func NewRemote(endpoint string, timeout time.Duration) *Remote {
	return &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Texts []string `json:"texts"`
}

type remotePrediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type remoteResponse struct {
	Predictions []remotePrediction `json:"predictions"`
}

func (r *Remote) Classify(ctx context.Context, texts []string) ([]domain.Prediction, error) {
	if len(texts) == 0 {
		return []domain.Prediction{}, nil
	}

	start := time.Now()
	body, err := json.Marshal(remoteRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	resp, err := r.doWithRetry(ctx, body)
	if err != nil {
		metrics.ClassifyDuration.WithLabelValues("remote", "error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify endpoint returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classify response: %w", err)
	}
	if len(decoded.Predictions) != len(texts) {
		return nil, fmt.Errorf("classify endpoint returned %d predictions for %d texts",
			len(decoded.Predictions), len(texts))
	}

	predictions := make([]domain.Prediction, len(decoded.Predictions))
	for i, p := range decoded.Predictions {
		label, err := mapModelLabel(p.Label)
		if err != nil {
			return nil, err
		}
		predictions[i] = domain.Prediction{Label: label, Score: p.Score}
	}

	metrics.ClassifyDuration.WithLabelValues("remote", "ok").Observe(time.Since(start).Seconds())
	return predictions, nil
}

// doWithRetry retries transport failures and 5xx responses with doubling
// backoff. 4xx responses are returned to the caller unretried.
func (r *Remote) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	backoff := initialBackoff

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build classify request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("classify endpoint returned status %d", resp.StatusCode)
			_ = resp.Body.Close()
		}

		slog.Warn("classify request failed, retrying",
			"attempt", attempt+1, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("classify request failed after %d attempts: %w", maxRetries, lastErr)
}

// mapModelLabel normalizes model output onto the label enum. Transformer
// checkpoints emit LABEL_0/1/2 in negative/neutral/positive order; friendlier
// deployments emit the names directly.
func mapModelLabel(raw string) (domain.Label, error) {
	switch raw {
	case "LABEL_0":
		return domain.LabelNegative, nil
	case "LABEL_1":
		return domain.LabelNeutral, nil
	case "LABEL_2":
		return domain.LabelPositive, nil
	}
	return domain.ParseLabel(raw)
}
