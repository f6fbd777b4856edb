package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
)

// ErrEmptyCompletion is returned when Gemini answers without any candidate text.
var ErrEmptyCompletion = errors.New("gemini returned no text")

// maxErrorBody bounds how much of an upstream error body is read for diagnostics.
const maxErrorBody = 8 * 1024

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string
	apiKey     string
}

// NewGeminiClient creates a GeminiClient from the [ai] config section.
// The metrics parameter is optional.
func NewGeminiClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *GeminiClient {
	endpoint := strings.TrimRight(cfg.AI.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.AI.Model) + ":generateContent"

	return &GeminiClient{
		httpClient: newHTTPClient(10, cfg.AI.TimeoutSeconds),
		logger:     logger.With("component", "gemini_client"),
		metrics:    m,
		endpoint:   endpoint,
		apiKey:     cfg.AI.GeminiAPIKey,
	}
}

// Configured reports whether an upstream credential is present.
func (g *GeminiClient) Configured() bool {
	return g.apiKey != ""
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if g.metrics != nil {
		g.metrics.UpstreamDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if g.metrics != nil {
		g.metrics.UpstreamResponses.WithLabelValues("gemini", strconv.Itoa(resp.StatusCode)).Inc()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := newUpstreamError(resp)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var ge geminiError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			ue.Detail = ge.Error.Message
		}
		return "", ue
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyCompletion, out.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyCompletion, out.Candidates[0].FinishReason)
	}

	g.logger.Debug("gemini completion", "chars", sb.Len(), "finish_reason", out.Candidates[0].FinishReason)
	return sb.String(), nil
}
