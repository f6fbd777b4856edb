package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

var (
	// ErrUnauthorized is returned when the route key is unset, missing or wrong.
	ErrUnauthorized = errors.New("invalid or missing api key")
	// ErrMissingPrompt is returned when the request has no prompt.
	ErrMissingPrompt = errors.New("prompt is required")
	// ErrAIUnconfigured is returned when no upstream credential is configured.
	ErrAIUnconfigured = errors.New("GEMINI_API_KEY is not configured")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// AIService guards the generative-text passthrough with a shared secret.
type AIService struct {
	gen      Generator
	routeKey string
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewAIService creates an AIService. The metrics parameter is optional.
func NewAIService(gen Generator, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *AIService {
	return &AIService{
		gen:      gen,
		routeKey: cfg.AI.RouteKey,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "ai_service"),
		metrics:  m,
	}
}

// Enabled reports whether the route can ever authorize a caller.
func (s *AIService) Enabled() bool {
	return s.routeKey != ""
}

// Complete authorizes the caller, validates the prompt and forwards it.
// headerKey takes precedence over req.APIKey. Authorization is checked
// before the prompt, so a bad key is rejected whatever the body holds.
func (s *AIService) Complete(ctx context.Context, req *model.PromptRequest, headerKey string) (string, error) {
	key := headerKey
	if key == "" {
		key = req.APIKey
	}
	if !s.authorized(key) {
		s.record("forbidden")
		return "", ErrUnauthorized
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := s.validate.Struct(req); err != nil {
		s.record("bad_request")
		s.logger.Debug("prompt rejected", "err", err)
		return "", ErrMissingPrompt
	}

	if !s.gen.Configured() {
		s.record("unconfigured")
		return "", ErrAIUnconfigured
	}

	text, err := s.gen.Generate(ctx, req.Prompt)
	if err != nil {
		s.record("upstream_error")
		return "", err
	}
	s.record("ok")
	return text, nil
}

func (s *AIService) authorized(key string) bool {
	if s.routeKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.routeKey)) == 1
}

func (s *AIService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.AIRequestsTotal.WithLabelValues(outcome).Inc()
	}
}
