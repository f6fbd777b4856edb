// Package service implements the fetch-transform pipeline and the
// generative-text passthrough.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/client"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/transform"
)

var (
	// ErrMissingURL is returned when the caller did not name a target.
	ErrMissingURL = errors.New("url parameter is required")
	// ErrUnsupportedScheme is returned for targets that are not http(s) URLs.
	ErrUnsupportedScheme = errors.New("target must be an absolute http or https URL")
	// ErrHostNotAllowed is returned when fetch.allowed_hosts is set and the target is not on it.
	ErrHostNotAllowed = errors.New("target host is not allowed")
)

// Fetcher retrieves a target URL.
type Fetcher interface {
	Fetch(ctx context.Context, fr *model.FetchRequest) (*model.FetchResult, error)
}

// RelayService runs fetch then transform for the image and text routes.
type RelayService struct {
	fetcher         Fetcher
	transformer     *transform.Transformer
	logger          *slog.Logger
	transcodeMobile bool
	allowedHosts    []string
}

// NewRelayService creates a RelayService.
func NewRelayService(f Fetcher, t *transform.Transformer, cfg *config.Config, logger *slog.Logger) *RelayService {
	hosts := make([]string, 0, len(cfg.Fetch.AllowedHosts))
	for _, h := range cfg.Fetch.AllowedHosts {
		hosts = append(hosts, strings.ToLower(h))
	}
	return &RelayService{
		fetcher:         f,
		transformer:     t,
		logger:          logger.With("component", "relay_service"),
		transcodeMobile: cfg.Transform.TranscodeMobile(),
		allowedHosts:    hosts,
	}
}

// ImageRequest is one call to the image route.
type ImageRequest struct {
	URL       string
	Format    string // "", "raw" or "html"
	UserAgent string // the caller's own User-Agent
}

// RelayImage fetches an image and shapes it for the caller. The mode is chosen
// before any network I/O so a bad format never reaches the upstream.
// If the returned Output has a Stream, the caller must close it.
func (s *RelayService) RelayImage(ctx context.Context, ir *ImageRequest) (*model.Output, error) {
	if ir.URL == "" {
		return nil, ErrMissingURL
	}

	profile := transform.ClassifyClient(ir.UserAgent)
	mode, err := transform.SelectMode(ir.Format, profile, s.transcodeMobile)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ir.URL); err != nil {
		return nil, err
	}

	s.logger.Debug("relaying image",
		"profile", profile.String(),
		"mode", mode.String(),
	)

	res, err := s.fetcher.Fetch(ctx, &model.FetchRequest{URL: ir.URL, Accept: client.AcceptImage})
	if err != nil {
		return nil, err
	}
	return s.transformer.Transform(res, mode)
}

// RelayText fetches a page and returns it verbatim as plain text.
func (s *RelayService) RelayText(ctx context.Context, rawURL string) (*model.Output, error) {
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	if err := s.checkTarget(rawURL); err != nil {
		return nil, err
	}

	res, err := s.fetcher.Fetch(ctx, &model.FetchRequest{URL: rawURL, Accept: client.AcceptText})
	if err != nil {
		return nil, err
	}
	return s.transformer.Transform(res, model.ModePlainText)
}

func (s *RelayService) checkTarget(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedScheme, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrUnsupportedScheme, u.Scheme)
	}
	if !s.hostAllowed(u.Hostname()) {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return nil
}

// hostAllowed reports whether host equals or is a subdomain of an allowlisted host.
// An empty allowlist permits every host.
func (s *RelayService) hostAllowed(host string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, a := range s.allowedHosts {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
