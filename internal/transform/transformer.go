package transform

import (
	"fmt"
	"log/slog"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

// PlainTextContentType is used for the text relay regardless of upstream type.
const PlainTextContentType = "text/plain; charset=utf-8"

// Transformer turns a FetchResult into an Output for one OutputMode.
type Transformer struct {
	transcoder Transcoder
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewTransformer creates a Transformer from the [transform] config section.
// The metrics parameter is optional.
func NewTransformer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Transformer {
	return &Transformer{
		transcoder: Transcoder{MaxWidth: cfg.Transform.MaxWidth, Quality: cfg.Transform.JPEGQuality},
		logger:     logger.With("component", "transformer"),
		metrics:    m,
	}
}

// Transform consumes res.Body. Raw output backed by a streaming payload is
// returned as Output.Stream and the caller must close it; in every other case
// the body is read fully and closed here.
func (t *Transformer) Transform(res *model.FetchResult, mode model.OutputMode) (*model.Output, error) {
	if mode == model.ModeRaw {
		if cr, ok := res.Body.(model.ChunkReader); ok {
			t.record(mode, "ok")
			return &model.Output{Mode: mode, ContentType: res.ContentType, Stream: cr, Image: true}, nil
		}
	}

	data, err := res.Body.ReadAll()
	_ = res.Body.Close()
	if err != nil {
		t.record(mode, "error")
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	out, err := t.shape(data, res.ContentType, mode)
	if err != nil {
		t.record(mode, "error")
		return nil, err
	}
	t.record(mode, "ok")
	return out, nil
}

func (t *Transformer) shape(data []byte, contentType string, mode model.OutputMode) (*model.Output, error) {
	switch mode {
	case model.ModeRaw:
		return &model.Output{Mode: mode, ContentType: contentType, Data: data, Image: true}, nil

	case model.ModeTranscoded:
		enc, size, err := t.transcoder.Transcode(data)
		if err != nil {
			return nil, err
		}
		t.logger.Debug("transcoded image",
			"in_bytes", len(data),
			"out_bytes", len(enc),
			"width", size.X,
			"height", size.Y,
		)
		return &model.Output{Mode: mode, ContentType: TranscodedContentType, Data: enc, Image: true}, nil

	case model.ModeHTMLEmbedded:
		page, err := EmbedHTML(data, contentType)
		if err != nil {
			return nil, err
		}
		return &model.Output{Mode: mode, ContentType: HTMLContentType, Data: page}, nil

	case model.ModePlainText:
		return &model.Output{Mode: mode, ContentType: PlainTextContentType, Data: data}, nil

	default:
		return nil, fmt.Errorf("unsupported output mode %v", mode)
	}
}

func (t *Transformer) record(mode model.OutputMode, result string) {
	if t.metrics != nil {
		t.metrics.TransformsTotal.WithLabelValues(mode.String(), result).Inc()
	}
}
