// Package transform decides how a fetched payload is shaped for the caller
// and performs the shaping: image transcoding and HTML embedding.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

// mobileMarkers are matched case-insensitively against the caller's User-Agent.
var mobileMarkers = []string{
	"mobile",
	"android",
	"iphone",
	"ipad",
	"ipod",
	"opera mini",
	"iemobile",
	"wpdesktop",
}

// ClassifyClient returns ClientMobile when userAgent contains any mobile marker.
// An empty User-Agent is not mobile.
func ClassifyClient(userAgent string) model.ClientProfile {
	if userAgent == "" {
		return model.ClientOther
	}
	ua := strings.ToLower(userAgent)
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return model.ClientMobile
		}
	}
	return model.ClientOther
}

// ErrUnknownFormat is returned for a format query value other than "", "raw" or "html".
var ErrUnknownFormat = errors.New("unknown format")

// SelectMode picks the output mode for the image route.
//
// An explicit format wins: "html" embeds, "raw" passes through. Without one,
// mobile clients are transcoded when transcodeMobile is set and everyone else
// gets the raw bytes.
func SelectMode(format string, profile model.ClientProfile, transcodeMobile bool) (model.OutputMode, error) {
	switch strings.ToLower(format) {
	case "html":
		return model.ModeHTMLEmbedded, nil
	case "raw":
		return model.ModeRaw, nil
	case "":
		if profile == model.ClientMobile && transcodeMobile {
			return model.ModeTranscoded, nil
		}
		return model.ModeRaw, nil
	default:
		return model.ModeRaw, fmt.Errorf("%w %q: want html or raw", ErrUnknownFormat, format)
	}
}
