// Package model defines the request-scoped types that flow through the relay pipeline.
package model

import (
	"net/http"
)

// FetchRequest names the resource to fetch and the headers to fetch it with.
type FetchRequest struct {
	URL string
	// Accept overrides the disguise Accept header for this route.
	Accept string
}

// FetchResult is a successful upstream response.
type FetchResult struct {
	StatusCode  int
	Status      string
	ContentType string
	Header      http.Header
	Body        Payload
}

// ClientProfile classifies the caller's device from its User-Agent.
type ClientProfile int

const (
	ClientOther ClientProfile = iota
	ClientMobile
)

func (p ClientProfile) String() string {
	if p == ClientMobile {
		return "mobile"
	}
	return "other"
}

// OutputMode selects how a fetched payload is turned into a response.
type OutputMode int

const (
	ModeRaw OutputMode = iota
	ModeTranscoded
	ModeHTMLEmbedded
	ModePlainText
)

func (m OutputMode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeTranscoded:
		return "transcoded"
	case ModeHTMLEmbedded:
		return "html"
	case ModePlainText:
		return "text"
	default:
		return "unknown"
	}
}

// Output is a transformed payload ready to be relayed.
// Exactly one of Data and Stream is set.
type Output struct {
	Mode        OutputMode
	ContentType string
	Data        []byte
	Stream      ChunkReader
	// Image marks binary image responses, the only ones that carry a cache directive.
	Image bool
}
