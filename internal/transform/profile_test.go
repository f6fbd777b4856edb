package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

func TestClassifyClient(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want model.ClientProfile
	}{
		{"iPhone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15", model.ClientMobile},
		{"Android", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/121.0 Mobile Safari/537.36", model.ClientMobile},
		{"iPad", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", model.ClientMobile},
		{"iPod", "Mozilla/5.0 (iPod touch; CPU iPhone OS 12_0 like Mac OS X)", model.ClientMobile},
		{"Opera Mini", "Opera/9.80 (J2ME/MIDP; Opera Mini/9.80 (S60; SymbOS; Opera Mobi/23.348; U; en) Presto/2.5.25 Version/10.54", model.ClientMobile},
		{"IEMobile", "Mozilla/5.0 (compatible; MSIE 10.0; Windows Phone 8.0; Trident/6.0; IEMobile/10.0)", model.ClientMobile},
		{"WPDesktop", "Mozilla/5.0 (Windows NT 6.2; ARM; Trident/7.0; Touch; rv:11.0; WPDesktop; Lumia 920) like Gecko", model.ClientMobile},
		{"bare Mobile token", "SomeBot/1.0 Mobile", model.ClientMobile},
		{"case-insensitive", "MOZILLA/5.0 (IPHONE)", model.ClientMobile},
		{"lowercase marker", "custom-android-client/2.1", model.ClientMobile},
		{"Windows desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", model.ClientOther},
		{"macOS Safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15", model.ClientOther},
		{"curl", "curl/8.4.0", model.ClientOther},
		{"empty", "", model.ClientOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyClient(tt.ua))
		})
	}
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		profile   model.ClientProfile
		transcode bool
		want      model.OutputMode
	}{
		{"desktop default", "", model.ClientOther, true, model.ModeRaw},
		{"mobile default", "", model.ClientMobile, true, model.ModeTranscoded},
		{"mobile with transcoding off", "", model.ClientMobile, false, model.ModeRaw},
		{"html for desktop", "html", model.ClientOther, true, model.ModeHTMLEmbedded},
		{"html wins over mobile", "HTML", model.ClientMobile, true, model.ModeHTMLEmbedded},
		{"raw opt-out for mobile", "raw", model.ClientMobile, true, model.ModeRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMode(tt.format, tt.profile, tt.transcode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectMode_UnknownFormat(t *testing.T) {
	_, err := SelectMode("webp", model.ClientOther, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
	assert.Contains(t, err.Error(), "webp")
}
