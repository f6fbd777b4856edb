package transform

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"mime"
	"strings"
)

// HTMLContentType is the content type of embedded pages.
const HTMLContentType = "text/html; charset=utf-8"

var embedTemplate = template.Must(template.New("embed").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Image</title>
<style>
html, body { margin: 0; height: 100%; background: #111; }
body { display: flex; align-items: center; justify-content: center; }
img { max-width: 100%; max-height: 100vh; }
</style>
</head>
<body>
<img src="{{.Src}}" alt="">
</body>
</html>
`))

// EmbedHTML returns a minimal page that shows data as a centered base64 data URI.
// The whole payload is inlined; there is no size limit.
func EmbedHTML(data []byte, contentType string) ([]byte, error) {
	var buf bytes.Buffer
	err := embedTemplate.Execute(&buf, struct{ Src template.URL }{
		// template.URL stops html/template from rewriting the data: scheme to #ZgotmplZ.
		Src: template.URL(DataURI(data, contentType)),
	})
	if err != nil {
		return nil, &TransformError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// DataURI builds a base64 data URI. Media type parameters are dropped.
func DataURI(data []byte, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
