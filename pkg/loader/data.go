package loader

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// DataLoader decodes data: URLs (RFC 2397).
type DataLoader struct{}

// Load decodes the payload of a data: URL.
func (DataLoader) Load(ctx context.Context, u string) (*Resource, error) {
	res, err := ParseDataURL(u)
	if err != nil {
		return nil, &agerrors.LoadError{URL: truncate(u), Message: "malformed data url", Cause: err}
	}
	return res, nil
}

// ParseDataURL decodes a data: URL into a Resource. The media type defaults
// to text/plain as specified by RFC 2397.
func ParseDataURL(u string) (*Resource, error) {
	if len(u) < 5 || !strings.EqualFold(u[:5], "data:") {
		return nil, agerrors.New(agerrors.ErrCodeInvalidURL, "not a data url")
	}
	header, payload, ok := strings.Cut(u[5:], ",")
	if !ok {
		return nil, agerrors.New(agerrors.ErrCodeInvalidURL, "data url has no comma")
	}

	res := &Resource{ContentType: "text/plain"}
	isBase64 := false
	for i, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		switch {
		case i == 0 && part != "":
			res.ContentType = strings.ToLower(part)
		case strings.EqualFold(part, "base64"):
			isBase64 = true
		case strings.HasPrefix(strings.ToLower(part), "charset="):
			res.Charset = strings.Trim(part[len("charset="):], `"'`)
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(strings.Map(dropSpace, payload))
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.Map(dropSpace, payload), "="))
			if err != nil {
				return nil, err
			}
		}
		res.Data = data
		return res, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	res.Data = []byte(decoded)
	return res, nil
}

// DataURL encodes data as a data: URL. Textual media types are
// percent-encoded when that is shorter than base64.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b64 := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if !isTextual(contentType) {
		return b64
	}
	plain := "data:" + contentType + "," + escapeData(string(data))
	if len(plain) <= len(b64) {
		return plain
	}
	return b64
}

func isTextual(ct string) bool {
	return strings.HasPrefix(ct, "text/") || strings.HasSuffix(ct, "+xml") ||
		ct == "application/json" || ct == "application/javascript"
}

// escapeData percent-encodes everything url.PathEscape would, except commas
// which are legal in the payload.
func escapeData(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "%2C", ",")
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\n', '\r', '\t':
		return -1
	}
	return r
}

func truncate(u string) string {
	const max = 64
	if len(u) > max {
		return u[:max] + "..."
	}
	return u
}
