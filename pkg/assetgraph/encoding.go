package assetgraph

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

const utf8Name = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lookupEncoding maps a charset label to its WHATWG encoding and canonical
// name. Unknown labels report ok=false.
func lookupEncoding(label string) (encoding.Encoding, string, bool) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == utf8Name || label == "utf8" {
		return nil, utf8Name, true
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, "", false
	}
	if name == utf8Name {
		enc = nil
	}
	return enc, name, true
}

// decode converts raw bytes in the named encoding to a Go string.
func decode(raw []byte, label string) (string, error) {
	enc, _, ok := lookupEncoding(label)
	if !ok {
		return "", &encodingError{label: label}
	}
	if enc == nil {
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encode converts text to bytes in the named encoding. Characters the
// encoding cannot represent are replaced rather than failing.
func encode(text, label string) ([]byte, error) {
	enc, _, ok := lookupEncoding(label)
	if !ok {
		return nil, &encodingError{label: label}
	}
	if enc == nil {
		return []byte(text), nil
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
}

// sniffTextual reports whether raw looks like text (valid UTF-8 with a BOM
// or no NUL bytes in its head).
func sniffTextual(raw []byte) bool {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.HasPrefix(head, utf8BOM) {
		return true
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 && len(head) > 3 {
			return false
		}
		head = head[size:]
	}
	return true
}

type encodingError struct{ label string }

func (e *encodingError) Error() string { return "unsupported encoding " + e.label }
