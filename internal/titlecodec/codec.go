// Package titlecodec packs a display label and a small JSON metadata blob
// into a single bookmark title string, and parses it back.
//
// Encoded form is "<label> <json-object>". Decoding scans for the last '{'
// and the last '}' in the title; if the close brace follows the open brace
// and the slice between them parses as a JSON object, that object is the
// metadata and everything before the open brace (trimmed) is the label.
// A title holding several {...} blocks therefore resolves to the right-most
// syntactically valid one, so re-encoded titles keep the freshest metadata.
//
// Titles written by older builds used the positional form "<name> (<id>)"
// with a lowercase hex-and-hyphen identifier; session decoding falls back
// to that pattern before giving up.
package titlecodec

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// legacyPattern matches "<name> (<hex-uuid>)" titles from the positional
// encoding era. The identifier is lowercase hex and hyphens only.
var legacyPattern = regexp.MustCompile(`^(.*?)\s*\(([0-9a-f][0-9a-f-]+)\)\s*$`)

// SessionMeta is the metadata blob carried by a session folder title.
type SessionMeta struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// TabMeta is the metadata blob carried by a mirrored tab bookmark title.
type TabMeta struct {
	LastModified int64  `json:"lastModified,omitempty"`
	Owner        string `json:"owner,omitempty"`
}

// Encode packs a label and a JSON-serializable metadata value into one
// title string.
func Encode(label string, metadata any) (string, error) {
	blob, err := sonic.MarshalString(metadata)
	if err != nil {
		return "", err
	}
	return label + " " + blob, nil
}

// EncodeSession builds a session folder title. SessionMeta cannot fail to
// marshal, so the error path collapses to returning the bare name.
func EncodeSession(name string, meta SessionMeta) string {
	title, err := Encode(name, meta)
	if err != nil {
		return name
	}
	return title
}

// EncodeTab builds a mirrored tab bookmark title.
func EncodeTab(title string, meta TabMeta) string {
	encoded, err := Encode(title, meta)
	if err != nil {
		return title
	}
	return encoded
}

// Decode splits a title into its label and raw metadata JSON. ok is false
// when the title carries no parseable metadata object; callers must then
// treat the whole string as an opaque label.
func Decode(title string) (label string, raw []byte, ok bool) {
	open := strings.LastIndexByte(title, '{')
	end := strings.LastIndexByte(title, '}')
	if open < 0 || end < open {
		return "", nil, false
	}

	candidate := []byte(title[open : end+1])
	var probe map[string]any
	if err := sonic.Unmarshal(candidate, &probe); err != nil {
		return "", nil, false
	}

	return strings.TrimSpace(title[:open]), candidate, true
}

// DecodeSession parses a session folder title. It returns ok only when a
// session id was recovered, either from embedded JSON metadata or from the
// legacy positional format (in which case UpdatedAt stays zero).
func DecodeSession(title string) (name string, meta SessionMeta, ok bool) {
	if label, raw, found := Decode(title); found {
		if err := sonic.Unmarshal(raw, &meta); err == nil && meta.ID != "" {
			return label, meta, true
		}
	}

	if m := legacyPattern.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1]), SessionMeta{ID: m[2]}, true
	}

	return "", SessionMeta{}, false
}

// DecodeTab parses a mirrored tab bookmark title. When the title carries no
// metadata the whole string is returned as the label with zero-value
// metadata and ok false; the repository substitutes placeholders.
func DecodeTab(title string) (label string, meta TabMeta, ok bool) {
	lbl, raw, found := Decode(title)
	if !found {
		return title, TabMeta{}, false
	}
	if err := sonic.Unmarshal(raw, &meta); err != nil {
		return title, TabMeta{}, false
	}
	return lbl, meta, true
}
