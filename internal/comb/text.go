package comb

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a tolerant string input. Any non-string JSON value decodes as
// empty instead of failing the enclosing document.
type Text string

// Trim returns the value with surrounding whitespace removed.
func (t Text) Trim() string {
	return strings.TrimSpace(string(t))
}

// UnmarshalJSON never returns an error.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// TextList is a tolerant string list. A bare string decodes as a one-item
// list; non-string elements are skipped; any other value decodes as empty.
type TextList []string

// UnmarshalJSON never returns an error.
func (l *TextList) UnmarshalJSON(data []byte) error {
	*l = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			*l = TextList{s}
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		out := make(TextList, 0, len(items))
		for _, item := range items {
			var s string
			if len(item) == 0 || item[0] != '"' {
				continue
			}
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, s)
			}
		}
		*l = out
	}
	return nil
}
