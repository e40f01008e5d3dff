package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const defaultTextWidth = 100

// Texter is implemented by values with a human-readable rendering.
type Texter interface {
	Text(width int) string
}

// Write writes v as json (default), edn or text. Values that are not Texters
// fall back to indented JSON in text mode.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "text":
		if t, ok := v.(Texter); ok {
			_, err := fmt.Fprintln(w, strings.TrimRight(t.Text(defaultTextWidth), "\n"))
			return err
		}
		return WriteJSON(w, v, true)
	}
	return fmt.Errorf("unknown format: %s", format)
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
