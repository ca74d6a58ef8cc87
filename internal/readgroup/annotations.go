package readgroup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"seqsubmit/internal/submiterr"
)

// KV is one submission annotation. Order is preserved because annotations
// are rendered into document text.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Annotations splits free-text submission metadata into library-construction
// and target-capture buckets.
type Annotations struct {
	LibraryConstruction []KV
	TargetCapture       []KV
}

// Empty reports whether no annotation was supplied.
func (a Annotations) Empty() bool {
	return len(a.LibraryConstruction) == 0 && len(a.TargetCapture) == 0
}

type rawAnnotation struct {
	Key   string     `json:"key"`
	Value FlexString `json:"value"`
}

// ParseAnnotations accepts the forms the metadata export produces: absent or
// null, an {"items": [...]} placeholder, a list of {key, value} objects, or
// that list embedded as a string with single quotes and None literals.
func ParseAnnotations(raw json.RawMessage) (Annotations, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Annotations{}, nil
	}

	var entries []rawAnnotation
	switch raw[0] {
	case '"':
		var embedded string
		if err := json.Unmarshal(raw, &embedded); err != nil {
			return Annotations{}, malformed(err)
		}
		embedded = strings.TrimSpace(embedded)
		if embedded == "" {
			return Annotations{}, nil
		}
		converted, err := literalToJSON(embedded)
		if err != nil {
			return Annotations{}, malformed(err)
		}
		return ParseAnnotations(converted)
	case '{':
		var placeholder struct {
			Items []rawAnnotation `json:"items"`
		}
		if err := json.Unmarshal(raw, &placeholder); err != nil {
			return Annotations{}, malformed(err)
		}
		entries = placeholder.Items
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Annotations{}, malformed(err)
		}
	default:
		return Annotations{}, fmt.Errorf("%w: unexpected value %s", submiterr.ErrMalformedAnnotations, raw)
	}
	return partition(entries), nil
}

func partition(entries []rawAnnotation) Annotations {
	var out Annotations
	for _, e := range entries {
		kv := KV{Key: e.Key, Value: e.Value.String()}
		if strings.Contains(e.Key, "library") {
			out.LibraryConstruction = append(out.LibraryConstruction, kv)
		} else {
			out.TargetCapture = append(out.TargetCapture, kv)
		}
	}
	return out
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", submiterr.ErrMalformedAnnotations, err)
}

// literalToJSON rewrites a Python-style literal (single or double quoted
// strings, None, True, False) as JSON. Keywords are only replaced outside
// string literals.
func literalToJSON(src string) (json.RawMessage, error) {
	var out bytes.Buffer
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\'' || r == '"':
			str, next, err := scanString(rs, i)
			if err != nil {
				return nil, err
			}
			quoted, err := json.Marshal(str)
			if err != nil {
				return nil, err
			}
			out.Write(quoted)
			i = next
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			switch word := string(rs[i:j]); word {
			case "None":
				out.WriteString("null")
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			default:
				return nil, fmt.Errorf("unexpected token %q at offset %d", word, i)
			}
			i = j
		default:
			out.WriteRune(r)
			i++
		}
	}
	return out.Bytes(), nil
}

// scanString reads the quoted literal starting at rs[start] and returns its
// value and the index just past the closing quote.
func scanString(rs []rune, start int) (string, int, error) {
	quote := rs[start]
	var sb strings.Builder
	for i := start + 1; i < len(rs); i++ {
		switch r := rs[i]; {
		case r == quote:
			return sb.String(), i + 1, nil
		case r == '\\' && i+1 < len(rs):
			i++
			switch esc := rs[i]; esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}
