package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/occva/X-Bookmarks/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses an export body. The top-level value must be an array;
// elements that are not objects are skipped and counted. Invalid JSON wraps
// domain.ErrJSONParse and a non-array value wraps domain.ErrNotArray.
func Decode(data []byte) ([]domain.Record, int, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))

	if bytes.Equal(data, []byte("null")) {
		return nil, 0, domain.ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, 0, domain.ErrNotArray
		}
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrJSONParse, err)
	}

	records := make([]domain.Record, 0, len(elems))
	skipped := 0
	for _, raw := range elems {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			skipped++
			continue
		}

		var r domain.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			// Mistyped fields leave the rest of the record decoded.
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				skipped++
				continue
			}
		}
		records = append(records, r)
	}

	return records, skipped, nil
}
