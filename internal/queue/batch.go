package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ParseBatch decodes a user-supplied list of package identifiers. The input
// must be a JSON array of strings; single quotes are accepted in place of
// double quotes. A bare string, number, or object is rejected rather than
// being treated as a collection. Identifiers must be UUIDs and are returned
// in canonical lowercase form.
func ParseBatch(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(bytes.ReplaceAll(data, []byte("'"), []byte(`"`)))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: input is empty", ErrMalformedBatch)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of package identifiers", ErrMalformedBatch)
	}

	var raw []string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}

	ids := make([]string, 0, len(raw))
	for idx, value := range raw {
		parsed, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%q) is not a package uuid", ErrMalformedBatch, idx, value)
		}
		ids = append(ids, parsed.String())
	}
	return ids, nil
}

// validatePackageID rejects identifiers that cannot be a stored key.
func validatePackageID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty package identifier", ErrMalformedBatch)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: package identifier %q contains whitespace", ErrMalformedBatch, id)
		}
	}
	return nil
}
