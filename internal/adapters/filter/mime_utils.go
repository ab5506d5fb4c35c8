package filter

import (
	"mime"
	"strings"
)

// decodeEncodedHeader decodes RFC 2047 encoded-words in a header value.
// Plain values pass through unchanged.
func decodeEncodedHeader(value string) (string, error) {
	if !strings.Contains(value, "=?") {
		return value, nil
	}

	dec := &mime.WordDecoder{}
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value, err
	}
	return decoded, nil
}
