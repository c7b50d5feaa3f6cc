// Package formatting provides tolerant decoding of structured model output.
package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDecodeFailed is returned when content cannot be decoded as JSON,
// either directly or from a markdown code fence.
var ErrDecodeFailed = errors.New("failed to decode response")

var fenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")

// Decode attempts to unmarshal content as JSON into T. Models occasionally
// wrap structured output in a markdown fence even when asked not to; if
// direct parsing fails, the fenced block is extracted and retried.
func Decode[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, nil
	}

	if m := fenceRegex.FindStringSubmatch(content); len(m) >= 2 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("%w: %s", ErrDecodeFailed, content)
}
