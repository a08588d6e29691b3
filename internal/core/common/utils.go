package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in response")

// ParseJSON decodes the outermost JSON object in an LLM response into T.
// Markdown fences and prose around the object are ignored.
func ParseJSON[T any](response string) (T, error) {
	var out T
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return out, ErrNoJSON
	}
	body := response[start : end+1]
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return out, nil
}
