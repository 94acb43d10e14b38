package mlserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTags decodes raw model output as a JSON array of strings and normalizes
// each tag to trimmed lower case. There is no partial result: a single invalid
// or blank tag fails the whole output.
func ParseTags(raw string) ([]string, error) {
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("%w: model output is not valid JSON: %s", ErrModelOutput, raw)
	}

	items, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: model output is not a JSON list of strings: %s", ErrModelOutput, raw)
	}

	tags := make([]string, 0, len(items))
	for _, item := range items {
		tag, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: model output is not a JSON list of strings: %s", ErrModelOutput, raw)
		}
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, fmt.Errorf("%w: empty tag found in model output: %s", ErrModelOutput, raw)
		}
		tags = append(tags, strings.ToLower(tag))
	}

	return tags, nil
}
