package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseJSON decodes model output into dest after repairing the two failure
// shapes generative models actually produce: a Markdown code fence around the
// payload, and trailing commas before a closing brace or bracket.
func ParseJSON(raw string, dest any) error {
	jsonStr := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(jsonStr); m != nil {
		jsonStr = strings.TrimSpace(m[1])
	}
	jsonStr = trailingCommaRe.ReplaceAllString(jsonStr, "$1")
	if err := json.Unmarshal([]byte(jsonStr), dest); err != nil {
		return fmt.Errorf("unparseable model output: %w", err)
	}
	return nil
}
