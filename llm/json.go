package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeBlockPattern matches markdown code blocks with an optional language tag.
var codeBlockPattern = regexp.MustCompile(`(?s)` + "```" + `(\w*)\s*\n(.+?)\n` + "```")

// ExtractJSON extracts JSON from an LLM response that may be wrapped in
// markdown. Priority:
//  1. JSON inside ```json ... ``` or ``` ... ``` code blocks
//  2. Raw JSON object {...} or array [...] in the response
func ExtractJSON(response string) (string, error) {
	if jsonStr, found := extractFromCodeBlock(response); found {
		return jsonStr, nil
	}
	if jsonStr, found := extractRawJSON(response); found {
		return jsonStr, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// DecodeInto extracts JSON from a response and unmarshals it into v.
func DecodeInto(response string, v any) error {
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("decoding response JSON: %w", err)
	}
	return nil
}

func extractFromCodeBlock(response string) (string, bool) {
	matches := codeBlockPattern.FindAllStringSubmatch(response, -1)

	for _, match := range matches {
		if len(match) < 3 {
			continue
		}

		lang := strings.ToLower(match[1])
		content := strings.TrimSpace(match[2])

		// Accept json or untagged blocks; skip other languages.
		if lang != "" && lang != "json" {
			continue
		}

		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			if json.Valid([]byte(content)) {
				return content, true
			}
		}
	}

	return "", false
}

// extractRawJSON scans for a balanced JSON object or array outside code
// blocks, tolerating trailing prose after the closing bracket.
func extractRawJSON(response string) (string, bool) {
	startObj := strings.Index(response, "{")
	startArr := strings.Index(response, "[")

	start := -1
	open, close := byte('{'), byte('}')
	if startObj >= 0 && (startArr < 0 || startObj < startArr) {
		start = startObj
	} else if startArr >= 0 {
		start = startArr
		open, close = '[', ']'
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				candidate := response[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}

	return "", false
}
