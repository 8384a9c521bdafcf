// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmadapter

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSON pulls a JSON object out of a raw LLM completion. Models
// routinely wrap structured output in markdown fences or prose, so this
// tries, in order: a clean parse, a ```json fence, a bare ``` fence, then a
// brace-depth scan for the first balanced `{...}` in the text.
func ExtractJSON(response string) ([]byte, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, errors.New("empty response")
	}

	if json.Valid([]byte(response)) {
		return []byte(response), nil
	}

	if idx := strings.Index(response, "```json"); idx >= 0 {
		start := idx + len("```json")
		for start < len(response) && (response[start] == '\n' || response[start] == '\r' || response[start] == ' ') {
			start++
		}
		if end := strings.Index(response[start:], "```"); end > 0 {
			if extracted := strings.TrimSpace(response[start : start+end]); json.Valid([]byte(extracted)) {
				return []byte(extracted), nil
			}
		}
	}

	if idx := strings.Index(response, "```"); idx >= 0 {
		start := idx + 3
		if newline := strings.Index(response[start:], "\n"); newline >= 0 && newline < 20 {
			start += newline + 1
		}
		if end := strings.Index(response[start:], "```"); end > 0 {
			if extracted := strings.TrimSpace(response[start : start+end]); json.Valid([]byte(extracted)) {
				return []byte(extracted), nil
			}
		}
	}

	if start := strings.Index(response, "{"); start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(response); i++ {
			c := response[i]
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' && inString {
				escaped = true
				continue
			}
			if c == '"' {
				inString = !inString
				continue
			}
			if inString {
				continue
			}
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if extracted := response[start : i+1]; json.Valid([]byte(extracted)) {
						return []byte(extracted), nil
					}
				}
			}
		}
	}

	return nil, errors.New("no valid JSON object found in LLM response")
}
