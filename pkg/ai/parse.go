package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Extraction strategies reported by ParseObjects.
const (
	StrategyJSONFence = "json_fence"
	StrategyFence     = "fence"
	StrategyBrackets  = "brackets"
	StrategyVerbatim  = "verbatim"
)

const fence = "```"

var (
	flatObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)
	flatArrayPattern  = regexp.MustCompile(`\[.*?\]`)
)

// ObjectsResult is the best-effort decoding of a model response into objects.
type ObjectsResult struct {
	Objects  []map[string]any
	Strategy string
	// Fallback is set when the direct parse failed and objects were scanned
	// out of the raw text one by one.
	Fallback bool
	ParseErr error
}

// IndicesResult is the decoding of a model response into an index list.
type IndicesResult struct {
	Indices []int
	Err     error
}

// ParseObjects extracts an array of JSON objects from free-form model output.
// It never fails: an unparseable response yields an empty slice.
func ParseObjects(text string) ObjectsResult {
	candidate, strategy := extractStructured(text)
	result := ObjectsResult{Strategy: strategy, Objects: []map[string]any{}}

	objects, err := decodeObjects(candidate)
	if err == nil {
		result.Objects = objects
		return result
	}

	result.ParseErr = err
	result.Fallback = true
	for _, span := range flatObjectPattern.FindAllString(text, -1) {
		var object map[string]any
		if err := json.Unmarshal([]byte(span), &object); err != nil {
			continue
		}
		result.Objects = append(result.Objects, object)
	}
	return result
}

// extractStructured isolates the part of the response most likely to hold JSON.
func extractStructured(text string) (string, string) {
	if idx := strings.Index(text, fence+"json"); idx >= 0 {
		rest := text[idx+len(fence)+len("json"):]
		if end := strings.Index(rest, fence); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest), StrategyJSONFence
	}

	if strings.Contains(text, fence) {
		parts := strings.Split(text, fence)
		return strings.TrimSpace(parts[1]), StrategyFence
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1], StrategyBrackets
	}

	return text, StrategyVerbatim
}

func decodeObjects(candidate string) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, err
	}

	switch value := raw.(type) {
	case []any:
		objects := make([]map[string]any, 0, len(value))
		for _, item := range value {
			if object, ok := item.(map[string]any); ok {
				objects = append(objects, object)
			}
		}
		return objects, nil
	case map[string]any:
		return []map[string]any{value}, nil
	default:
		return nil, errors.New("response is not a json array")
	}
}

// ParseIndices extracts a list of non-negative integers from a model response.
// Any failure yields an empty list together with the cause.
func ParseIndices(text string) IndicesResult {
	candidate := strings.TrimSpace(text)

	if strings.Contains(candidate, fence) {
		parts := strings.Split(candidate, fence)
		if len(parts) >= 3 {
			candidate = parts[1]
		} else {
			candidate = parts[len(parts)-1]
		}
		candidate = strings.TrimPrefix(candidate, "json")
		candidate = strings.TrimSpace(candidate)
	}

	if !(strings.HasPrefix(candidate, "[") && strings.HasSuffix(candidate, "]")) {
		if match := flatArrayPattern.FindString(candidate); match != "" {
			candidate = match
		}
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return IndicesResult{Indices: []int{}, Err: err}
	}
	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return IndicesResult{Indices: []int{}, Err: errors.New("response holds more than one json value")}
	}

	items, ok := raw.([]any)
	if !ok {
		return IndicesResult{Indices: []int{}, Err: errors.New("response is not a json array")}
	}

	indices := make([]int, 0, len(items))
	for _, item := range items {
		if index, ok := coerceIndex(item); ok {
			indices = append(indices, index)
		}
	}
	return IndicesResult{Indices: indices}
}

func coerceIndex(item any) (int, bool) {
	switch value := item.(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return int(n), n >= 0 && n <= math.MaxInt32
		}
		f, err := value.Float64()
		if err != nil || f < 0 || f > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	case string:
		if value == "" || strings.TrimLeft(value, "0123456789") != "" {
			return 0, false
		}
		n, err := strconv.Atoi(value)
		if err != nil || n > math.MaxInt32 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
