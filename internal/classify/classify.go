// ABOUTME: Structural classifier mapping opaque service payloads to schema tags
// ABOUTME: Ordered signature matching over required fields, total and side-effect free

package classify

import (
	"encoding/json"
	"strings"
)

// Tag is the closed set of semantic schemas a payload can match.
type Tag string

const (
	TagItinerary    Tag = "itinerary"
	TagBudget       Tag = "budget"
	TagWeather      Tag = "weather"
	TagMealPlan     Tag = "meal-plan"
	TagUnclassified Tag = "unclassified"
)

// resultPrefix is an optional pass-through marker some services prepend to
// string payloads before the JSON body.
const resultPrefix = "Result:"

// Payload is a classified service response. Value is nil for unclassified
// payloads; ResultID links back to the originating ToolCallResult.
type Payload struct {
	ResultID string
	Tag      Tag
	Value    map[string]any
}

// Classify inspects a raw payload and tags it with the first matching schema
// signature. It is a pure function: the same payload always yields the same
// tag, and no input can make it fail — anything unrecognized is tagged
// unclassified.
//
// Signatures are mutually exclusive on their required field sets:
//
//	budget    — numeric totalBudget (or totalAmount) + breakdown sequence
//	itinerary — string destination + itinerary sequence of day objects
//	weather   — string destination + forecast sequence
//	meal-plan — string destination + meals sequence of day objects
func Classify(resultID string, raw json.RawMessage) Payload {
	obj, ok := decode(raw)
	if !ok {
		return Payload{ResultID: resultID, Tag: TagUnclassified}
	}

	switch {
	case isBudget(obj):
		return Payload{ResultID: resultID, Tag: TagBudget, Value: obj}
	case isItinerary(obj):
		return Payload{ResultID: resultID, Tag: TagItinerary, Value: obj}
	case isWeather(obj):
		return Payload{ResultID: resultID, Tag: TagWeather, Value: obj}
	case isMealPlan(obj):
		return Payload{ResultID: resultID, Tag: TagMealPlan, Value: obj}
	default:
		return Payload{ResultID: resultID, Tag: TagUnclassified}
	}
}

// decode extracts a JSON object from the raw payload. String payloads are
// unwrapped first: the pass-through marker and markdown code fences are
// stripped, then the remainder is parsed as structured data.
func decode(raw json.RawMessage) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not valid JSON at all — try as plain text carrying embedded JSON
		return decodeText(string(raw))
	}

	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		return decodeText(t)
	default:
		return nil, false
	}
}

// decodeText normalizes a textual payload and parses it as a JSON object.
func decodeText(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, resultPrefix))
	s = stripCodeFence(s)

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stripCodeFence removes a surrounding markdown code fence, if present.
// Services backed by language models often wrap JSON in ```json fences.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isBudget(obj map[string]any) bool {
	return (hasNumber(obj, "totalBudget") || hasNumber(obj, "totalAmount")) &&
		hasSequence(obj, "breakdown")
}

func isItinerary(obj map[string]any) bool {
	return hasString(obj, "destination") && hasDaySequence(obj, "itinerary")
}

func isWeather(obj map[string]any) bool {
	return hasString(obj, "destination") && hasSequence(obj, "forecast")
}

func isMealPlan(obj map[string]any) bool {
	return hasString(obj, "destination") && hasDaySequence(obj, "meals")
}

func hasString(obj map[string]any, key string) bool {
	s, ok := obj[key].(string)
	return ok && s != ""
}

func hasNumber(obj map[string]any, key string) bool {
	_, ok := obj[key].(float64)
	return ok
}

func hasSequence(obj map[string]any, key string) bool {
	seq, ok := obj[key].([]any)
	return ok && len(seq) > 0
}

// hasDaySequence requires a non-empty sequence whose elements are objects
// carrying a numeric "day" field. This keeps itinerary and meal-plan
// signatures disjoint from the plain weather forecast sequence.
func hasDaySequence(obj map[string]any, key string) bool {
	seq, ok := obj[key].([]any)
	if !ok || len(seq) == 0 {
		return false
	}
	for _, el := range seq {
		m, ok := el.(map[string]any)
		if !ok || !hasNumber(m, "day") {
			return false
		}
	}
	return true
}
