// ABOUTME: Fixture loading and built-in payload generation for the stub agent
// ABOUTME: Fixtures are TOML with per-role JSON documents; built-ins derive from request params

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Fixtures holds canned response payloads keyed by agent role. Each value
// must be a valid JSON document; it is returned verbatim as the task result.
type Fixtures struct {
	Responses map[string]string `toml:"responses"`
}

// LoadFixtures reads and validates a TOML fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures file: %w", err)
	}

	var f Fixtures
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures file: %w", err)
	}

	for role, doc := range f.Responses {
		if !validRole(role) {
			return nil, fmt.Errorf("unknown role %q in fixtures", role)
		}
		if !json.Valid([]byte(doc)) {
			return nil, fmt.Errorf("fixture for role %q is not valid JSON", role)
		}
	}
	return &f, nil
}

// Response returns the fixture payload for a role, if one was configured.
func (f *Fixtures) Response(role string) (json.RawMessage, bool) {
	doc, ok := f.Responses[role]
	if !ok {
		return nil, false
	}
	return json.RawMessage(doc), true
}

// builtinPayload generates a deterministic payload for a role from the task
// parameters, shaped like the real specialized services' responses.
func builtinPayload(role string, params map[string]any) (json.RawMessage, error) {
	dest := stringParam(params, "destination", "Lisbon")
	days := intParam(params, "days", 3)
	if days < 1 {
		days = 1
	}

	var payload any
	switch role {
	case "itinerary":
		payload = itineraryPayload(dest, days)
	case "weather":
		payload = weatherPayload(dest, days)
	case "restaurant":
		payload = mealPayload(dest, days)
	case "budget":
		party := intParam(params, "partySize", 2)
		tier := stringParam(params, "budgetTier", "Comfort")
		revision := intParam(params, "revision", 0)
		payload = budgetPayload(dest, days, party, tier, revision)
	default:
		return nil, fmt.Errorf("no built-in payload for role %q", role)
	}

	return json.Marshal(payload)
}

func itineraryPayload(dest string, days int) map[string]any {
	plan := make([]map[string]any, 0, days)
	for d := 1; d <= days; d++ {
		plan = append(plan, map[string]any{
			"day":       d,
			"title":     fmt.Sprintf("Day %d in %s", d, dest),
			"morning":   fmt.Sprintf("Walking tour of the old town of %s", dest),
			"afternoon": "Museum visit and a riverside stroll",
			"evening":   "Sunset viewpoint and a neighborhood food market",
			"meals":     "Local bakery breakfast, market lunch, tavern dinner",
		})
	}
	return map[string]any{
		"destination": dest,
		"days":        days,
		"itinerary":   plan,
	}
}

func weatherPayload(dest string, days int) map[string]any {
	conditions := []string{"Sunny", "Partly cloudy", "Light rain", "Clear"}
	forecast := make([]map[string]any, 0, days)
	for d := 1; d <= days; d++ {
		forecast = append(forecast, map[string]any{
			"day":       d,
			"condition": conditions[(d-1)%len(conditions)],
			"highC":     18 + (d % 5),
			"lowC":      9 + (d % 4),
		})
	}
	return map[string]any{
		"destination":  dest,
		"forecast":     forecast,
		"travelAdvice": "Pack a light rain jacket and comfortable walking shoes.",
		"bestDays":     []int{1, min(2, days)},
	}
}

func mealPayload(dest string, days int) map[string]any {
	meals := make([]map[string]any, 0, days)
	for d := 1; d <= days; d++ {
		meals = append(meals, map[string]any{
			"day":       d,
			"breakfast": fmt.Sprintf("Café Central (%s classic pastries)", dest),
			"lunch":     "Mercado food hall, counter seating",
			"dinner":    fmt.Sprintf("Casa do Bairro, regional %s menu", dest),
		})
	}
	return map[string]any{
		"destination": dest,
		"days":        days,
		"meals":       meals,
	}
}

// perPersonDaily is the estimated daily cost per traveler by tier.
var perPersonDaily = map[string]float64{
	"Economy": 80,
	"Comfort": 150,
	"Premium": 300,
}

func budgetPayload(dest string, days, party int, tier string, revision int) map[string]any {
	daily, ok := perPersonDaily[tier]
	if !ok {
		daily = perPersonDaily["Comfort"]
	}
	total := daily * float64(days) * float64(party)
	// Each revision trims 10% to simulate a revised, cheaper plan.
	for i := 0; i < revision; i++ {
		total *= 0.9
	}

	split := []struct {
		category string
		share    float64
	}{
		{"Accommodation", 0.40},
		{"Food", 0.25},
		{"Activities", 0.20},
		{"Transport", 0.15},
	}
	breakdown := make([]map[string]any, 0, len(split))
	for _, s := range split {
		breakdown = append(breakdown, map[string]any{
			"category":   s.category,
			"amount":     round2(total * s.share),
			"percentage": s.share * 100,
		})
	}

	notes := fmt.Sprintf("%s estimate for %d travelers, %d days in %s.", tier, party, days, dest)
	if revision > 0 {
		notes = fmt.Sprintf("Revision %d: trimmed discretionary spending. %s", revision, notes)
	}
	return map[string]any{
		"totalBudget": round2(total),
		"currency":    "USD",
		"breakdown":   breakdown,
		"notes":       notes,
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
