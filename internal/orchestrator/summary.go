// ABOUTME: Summary synthesis merging all classified payloads into a final plan
// ABOUTME: Missing pieces are simply omitted; the summary never fails

package orchestrator

import (
	"fmt"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/classify"
)

// emitSummary renders the final plan from the session's stored classified
// payloads. Unclassified results never reach the store, so the summary only
// ever contains recognized schemas.
func (c *Controller) emitSummary(s *Session) {
	p := s.Params()
	plan := map[string]any{
		"destination": p.Destination,
		"days":        p.Days,
		"partySize":   p.PartySize,
		"budgetTier":  p.BudgetTier,
	}

	if it, ok := s.Result(classify.TagItinerary); ok {
		plan["itinerary"] = it["itinerary"]
	}
	if meals, ok := s.Result(classify.TagMealPlan); ok {
		plan["meals"] = meals["meals"]
	}
	if weather, ok := s.Result(classify.TagWeather); ok {
		forecast := map[string]any{"forecast": weather["forecast"]}
		if advice, ok := weather["travelAdvice"]; ok {
			forecast["travelAdvice"] = advice
		}
		if best, ok := weather["bestDays"]; ok {
			forecast["bestDays"] = best
		}
		plan["weather"] = forecast
	}
	if budget, ok := s.Result(classify.TagBudget); ok {
		plan["budget"] = budget
	}
	if rev := s.Revision(); rev > 0 {
		plan["budgetRevisions"] = rev
	}

	c.emit(s, agui.Frame{
		Kind:    agui.KindSummary,
		Role:    agui.RoleAssistant,
		Content: fmt.Sprintf("Here is your complete %d-day plan for %s.", p.Days, p.Destination),
		Summary: rawResult(plan),
	})
}
