// ABOUTME: Best-effort lexical extraction of trip parameters from user text
// ABOUTME: Feeds form pre-fill only; gathering still requires a submission

package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
)

var (
	daysPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})[ -]day`)
	days2Pattern = regexp.MustCompile(`(?i)\bfor (\d{1,2}) days\b`)
	partyPattern = regexp.MustCompile(`(?i)\b(?:for|party of) (\d{1,2}) (?:people|persons|travelers|adults|of us)\b`)
	destPattern  = regexp.MustCompile(`\b(?:to|in|visit(?:ing)?) ([A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)?)`)
)

// extractParams scans a free-text message for trip parameters. It is purely
// lexical and misses more than it hits; whatever it finds pre-fills the
// gathering form for the user to confirm or correct.
func extractParams(text string) agui.FormRequest {
	var req agui.FormRequest

	if m := daysPattern.FindStringSubmatch(text); m != nil {
		req.Days, _ = strconv.Atoi(m[1])
	} else if m := days2Pattern.FindStringSubmatch(text); m != nil {
		req.Days, _ = strconv.Atoi(m[1])
	}

	if m := partyPattern.FindStringSubmatch(text); m != nil {
		req.PartySize, _ = strconv.Atoi(m[1])
	}

	if m := destPattern.FindStringSubmatch(text); m != nil {
		req.Destination = m[1]
	}

	req.BudgetTier = extractTier(text)
	return req
}

// extractTier maps budget keywords to a tier name, or "" when none match.
func extractTier(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "luxury") || strings.Contains(lower, "premium") ||
		strings.Contains(lower, "high-end"):
		return TierPremium
	case strings.Contains(lower, "budget") || strings.Contains(lower, "cheap") ||
		strings.Contains(lower, "economy"):
		return TierEconomy
	case strings.Contains(lower, "comfort") || strings.Contains(lower, "mid-range"):
		return TierComfort
	default:
		return ""
	}
}
