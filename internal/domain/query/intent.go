package query

import (
	"regexp"
	"strings"
)

// Intent classifies what the user wants from a query.
type Intent string

const (
	// IntentDiscovery asks for items matching criteria.
	IntentDiscovery Intent = "discovery"
	// IntentInformational asks about attributes of an item already in view.
	IntentInformational Intent = "informational"
)

// Phrases that point at a specific item rather than describe one.
const referent = `(?:it|this|that|these|those|they|them|the\s+[\w-]+)`

var informationalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:does|do|is|are|can|will|would)\s+` + referent + `\b`),
	regexp.MustCompile(`\bwhat\s+(?:colou?rs?|sizes?|materials?|fabrics?)\s+(?:does|do|is|are)\s+` + referent + `\b`),
	regexp.MustCompile(`\b(?:what|which)\s+(?:is|are)\s+the\s+(?:price|cost|material|fabric|sizes?|colou?rs?|fit)\s+of\b`),
	regexp.MustCompile(`\bhow\s+much\s+(?:is|does|are|do)\s+` + referent + `\b`),
	regexp.MustCompile(`\btell\s+me\s+(?:more\s+)?about\s+` + referent + `\b`),
	regexp.MustCompile(`\b(?:it|this|that|they)\s+comes?\s+in\b`),
	regexp.MustCompile(`\b(?:details|specs|specifications)\s+(?:of|for|on|about)\s+` + referent + `\b`),
}

var discoveryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:show|find|recommend|suggest|search|browse)\b`),
	regexp.MustCompile(`\blooking\s+for\b`),
	regexp.MustCompile(`\bi\s+(?:need|want|would\s+like)\b`),
	regexp.MustCompile(`\b(?:is|are)\s+there\b`),
	regexp.MustCompile(`\b(?:similar|alternatives?|instead)\b`),
	regexp.MustCompile(`\bdo\s+you\s+(?:have|sell|carry)\b`),
	regexp.MustCompile(`\bbest\b`),
}

// DetectIntent classifies a query. A query matching informational phrasing
// and no discovery phrasing is informational, everything else is discovery.
func DetectIntent(q string) Intent {
	lower := strings.ToLower(Normalize(q))
	if lower == "" {
		return IntentDiscovery
	}

	informational := false
	for _, re := range informationalPatterns {
		if re.MatchString(lower) {
			informational = true
			break
		}
	}
	if !informational {
		return IntentDiscovery
	}

	for _, re := range discoveryPatterns {
		if re.MatchString(lower) {
			return IntentDiscovery
		}
	}
	return IntentInformational
}
