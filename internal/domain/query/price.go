// Package query holds the pure text heuristics applied to a search query before
// retrieval: price constraint parsing, synonym enhancement and intent detection.
package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Default bounds for qualitative price words in the catalog currency.
const (
	DefaultBudgetMax  = 100.0
	DefaultPremiumMin = 200.0
)

// PriceConstraint is an optional inclusive price range parsed from a query.
// Inverted bounds are kept as parsed.
type PriceConstraint struct {
	Min *float64
	Max *float64
	// Keywords lists the price-indicating words that matched, for logging.
	Keywords []string
}

// Active reports whether any bound is set.
func (c *PriceConstraint) Active() bool {
	return c != nil && (c.Min != nil || c.Max != nil)
}

// Allows applies the bounds to a price. A missing price passes a max-only
// constraint but never a constraint with a min bound.
func (c *PriceConstraint) Allows(price *float64) bool {
	if !c.Active() {
		return true
	}
	if price == nil {
		return c.Min == nil
	}
	if c.Min != nil && *price < *c.Min {
		return false
	}
	if c.Max != nil && *price > *c.Max {
		return false
	}
	return true
}

type direction int

const (
	dirNone direction = iota
	dirMax
	dirMin
)

var (
	numberRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

	// Longer phrases first: "no more than" must win over "more than".
	directionRe = regexp.MustCompile(`\b(?:` +
		`no more than|not more than|less than|cheaper than|lower than|under|below|at most|up to|upto|within|max(?:imum)?` +
		`|more than|greater than|higher than|over|above|at least|starting at|min(?:imum)?` +
		`)\b`)

	maxPhrases = map[string]bool{
		"no more than": true, "not more than": true, "less than": true, "cheaper than": true,
		"lower than": true, "under": true, "below": true, "at most": true, "up to": true,
		"upto": true, "within": true, "max": true, "maximum": true,
	}

	// Connective between two numbers that makes them a range: "50-100", "50 to 100", "between 50 and 100".
	rangeConnectiveRe = regexp.MustCompile(`^\s*(?:-|–|to|and)\s*(?:\$|₹|rs\.?|inr|usd)?\s*$`)
	sizePrefixRe      = regexp.MustCompile(`\b(?:size|sz|uk|us|eu)\s*$`)
	currencyPrefixRe  = regexp.MustCompile(`\b(?:rs|inr|usd)$`)
	currencySuffixRe  = regexp.MustCompile(`^(?:usd|dollars?|bucks|rs|inr|rupees?)\b`)
	currencyWordRe    = regexp.MustCompile(`(?:\b|\d)(usd|dollars?|bucks|inr|rupees?)\b`)
	rangeWordRe       = regexp.MustCompile(`\b(?:between|from)\b`)

	budgetWordRe  = regexp.MustCompile(`\b(?:cheap(?:er|est)?|affordable|budget|inexpensive|low[- ]cost)\b`)
	premiumWordRe = regexp.MustCompile(`\b(?:expensive|premium|luxury|luxurious|high[- ]end|upscale)\b`)
)

type numberMention struct {
	value  float64
	dir    direction
	prefix string
}

// ParsePrice extracts a price constraint from free text. It returns nil when
// the query carries no price signal.
//
// Directional words bind to the numbers that follow them. With only upper
// bounds the largest number becomes Max, with only lower bounds the smallest
// becomes Min. Two numbers joined by a range connective form a Min/Max pair.
// A lone number without direction is treated as an upper bound.
func ParsePrice(q string) *PriceConstraint {
	lower := strings.ToLower(q)
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	mentions := findNumbers(lower)
	var keywords []string
	for _, m := range directionRe.FindAllString(lower, -1) {
		keywords = appendUnique(keywords, m)
	}
	budget := budgetWordRe.FindAllString(lower, -1)
	premium := premiumWordRe.FindAllString(lower, -1)
	for _, m := range budget {
		keywords = appendUnique(keywords, m)
	}
	for _, m := range premium {
		keywords = appendUnique(keywords, m)
	}

	if len(mentions) == 0 {
		if len(budget) == 0 && len(premium) == 0 {
			return nil
		}
		c := &PriceConstraint{Keywords: keywords}
		if len(budget) > 0 {
			c.Max = ptr(DefaultBudgetMax)
		}
		if len(premium) > 0 {
			c.Min = ptr(DefaultPremiumMin)
		}
		return c
	}

	for _, m := range currencyWordRe.FindAllStringSubmatch(lower, -1) {
		keywords = appendUnique(keywords, m[1])
	}
	c := &PriceConstraint{Keywords: keywords}

	if len(mentions) >= 2 && rangeConnectiveRe.MatchString(mentions[1].prefix) &&
		mentions[0].dir == dirNone && mentions[1].dir == dirNone {
		if w := rangeWordRe.FindString(mentions[0].prefix); w != "" {
			c.Keywords = appendUnique(c.Keywords, w)
		}
		lo, hi := mentions[0].value, mentions[1].value
		if lo > hi {
			lo, hi = hi, lo
		}
		c.Min, c.Max = ptr(lo), ptr(hi)
		return c
	}

	var maxVals, minVals, all []float64
	for _, m := range mentions {
		all = append(all, m.value)
		switch m.dir {
		case dirMax:
			maxVals = append(maxVals, m.value)
		case dirMin:
			minVals = append(minVals, m.value)
		}
	}

	switch {
	case len(maxVals) > 0 && len(minVals) > 0:
		c.Max = ptr(slices.Max(maxVals))
		c.Min = ptr(slices.Min(minVals))
	case len(maxVals) > 0:
		c.Max = ptr(slices.Max(all))
	case len(minVals) > 0:
		c.Min = ptr(slices.Min(all))
	default:
		c.Max = ptr(slices.Max(all))
	}
	return c
}

// findNumbers returns price-like numbers with the direction of the nearest
// directional keyword in the text since the previous number.
// Numbers glued to letters ("3xl", "2pack") and size mentions are ignored;
// a glued currency ("50usd", "rs500") still counts.
func findNumbers(lower string) []numberMention {
	locs := numberRe.FindAllStringIndex(lower, -1)
	out := make([]numberMention, 0, len(locs))
	prevEnd := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if attachedToLetter(lower, start, end) {
			continue
		}
		prefix := lower[prevEnd:start]
		if sizePrefixRe.MatchString(prefix) {
			prevEnd = end
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(lower[start:end], ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, numberMention{
			value:  v,
			dir:    lastDirection(prefix),
			prefix: prefix,
		})
		prevEnd = end
	}
	return out
}

func lastDirection(prefix string) direction {
	matches := directionRe.FindAllString(prefix, -1)
	if len(matches) == 0 {
		return dirNone
	}
	if maxPhrases[matches[len(matches)-1]] {
		return dirMax
	}
	return dirMin
}

func attachedToLetter(s string, start, end int) bool {
	if end < len(s) {
		r := rune(s[end])
		if r < unicode.MaxASCII && unicode.IsLetter(r) && !currencySuffixRe.MatchString(s[end:]) {
			return true
		}
	}
	if start > 0 {
		r := rune(s[start-1])
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return !currencyPrefixRe.MatchString(s[:start])
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

func ptr(v float64) *float64 { return &v }
