package query

import (
	"regexp"
	"strings"
)

const (
	maxEnhancedWords = 20
	maxAddedWords    = 10
)

type synonymEntry struct {
	re       *regexp.Regexp
	synonyms []string
}

func entry(term string, syns ...string) synonymEntry {
	return synonymEntry{
		re:       regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `(?:s|es)?\b`),
		synonyms: syns,
	}
}

// Ordered so expansion is deterministic.
var synonymTable = []synonymEntry{
	entry("shirt", "top", "blouse", "tee", "t-shirt", "tshirt"),
	entry("pants", "trousers", "bottoms", "jeans", "slacks"),
	entry("shoes", "footwear", "sneakers", "boots", "trainers"),
	entry("bag", "purse", "handbag", "tote", "backpack", "satchel"),
	entry("watch", "timepiece", "wristwatch"),
	entry("gym", "fitness", "workout", "exercise", "athletic", "training"),
	entry("meeting", "business", "professional", "office", "formal", "corporate"),
	entry("casual", "everyday", "relaxed", "informal", "comfortable"),
	entry("formal", "business", "professional", "dressy", "elegant", "sophisticated"),
	entry("running", "jogging", "athletic", "sport", "fitness"),
	entry("dress", "gown", "frock", "outfit"),
	entry("jacket", "coat", "blazer", "outerwear"),
	entry("sunglasses", "shades", "eyewear", "sun glasses"),
	entry("cheap", "affordable", "budget", "low price", "inexpensive", "economical", "value"),
	entry("expensive", "premium", "luxury", "high price", "costly", "pricey", "upscale"),
	entry("affordable", "cheap", "budget", "low price", "inexpensive", "economical", "value"),
	entry("budget", "cheap", "affordable", "low price", "inexpensive", "economical"),
	entry("price", "cost", "pricing", "amount", "rupee", "rupees"),
	entry("cost", "price", "pricing", "amount", "rupee", "rupees"),
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	noiseRe      = regexp.MustCompile(`[^\p{L}\p{N}_\s'-]`)
	digitRe      = regexp.MustCompile(`\d`)

	priceIndicatorRe = regexp.MustCompile(`\b(?:price|cost|budget|cheap|expensive|affordable|under|below|over|above|` +
		`between|upto|up to|less than|more than|maximum|minimum|max|min|rupees?|rs|inr|dollars?|usd)\b`)
	budgetContextRe  = regexp.MustCompile(`\b(?:cheap|affordable|budget|low)\b`)
	premiumContextRe = regexp.MustCompile(`\b(?:expensive|premium|luxury|high)\b`)
)

// Normalize strips characters outside letters, digits, whitespace, hyphen and
// apostrophe, then collapses whitespace runs and trims the ends.
func Normalize(q string) string {
	q = noiseRe.ReplaceAllString(q, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(q, " "))
}

// Enhance normalizes a query and appends price context and domain synonyms.
// Added terms are skipped when already present as a substring. When the result
// exceeds 20 words, all original words are kept plus the first 10 added ones.
//
// Enhance is not idempotent: a rerun may match entries through terms the
// first run added. Reruns converge because the table is finite.
func Enhance(q string) string {
	normalized := Normalize(q)
	if normalized == "" {
		return ""
	}

	b := newExpansion(normalized)
	b.addPriceContext()
	b.addSynonyms()

	expanded := b.String()
	words := strings.Fields(expanded)
	if len(words) <= maxEnhancedWords {
		return expanded
	}

	original := strings.Fields(normalized)
	inOriginal := make(map[string]struct{}, len(original))
	for _, w := range original {
		inOriginal[w] = struct{}{}
	}
	added := make([]string, 0, maxAddedWords)
	for _, w := range words[len(original):] {
		if _, ok := inOriginal[w]; ok {
			continue
		}
		added = append(added, w)
		if len(added) == maxAddedWords {
			break
		}
	}
	if len(added) == 0 {
		return normalized
	}
	return normalized + " " + strings.Join(added, " ")
}

type expansion struct {
	base  string
	terms []string
	lower string
}

func newExpansion(base string) *expansion {
	return &expansion{base: base, lower: strings.ToLower(base)}
}

func (e *expansion) add(term string) bool {
	if strings.Contains(e.lower, term) {
		return false
	}
	e.terms = append(e.terms, term)
	e.lower += " " + term
	return true
}

// addPriceContext mirrors how price queries are phrased in product copy.
func (e *expansion) addPriceContext() {
	q := strings.ToLower(e.base)
	if !priceIndicatorRe.MatchString(q) {
		return
	}
	if digitRe.MatchString(q) {
		e.add("price range")
		e.add("pricing")
	}
	switch {
	case budgetContextRe.MatchString(q):
		e.add("budget-friendly")
		e.add("affordable")
		e.add("value")
	case premiumContextRe.MatchString(q):
		e.add("premium")
		e.add("luxury")
		e.add("high-end")
	}
}

// addSynonyms makes one pass over the table. Entries match the query plus
// its price context as it stands before the pass, so synonyms added here
// never pull in further entries.
func (e *expansion) addSynonyms() {
	match := e.lower
	for _, s := range synonymTable {
		if !s.re.MatchString(match) {
			continue
		}
		for _, syn := range s.synonyms {
			e.add(syn)
		}
	}
}

func (e *expansion) String() string {
	if len(e.terms) == 0 {
		return e.base
	}
	return e.base + " " + strings.Join(e.terms, " ")
}
