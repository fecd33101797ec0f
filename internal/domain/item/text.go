package item

import (
	"regexp"
	"strings"
)

const (
	maxDescriptionChars = 500
	maxFeatureSentences = 3
	minSentenceChars    = 20

	budgetCeiling   = 50.0
	midRangeCeiling = 150.0
)

var (
	htmlTagRe       = regexp.MustCompile(`<[^>]+>`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
)

// PriceBand names the qualitative price range used in document text.
func PriceBand(price float64) string {
	switch {
	case price < budgetCeiling:
		return "budget affordable"
	case price < midRangeCeiling:
		return "mid-range moderate"
	default:
		return "premium luxury"
	}
}

// PrepareText renders the document-purpose embedding input for an item.
// The title is repeated and vendor and tags appear twice under synonym labels to weight them.
func PrepareText(it *Item) string {
	var parts []string

	if t := strings.TrimSpace(it.title); t != "" {
		parts = append(parts, "Product: "+t, "Title: "+t)
	}

	if d := strings.TrimSpace(it.description); d != "" {
		if r := []rune(d); len(r) > maxDescriptionChars {
			d = string(r[:maxDescriptionChars]) + "..."
		}
		parts = append(parts, "Description: "+d)
	}

	if key := keySentences(it.bodyHTML); len(key) > 0 {
		parts = append(parts, "Features: "+strings.Join(key, " "))
	}

	var cats []string
	if it.productType != "" {
		cats = append(cats, it.productType)
	}
	if it.category != "" {
		cats = append(cats, it.category)
	}
	if len(cats) > 0 {
		parts = append(parts, "Category: "+strings.Join(cats, ", "))
	}

	if it.vendor != "" {
		parts = append(parts, "Brand: "+it.vendor, "Manufacturer: "+it.vendor)
	}

	if len(it.tags) > 0 {
		tags := strings.Join(it.tags, ", ")
		parts = append(parts, "Tags: "+tags, "Keywords: "+tags)
	}

	if it.variants.Color != nil {
		parts = append(parts, "Color: "+*it.variants.Color)
	}

	if it.price != nil && *it.price > 0 {
		parts = append(parts, "Price range: "+PriceBand(*it.price))
	}

	return strings.Join(parts, " | ")
}

// StripHTML removes markup and collapses whitespace.
func StripHTML(html string) string {
	return strings.Join(strings.Fields(htmlTagRe.ReplaceAllString(html, " ")), " ")
}

// keySentences strips markup and keeps the informative sentences among the first three.
func keySentences(html string) []string {
	if html == "" {
		return nil
	}
	body := strings.TrimSpace(htmlTagRe.ReplaceAllString(html, ""))
	if body == "" {
		return nil
	}
	sentences := sentenceSplitRe.Split(body, -1)
	if len(sentences) > maxFeatureSentences {
		sentences = sentences[:maxFeatureSentences]
	}
	var out []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) > minSentenceChars {
			out = append(out, s)
		}
	}
	return out
}
