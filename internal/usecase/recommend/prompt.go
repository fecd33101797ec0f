package recommend

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/query"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

const (
	historyWindow     = 5
	descriptionLimit  = 200
	tagLimit          = 5
	notAvailable      = "N/A"
	noProductsContext = "No products found."
)

const guidelines = `You are a helpful product recommendation assistant for an e-commerce website.
Your role is to help users find products that match their needs based on their queries.

IMPORTANT GUIDELINES:
1. DO NOT list product names, titles, or create bullet points of products in your response
2. The products will be displayed as cards with images below your message automatically
3. Your response should be a conversational explanation of why these products match the user's query
4. Interpret abstract and nuanced queries (e.g., "something for gym and meetings", "furniture for 2bhk apartment")
5. If the query is unclear or ambiguous, ask ONE clarifying question to better understand the user's needs
6. Be conversational, friendly, and helpful
7. If no products match well, politely explain why and suggest what might help
8. Keep responses concise but informative (2-3 sentences)
9. Focus on explaining the match between the query and the products, not listing them

Product Context:
`

const discoveryInstructions = `Based on the above products, please:
1. Interpret what the user is looking for
2. If needed, ask ONE clarifying question to better understand their needs
3. Provide a conversational response explaining why these products match (DO NOT list product names)
4. If the query is clear and products match well, explain the match directly

Remember: DO NOT include product names or create lists. Just provide a natural conversational response explaining the match.`

const informationalInstructions = `The user is asking about a product they already have in view. Using the product details above:
1. Answer the question directly in 1-2 sentences
2. If the details above do not contain the answer, say so and suggest what might help
3. Do not recommend other products unless the user asks for alternatives`

// BuildPrompt assembles guidelines, product context, the recent history
// window and the user query. Items without a title are skipped.
func BuildPrompt(q string, intent query.Intent, results []result.Result, history []Message, logger *zap.Logger) string {
	var b strings.Builder
	b.WriteString(guidelines)
	b.WriteString(productContext(results, logger))
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, m := range history[max(0, len(history)-historyWindow):] {
			speaker := "Assistant"
			if m.Role == RoleUser {
				speaker = "User"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User Query: %s\n\n", q)
	if intent == query.IntentInformational {
		b.WriteString(informationalInstructions)
	} else {
		b.WriteString(discoveryInstructions)
	}
	b.WriteString("\n")
	return b.String()
}

func productContext(results []result.Result, logger *zap.Logger) string {
	blocks := make([]string, 0, len(results))
	for i := range results {
		it := &results[i].Item
		if strings.TrimSpace(it.Title()) == "" {
			logger.Debug("Skipping item without title in prompt", zap.String("id", it.ID()))
			continue
		}
		blocks = append(blocks, productBlock(len(blocks)+1, it))
	}
	if len(blocks) == 0 {
		return noProductsContext
	}
	return strings.Join(blocks, "\n")
}

func productBlock(n int, it *item.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product %d:\n", n)
	fmt.Fprintf(&b, "- Title: %s\n", it.Title())
	fmt.Fprintf(&b, "- Price: %s\n", formatPrice(it.Price()))
	fmt.Fprintf(&b, "- Vendor: %s\n", orNA(it.Vendor()))
	fmt.Fprintf(&b, "- Category: %s\n", orNA(firstNonEmpty(it.Category(), it.ProductType())))
	if v := it.Variants(); v.Color != nil {
		fmt.Fprintf(&b, "- Color: %s\n", *v.Color)
	}
	if v := it.Variants(); v.Size != nil {
		fmt.Fprintf(&b, "- Size: %s\n", *v.Size)
	}
	fmt.Fprintf(&b, "- Description: %s\n", orNA(truncateRunes(it.Description(), descriptionLimit)))
	if tags := it.Tags(); len(tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(tags[:min(len(tags), tagLimit)], ", "))
	}
	return b.String()
}

func formatPrice(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return "$" + strconv.FormatFloat(*p, 'f', -1, 64)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	// A lone "*" is a bullet; "**" opens a bold label.
	bulletPairRe = regexp.MustCompile(`(?m)^\s*(?:[-•]|\*(?:\s|$))\s*.*?:\s*.*$`)
	boldLabelRe  = regexp.MustCompile(`\*\*.*?\*\*:[ \t]*`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// Clean strips bulleted "name: detail" lines and bold labels the model may
// emit despite the instructions. Best effort: when nothing survives, the
// trimmed original is returned.
func Clean(text string) string {
	cleaned := bulletPairRe.ReplaceAllString(text, "")
	cleaned = boldLabelRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return strings.TrimSpace(text)
	}
	return cleaned
}

// NeedsClarification reports whether the reply asks the user a question.
func NeedsClarification(text string) bool {
	return strings.Contains(text, "?")
}
