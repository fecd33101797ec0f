package recommend

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/query"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

func TestBuildPrompt_ProductBlocks(t *testing.T) {
	rs := []result.Result{
		product(t, item.Fields{
			ID: "tee", Title: "Dri-Fit Tee", Price: price(45.5), Vendor: "Acme",
			ProductType: "Tops", Description: strings.Repeat("a", 250),
			Tags:     []string{"a", "b", "c", "d", "e", "f"},
			Variants: item.VariantAttributes{Color: strPtr("black"), Size: strPtr("M")},
		}, 0.9),
		product(t, item.Fields{ID: "bra", Title: "Sports Bra"}, 0.8),
	}

	p := BuildPrompt("gym top", query.IntentDiscovery, rs, nil, zap.NewNop())

	assert.Contains(t, p, "Product 1:\n- Title: Dri-Fit Tee\n- Price: $45.5\n- Vendor: Acme\n- Category: Tops\n- Color: black\n- Size: M\n")
	assert.Contains(t, p, "- Description: "+strings.Repeat("a", 200)+"\n")
	assert.NotContains(t, p, strings.Repeat("a", 201))
	assert.Contains(t, p, "- Tags: a, b, c, d, e\n")
	assert.Contains(t, p, "Product 2:\n- Title: Sports Bra\n- Price: N/A\n- Vendor: N/A\n- Category: N/A\n- Description: N/A\n")
	assert.Contains(t, p, "User Query: gym top")
	assert.Contains(t, p, "DO NOT include product names")
	assert.NotContains(t, p, "Previous conversation:")
}

func TestBuildPrompt_NoProducts(t *testing.T) {
	p := BuildPrompt("anything", query.IntentDiscovery, nil, nil, zap.NewNop())
	assert.Contains(t, p, "Product Context:\nNo products found.")
}

func TestBuildPrompt_SkipsUntitledItems(t *testing.T) {
	rs := []result.Result{
		{Item: item.Reconstruct(item.Fields{ID: "ghost"}, nil), Score: 0.9},
		product(t, item.Fields{ID: "real", Title: "Real Thing"}, 0.8),
	}

	p := BuildPrompt("thing", query.IntentDiscovery, rs, nil, zap.NewNop())

	assert.Contains(t, p, "Product 1:\n- Title: Real Thing")
	assert.NotContains(t, p, "Product 2:")
}

func TestBuildPrompt_HistoryWindow(t *testing.T) {
	history := make([]Message, 0, 8)
	for i := range 8 {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	p := BuildPrompt("and in blue?", query.IntentDiscovery, nil, history, zap.NewNop())

	assert.Contains(t, p, "Previous conversation:\nAssistant: turn 3\nUser: turn 4\n")
	assert.Contains(t, p, "Assistant: turn 7\n\nUser Query: and in blue?")
	assert.NotContains(t, p, "turn 2")
}

func TestClean(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "  These suit a busy day.  ", "These suit a busy day."},
		{"bullet pairs", "Great options.\n- Tee: light\n* Bra: firm\n• Cap: shady\nEnjoy!", "Great options.\n\nEnjoy!"},
		{"bold labels", "**Dri-Fit Tee**: keeps you cool.", "keeps you cool."},
		{"bold label mid text", "Try these.\n**Trail Runner**: grippy sole.", "Try these.\ngrippy sole."},
		{"bold label inside bullet", "Picks:\n* **Tee**: light\nDone.", "Picks:\n\nDone."},
		{"blank runs", "One.\n\n\n\n\nTwo.", "One.\n\nTwo."},
		{"bullet without colon kept", "- just a dash line", "- just a dash line"},
		{"everything stripped keeps original", "- Tee: light\n", "- Tee: light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestNeedsClarification(t *testing.T) {
	assert.True(t, NeedsClarification("Could you tell me your size?"))
	assert.True(t, NeedsClarification("These work well. Do you prefer bright colors?"))
	assert.False(t, NeedsClarification("These work well for the gym."))
}
