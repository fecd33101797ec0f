package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

// itemNamespace derives stable item IDs from external IDs so reloading a
// catalog updates items in place.
var itemNamespace = uuid.MustParse("6f1c7c64-2a4e-4d6b-9a38-5f0f1b3c9e21")

// Record is one catalog line. It follows the storefront products.json shape
// (variants carry string prices, tags may be a comma list) and accepts flat
// price and features fields for hand-written catalogs.
type Record struct {
	ID             flexString       `json:"id"`
	Title          string           `json:"title"`
	Handle         string           `json:"handle"`
	BodyHTML       string           `json:"body_html"`
	Description    string           `json:"description"`
	Vendor         string           `json:"vendor"`
	ProductType    string           `json:"product_type"`
	Category       string           `json:"category"`
	Tags           flexTags         `json:"tags"`
	Price          flexString       `json:"price"`
	CompareAtPrice flexString       `json:"compare_at_price"`
	Variants       []map[string]any `json:"variants"`
	Options        []map[string]any `json:"options"`
	Images         []struct {
		Src string `json:"src"`
	} `json:"images"`
	Features map[string]any `json:"features"`
}

// ToItem validates the record and builds a catalog item.
func (r *Record) ToItem() (item.Item, error) {
	external := strings.TrimSpace(string(r.ID))
	id := uuid.NewString()
	if external != "" {
		id = uuid.NewSHA1(itemNamespace, []byte(external)).String()
	}

	price, err := r.price("price", r.Price)
	if err != nil {
		return item.Item{}, err
	}
	compare, err := r.price("compare_at_price", r.CompareAtPrice)
	if err != nil {
		return item.Item{}, err
	}

	description := strings.TrimSpace(r.Description)
	if description == "" {
		description = item.StripHTML(r.BodyHTML)
	}

	it, err := item.New(item.Fields{
		ID:           id,
		ExternalID:   external,
		Title:        strings.TrimSpace(r.Title),
		Handle:       r.Handle,
		Description:  description,
		BodyHTML:     r.BodyHTML,
		Price:        price,
		ComparePrice: compare,
		Vendor:       strings.TrimSpace(r.Vendor),
		ProductType:  strings.TrimSpace(r.ProductType),
		Category:     strings.TrimSpace(r.Category),
		Tags:         item.NormalizeTags(r.Tags),
		ImageURLs:    r.imageURLs(),
		Variants:     item.ExtractVariants(r.features()),
	})
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	return it, nil
}

// price prefers the flat field and falls back to the first variant.
func (r *Record) price(field string, flat flexString) (*float64, error) {
	s := strings.TrimSpace(string(flat))
	if s == "" && len(r.Variants) > 0 {
		if v, ok := r.Variants[0][field]; ok && v != nil {
			s = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	if s == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidItem, field, s)
	}
	return &p, nil
}

// imageURLs collects variant featured images then product images, deduplicated in order.
func (r *Record) imageURLs() []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	for _, v := range r.Variants {
		if img, ok := v["featured_image"].(map[string]any); ok {
			if src, ok := img["src"].(string); ok {
				add(src)
			}
		}
	}
	for _, img := range r.Images {
		add(img.Src)
	}
	return urls
}

func (r *Record) features() map[string]any {
	f := make(map[string]any, len(r.Features)+2)
	for k, v := range r.Features {
		f[k] = v
	}
	if _, ok := f["options"]; !ok && len(r.Options) > 0 {
		f["options"] = toAny(r.Options)
	}
	if _, ok := f["variants"]; !ok && len(r.Variants) > 0 {
		f["variants"] = toAny(r.Variants)
	}
	return f
}

func toAny(ms []map[string]any) []any {
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("want string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// flexTags accepts a JSON array of strings or a comma separated string.
type flexTags []string

func (t *flexTags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	*t = list
	return nil
}
