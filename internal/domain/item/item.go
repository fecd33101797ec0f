package item

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// MaxIDLength caps identifier length so keys stay inside storage limits.
const MaxIDLength = 256

// Fields is the mutable input used to build an Item.
type Fields struct {
	ID           string
	ExternalID   string
	Title        string
	Handle       string
	Description  string
	BodyHTML     string
	Price        *float64
	ComparePrice *float64
	Vendor       string
	ProductType  string
	Category     string
	Tags         []string
	ImageURLs    []string
	Variants     VariantAttributes
}

// Item is a catalog entry. The embedding is absent until computed.
type Item struct {
	id           string
	externalID   string
	title        string
	handle       string
	description  string
	bodyHTML     string
	price        *float64
	comparePrice *float64
	vendor       string
	productType  string
	category     string
	tags         []string
	imageURLs    []string
	variants     VariantAttributes
	embedding    []float32
}

// New validates and creates an Item.
// ID: ^[a-zA-Z0-9_.:-]+$, up to 256 chars. Title: non-blank. Prices: finite and non-negative.
func New(f Fields) (Item, error) {
	if f.ID == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if len(f.ID) > MaxIDLength {
		return Item{}, fmt.Errorf("item ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(f.ID) {
		return Item{}, fmt.Errorf("item ID %q contains invalid characters", f.ID)
	}
	if strings.TrimSpace(f.Title) == "" {
		return Item{}, fmt.Errorf("item %s: title is required", f.ID)
	}
	if err := validPrice(f.Price); err != nil {
		return Item{}, fmt.Errorf("item %s: price %w", f.ID, err)
	}
	if err := validPrice(f.ComparePrice); err != nil {
		return Item{}, fmt.Errorf("item %s: compare price %w", f.ID, err)
	}

	it := fromFields(f)
	it.title = strings.TrimSpace(f.Title)
	it.tags = NormalizeTags(f.Tags)
	return it, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(f Fields, embedding []float32) Item {
	it := fromFields(f)
	it.embedding = embedding
	return it
}

func fromFields(f Fields) Item {
	return Item{
		id:           f.ID,
		externalID:   f.ExternalID,
		title:        f.Title,
		handle:       f.Handle,
		description:  f.Description,
		bodyHTML:     f.BodyHTML,
		price:        clonePrice(f.Price),
		comparePrice: clonePrice(f.ComparePrice),
		vendor:       f.Vendor,
		productType:  f.ProductType,
		category:     f.Category,
		tags:         slices.Clone(f.Tags),
		imageURLs:    slices.Clone(f.ImageURLs),
		variants:     f.Variants.Clone(),
	}
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// ExternalID returns the identifier in the source catalog.
func (i *Item) ExternalID() string { return i.externalID }

// Title returns the display title.
func (i *Item) Title() string { return i.title }

// Handle returns the URL slug.
func (i *Item) Handle() string { return i.handle }

// Description returns the plain-text description.
func (i *Item) Description() string { return i.description }

// BodyHTML returns the raw HTML body.
func (i *Item) BodyHTML() string { return i.bodyHTML }

// Price returns the price or nil when unknown.
func (i *Item) Price() *float64 { return clonePrice(i.price) }

// ComparePrice returns the compare-at price or nil.
func (i *Item) ComparePrice() *float64 { return clonePrice(i.comparePrice) }

// Vendor returns the brand.
func (i *Item) Vendor() string { return i.vendor }

// ProductType returns the product type.
func (i *Item) ProductType() string { return i.productType }

// Category returns the category.
func (i *Item) Category() string { return i.category }

// Tags returns the deduplicated tag set.
func (i *Item) Tags() []string { return i.tags }

// ImageURLs returns image links.
func (i *Item) ImageURLs() []string { return i.imageURLs }

// Variants returns the extracted variant attributes.
func (i *Item) Variants() VariantAttributes { return i.variants }

// Embedding returns the embedding vector, nil when not yet computed.
func (i *Item) Embedding() []float32 { return i.embedding }

// HasEmbedding reports whether an embedding is present.
func (i *Item) HasEmbedding() bool { return len(i.embedding) > 0 }

// Fields returns a copy of the mutable input form.
func (i *Item) Fields() Fields {
	return Fields{
		ID: i.id, ExternalID: i.externalID, Title: i.title, Handle: i.handle,
		Description: i.description, BodyHTML: i.bodyHTML,
		Price: clonePrice(i.price), ComparePrice: clonePrice(i.comparePrice),
		Vendor: i.vendor, ProductType: i.productType, Category: i.category,
		Tags: slices.Clone(i.tags), ImageURLs: slices.Clone(i.imageURLs),
		Variants: i.variants.Clone(),
	}
}

// WithEmbedding returns a copy with the given embedding set.
func (i *Item) WithEmbedding(v []float32) Item {
	return Reconstruct(i.Fields(), v)
}

// NormalizeTags trims, lowercases, deduplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func validPrice(p *float64) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(*p) || math.IsInf(*p, 0) {
		return fmt.Errorf("must be finite")
	}
	if *p < 0 {
		return fmt.Errorf("must be non-negative")
	}
	return nil
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
