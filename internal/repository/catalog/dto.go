package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/neusearch/internal/db"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

// Hash field names. Additions must keep ReturnFields in sync.
const (
	fieldID           = "id"
	fieldExternalID   = "external_id"
	fieldTitle        = "title"
	fieldHandle       = "handle"
	fieldDescription  = "description"
	fieldBodyHTML     = "body_html"
	fieldPrice        = "price"
	fieldComparePrice = "compare_price"
	fieldVendor       = "vendor"
	fieldProductType  = "product_type"
	fieldCategory     = "category"
	fieldTags         = "tags"
	fieldImageURLs    = "image_urls"
	fieldVariants     = "variants"
	fieldEmbedding    = db.DefaultVectorField
)

const tagSeparator = "|"

// ReturnFields lists every stored field except the embedding, for KNN
// replies that hydrate items without shipping vectors back.
var ReturnFields = []string{
	fieldID, fieldExternalID, fieldTitle, fieldHandle, fieldDescription, fieldBodyHTML,
	fieldPrice, fieldComparePrice, fieldVendor, fieldProductType, fieldCategory,
	fieldTags, fieldImageURLs, fieldVariants,
}

type variantsDTO struct {
	Color *string           `json:"color,omitempty"`
	Size  *string           `json:"size,omitempty"`
	Raw   map[string]string `json:"raw,omitempty"`
}

// EncodeHash flattens an item into hash fields. Absent prices and an absent
// embedding produce no field, so numeric and vector indexes skip the item.
func EncodeHash(it *item.Item) (map[string]string, error) {
	m := map[string]string{
		fieldID:          it.ID(),
		fieldExternalID:  it.ExternalID(),
		fieldTitle:       it.Title(),
		fieldHandle:      it.Handle(),
		fieldDescription: it.Description(),
		fieldBodyHTML:    it.BodyHTML(),
		fieldVendor:      it.Vendor(),
		fieldProductType: it.ProductType(),
		fieldCategory:    it.Category(),
		fieldTags:        strings.Join(it.Tags(), tagSeparator),
	}
	if p := it.Price(); p != nil {
		m[fieldPrice] = strconv.FormatFloat(*p, 'f', -1, 64)
	}
	if p := it.ComparePrice(); p != nil {
		m[fieldComparePrice] = strconv.FormatFloat(*p, 'f', -1, 64)
	}

	urls, err := json.Marshal(it.ImageURLs())
	if err != nil {
		return nil, fmt.Errorf("marshal image urls: %w", err)
	}
	m[fieldImageURLs] = string(urls)

	v := it.Variants()
	vars, err := json.Marshal(variantsDTO{Color: v.Color, Size: v.Size, Raw: v.Raw})
	if err != nil {
		return nil, fmt.Errorf("marshal variants: %w", err)
	}
	m[fieldVariants] = string(vars)

	if it.HasEmbedding() {
		m[fieldEmbedding] = db.VectorToBytes(it.Embedding())
	}
	return m, nil
}

// DecodeHash rebuilds an item from hash fields. Unparseable prices or JSON
// blobs are errors; callers treat them as bad records.
func DecodeHash(m map[string]string) (item.Item, error) {
	id := m[fieldID]
	if id == "" {
		return item.Item{}, fmt.Errorf("hash has no %s field", fieldID)
	}

	f := item.Fields{
		ID:          id,
		ExternalID:  m[fieldExternalID],
		Title:       m[fieldTitle],
		Handle:      m[fieldHandle],
		Description: m[fieldDescription],
		BodyHTML:    m[fieldBodyHTML],
		Vendor:      m[fieldVendor],
		ProductType: m[fieldProductType],
		Category:    m[fieldCategory],
	}
	if s := m[fieldTags]; s != "" {
		f.Tags = strings.Split(s, tagSeparator)
	}

	var err error
	if f.Price, err = parsePrice(m[fieldPrice]); err != nil {
		return item.Item{}, fmt.Errorf("item %s: price: %w", id, err)
	}
	if f.ComparePrice, err = parsePrice(m[fieldComparePrice]); err != nil {
		return item.Item{}, fmt.Errorf("item %s: compare price: %w", id, err)
	}

	if s := m[fieldImageURLs]; s != "" {
		if err := json.Unmarshal([]byte(s), &f.ImageURLs); err != nil {
			return item.Item{}, fmt.Errorf("item %s: image urls: %w", id, err)
		}
	}
	if s := m[fieldVariants]; s != "" {
		var v variantsDTO
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return item.Item{}, fmt.Errorf("item %s: variants: %w", id, err)
		}
		f.Variants = item.VariantAttributes{Color: v.Color, Size: v.Size, Raw: v.Raw}
	}

	return item.Reconstruct(f, db.BytesToVector(m[fieldEmbedding])), nil
}

func parsePrice(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
