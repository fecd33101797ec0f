package chi

import (
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	"github.com/kailas-cloud/neusearch/internal/usecase/recommend"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

type retrieveRequest struct {
	Query      string   `json:"query"`
	Count      int      `json:"count,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	AutoAdjust *bool    `json:"auto_adjust,omitempty"`
	Enhance    *bool    `json:"enhance,omitempty"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type recommendRequest struct {
	Query   string       `json:"query"`
	Count   int          `json:"count,omitempty"`
	History []messageDTO `json:"history,omitempty"`
}

type variantsDTO struct {
	Color *string           `json:"color,omitempty"`
	Size  *string           `json:"size,omitempty"`
	Raw   map[string]string `json:"raw,omitempty"`
}

type itemDTO struct {
	ID           string       `json:"id"`
	ExternalID   string       `json:"external_id,omitempty"`
	Title        string       `json:"title"`
	Handle       string       `json:"handle,omitempty"`
	Description  string       `json:"description,omitempty"`
	Price        *float64     `json:"price"`
	ComparePrice *float64     `json:"compare_at_price,omitempty"`
	Vendor       string       `json:"vendor,omitempty"`
	ProductType  string       `json:"product_type,omitempty"`
	Category     string       `json:"category,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	ImageURLs    []string     `json:"images,omitempty"`
	Variants     *variantsDTO `json:"variants,omitempty"`
}

type resultDTO struct {
	Item  itemDTO `json:"item"`
	Score float64 `json:"score"`
}

type priceDTO struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type retrieveResponse struct {
	Results          []resultDTO `json:"results"`
	PriceConstrained bool        `json:"price_constrained"`
	Price            *priceDTO   `json:"price,omitempty"`
	Threshold        float64     `json:"threshold"`
}

type recommendResponse struct {
	Text               string       `json:"text"`
	Items              *[]resultDTO `json:"items,omitempty"`
	NeedsClarification bool         `json:"needs_clarification"`
	Intent             string       `json:"intent"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func itemFrom(it *item.Item) itemDTO {
	dto := itemDTO{
		ID:           it.ID(),
		ExternalID:   it.ExternalID(),
		Title:        it.Title(),
		Handle:       it.Handle(),
		Description:  it.Description(),
		Price:        it.Price(),
		ComparePrice: it.ComparePrice(),
		Vendor:       it.Vendor(),
		ProductType:  it.ProductType(),
		Category:     it.Category(),
		Tags:         it.Tags(),
		ImageURLs:    it.ImageURLs(),
	}
	if v := it.Variants(); !v.IsZero() {
		dto.Variants = &variantsDTO{Color: v.Color, Size: v.Size, Raw: v.Raw}
	}
	return dto
}

func resultsFrom(rs []result.Result) []resultDTO {
	out := make([]resultDTO, len(rs))
	for i := range rs {
		out[i] = resultDTO{Item: itemFrom(&rs[i].Item), Score: rs[i].Score}
	}
	return out
}

func retrieveResponseFrom(resp retrieval.Response) retrieveResponse {
	out := retrieveResponse{
		Results:          resultsFrom(resp.Results),
		PriceConstrained: resp.PriceConstrained,
		Threshold:        resp.Threshold,
	}
	if resp.Price != nil {
		out.Price = &priceDTO{Min: resp.Price.Min, Max: resp.Price.Max}
	}
	return out
}

// Items is nil for informational answers and omitted from the body.
func recommendResponseFrom(resp recommend.Response) recommendResponse {
	out := recommendResponse{
		Text:               resp.Text,
		NeedsClarification: resp.NeedsClarification,
		Intent:             string(resp.Intent),
	}
	if resp.Items != nil {
		items := resultsFrom(resp.Items)
		out.Items = &items
	}
	return out
}
