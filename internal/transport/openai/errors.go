package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/neusearch/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response and
// classifies it. Every error also wraps base so callers can map the failing
// capability (embedding or generation).
func parseAPIError(err error, base error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("API error %d: %s: %w", reqErr.HTTPStatusCode, detail,
			classify(reqErr.HTTPStatusCode, "", base))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		return fmt.Errorf("API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message,
			classify(apiErr.HTTPStatusCode, code, base))
	}

	return fmt.Errorf("request failed: %v: %w", err, base)
}

func classify(status int, code string, base error) error {
	switch {
	case code == "insufficient_quota" || status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingQuotaExceeded, base)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrProviderUnauthorized, base)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, base)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %w", domain.ErrProviderRejected, base)
	default:
		return base
	}
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// errorType is the metrics label for a classified error.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "quota"
	case errors.Is(err, domain.ErrProviderUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrProviderRejected):
		return "rejected"
	default:
		return "api_error"
	}
}
