package item

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// VariantAttributes is the normalized view of a product's option data.
// It is produced once at ingestion and never re-parsed afterwards.
type VariantAttributes struct {
	Color *string
	Size  *string
	Raw   map[string]string
}

// Clone returns a deep copy.
func (v VariantAttributes) Clone() VariantAttributes {
	return VariantAttributes{
		Color: cloneString(v.Color),
		Size:  cloneString(v.Size),
		Raw:   maps.Clone(v.Raw),
	}
}

// IsZero reports whether no attribute was extracted.
func (v VariantAttributes) IsZero() bool {
	return v.Color == nil && v.Size == nil && len(v.Raw) == 0
}

var (
	colorKeys = map[string]bool{"color": true, "colour": true}
	sizeKeys  = map[string]bool{"size": true}
)

// ExtractVariants reads a loosely structured features document:
//
//	{"color": "Black", "options": [{"name": "Size", "values": ["S", "M"]}],
//	 "variants": [{"option1": "S", "color": "Black"}]}
//
// Top-level color/size keys win, then option values, then the first variant.
// Every option becomes a Raw entry keyed by its lowercased name. Malformed values are skipped.
func ExtractVariants(features map[string]any) VariantAttributes {
	var attrs VariantAttributes
	if len(features) == 0 {
		return attrs
	}
	raw := make(map[string]string)

	for _, k := range slices.Sorted(maps.Keys(features)) {
		s, ok := scalarString(features[k])
		if !ok || s == "" {
			continue
		}
		lk := strings.ToLower(k)
		raw[lk] = s
		switch {
		case colorKeys[lk] && attrs.Color == nil:
			attrs.Color = &s
		case sizeKeys[lk] && attrs.Size == nil:
			attrs.Size = &s
		}
	}

	optionNames := extractOptions(features["options"], raw, &attrs)
	extractFromVariants(features["variants"], optionNames, &attrs)

	if len(raw) > 0 {
		attrs.Raw = raw
	}
	return attrs
}

// extractOptions returns option names by position (1-based positions map to option1..option3).
func extractOptions(v any, raw map[string]string, attrs *VariantAttributes) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, o := range list {
		opt, ok := o.(map[string]any)
		if !ok {
			names = append(names, "")
			continue
		}
		name, _ := opt["name"].(string)
		name = strings.ToLower(strings.TrimSpace(name))
		names = append(names, name)
		if name == "" {
			continue
		}

		values := stringList(opt["values"])
		if len(values) == 0 {
			continue
		}
		if _, exists := raw[name]; !exists {
			raw[name] = strings.Join(values, ", ")
		}
		first := values[0]
		switch {
		case colorKeys[name] && attrs.Color == nil:
			attrs.Color = &first
		case sizeKeys[name] && attrs.Size == nil:
			attrs.Size = &first
		}
	}
	return names
}

func extractFromVariants(v any, optionNames []string, attrs *VariantAttributes) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return
	}

	for _, k := range slices.Sorted(maps.Keys(first)) {
		s, ok := scalarString(first[k])
		if !ok || s == "" {
			continue
		}
		lk := strings.ToLower(k)
		name := lk
		if pos, isOpt := optionPosition(lk); isOpt {
			if pos >= len(optionNames) {
				continue
			}
			name = optionNames[pos]
		}
		switch {
		case colorKeys[name] && attrs.Color == nil:
			attrs.Color = &s
		case sizeKeys[name] && attrs.Size == nil:
			attrs.Size = &s
		}
	}
}

// optionPosition maps "option1".."option3" to 0..2.
func optionPosition(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "option")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 3 {
		return 0, false
	}
	return n - 1, true
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := scalarString(e); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
