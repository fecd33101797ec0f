package db

import (
	"strings"
	"testing"
)

func catalogIndex(t *testing.T) *IndexDefinition {
	t.Helper()
	idx, err := NewIndex("products").
		Prefix("neusearch:item:").
		Text("title").
		Tag("category", "|").
		Numeric("price").
		Vector("embedding", 1536, VectorHNSW, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return idx
}

func TestIndexBuilder_CatalogSchema(t *testing.T) {
	idx := catalogIndex(t)

	if idx.Name != "products" {
		t.Errorf("name = %q, want products", idx.Name)
	}
	if len(idx.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(idx.Fields))
	}
	if idx.Fields[1].Type != IndexFieldTag || idx.Fields[1].TagSeparator != "|" {
		t.Errorf("field[1] = %+v, want category TAG sep |", idx.Fields[1])
	}
	if idx.Fields[2].Type != IndexFieldNumeric {
		t.Errorf("field[2] = %+v, want price NUMERIC", idx.Fields[2])
	}
	v := idx.Fields[3]
	if v.VectorAlgo != VectorHNSW || v.VectorDim != 1536 || v.VectorM != 16 || v.VectorEFConstruct != 200 {
		t.Errorf("vector field = %+v", v)
	}
}

func TestIndexBuilder_FlatIgnoresHNSWParams(t *testing.T) {
	idx, err := NewIndex("flat-idx").Vector("embedding", 8, VectorFlat, 32, 400).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := idx.Fields[0]
	if f.VectorM != 0 || f.VectorEFConstruct != 0 {
		t.Errorf("FLAT field kept HNSW params: %+v", f)
	}
}

func TestIndexBuilder_MultiplePrefixes(t *testing.T) {
	idx, err := NewIndex("multi-idx").Prefix("a:", "b:", "c:").Numeric("x").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Prefixes) != 3 {
		t.Errorf("prefix count = %d, want 3", len(idx.Prefixes))
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Numeric("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "vector without dim",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Vector("v", 0, VectorFlat, 0, 0).Build()
			},
			wantErr: "positive DIM",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Numeric("x").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "duplicate field",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Numeric("price").Text("price").Build()
			},
			wantErr: "duplicate field name: price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	s := catalogIndex(t).String()
	want := "FT.CREATE products ON HASH PREFIX neusearch:item: SCHEMA title TEXT category TAG price NUMERIC embedding VECTOR HNSW"
	if s != want {
		t.Errorf("String() = %q\nwant      %q", s, want)
	}
}

func TestParseVectorAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    VectorAlgorithm
		wantErr bool
	}{
		{"", VectorHNSW, false},
		{"hnsw", VectorHNSW, false},
		{"FLAT", VectorFlat, false},
		{"ivf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVectorAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVectorAlgorithm(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVectorAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
