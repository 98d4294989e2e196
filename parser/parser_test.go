package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-fashion-etl/models"
)

const catalogPage = `<html><body><div class="collection-grid">
<div class="collection-card">
  <div class="product-details">
    <h3 class="product-title">Hoodie 3</h3>
    <div class="price-container"><span class="price">$496.88</span></div>
    <p>Rating: ⭐ 4.8 / 5</p>
    <p>3 Colors</p>
    <p>Size: L</p>
    <p>Gender: Unisex</p>
  </div>
</div>
<div class="collection-card">
  <div class="product-details">
    <h3 class="product-title">Unknown Product</h3>
    <p class="price">Price Unavailable</p>
    <p>Rating: ⭐ Invalid Rating / 5</p>
    <p>5 Colors</p>
    <p>Size: M</p>
    <p>Gender: Men</p>
  </div>
</div>
<div class="collection-card">
  <div class="product-details">
    <h3 class="product-title">Pants 7</h3>
    <p>Rating: Not Rated</p>
  </div>
</div>
</div></body></html>`

func loadDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestFashionExtractorParseDocument(t *testing.T) {
	doc := loadDoc(t, catalogPage)
	p := NewCardParser(NewFashionExtractor())

	records := p.ParseDocument(doc, "div.collection-card", 4)
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}

	first := records[0]
	want := map[models.Field]string{
		models.FieldTitle:  "Hoodie 3",
		models.FieldPrice:  "$496.88",
		models.FieldRating: "⭐ 4.8",
		models.FieldColors: "3",
		models.FieldSize:   "L",
		models.FieldGender: "Unisex",
	}
	for field, text := range want {
		got := first.Get(field)
		if got.Text != text || got.State != models.FieldPresent {
			t.Errorf("%s = %q/%s, want %q/present", field, got.Text, got.State, text)
		}
	}
	if first.SourcePage != 4 || first.Position != 0 {
		t.Fatalf("provenance = page %d pos %d, want page 4 pos 0", first.SourcePage, first.Position)
	}
	if records[2].Position != 2 {
		t.Fatalf("third card position = %d, want 2", records[2].Position)
	}
}

func TestFashionExtractorSentinels(t *testing.T) {
	doc := loadDoc(t, catalogPage)
	p := NewCardParser(NewFashionExtractor())
	records := p.ParseDocument(doc, "div.collection-card", 1)

	flagged := records[1]
	if flagged.Title.State != models.FieldFlagged {
		t.Errorf("title state = %s, want flagged", flagged.Title.State)
	}
	if flagged.Price.Text != models.SentinelPriceUnavailable || flagged.Price.State != models.FieldFlagged {
		t.Errorf("price = %q/%s, want flagged sentinel", flagged.Price.Text, flagged.Price.State)
	}
	if flagged.Rating.Text != models.SentinelInvalidRating || flagged.Rating.State != models.FieldFlagged {
		t.Errorf("rating = %q/%s, want flagged sentinel", flagged.Rating.Text, flagged.Rating.State)
	}

	sparse := records[2]
	if sparse.Rating.Text != models.SentinelNotRated || sparse.Rating.State != models.FieldFlagged {
		t.Errorf("rating = %q/%s, want Not Rated flagged", sparse.Rating.Text, sparse.Rating.State)
	}
	for _, field := range []models.Field{models.FieldPrice, models.FieldColors, models.FieldSize, models.FieldGender} {
		got := sparse.Get(field)
		if got.State != models.FieldMissing || got.Text != field.Default() {
			t.Errorf("%s = %q/%s, want missing default %q", field, got.Text, got.State, field.Default())
		}
	}
}

func TestAttributeExtractor(t *testing.T) {
	doc := loadDoc(t, `<div class="card" data-title="Shirt 1" data-price="$10.00" data-rating="4.1" data-colors="2 Colors" data-size="s" data-gender="women"></div>
<div class="card" data-title="  "></div>`)
	p := NewCardParser(AttributeExtractor{})

	records := p.ParseDocument(doc, "div.card", 1)
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0].Title.Text != "Shirt 1" || records[0].Size.Text != "s" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[1].Title.State != models.FieldMissing {
		t.Fatalf("blank attribute should be missing, got %s", records[1].Title.State)
	}
}

func TestForName(t *testing.T) {
	if _, err := ForName("fashion"); err != nil {
		t.Fatalf("fashion: %v", err)
	}
	if _, err := ForName("attributes"); err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if _, err := ForName("xpath"); err == nil {
		t.Fatalf("expected error for unknown extractor")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "dollar", input: "$496.88", want: 496.88},
		{name: "thousands separator", input: "$1,250.50", want: 1250.50},
		{name: "pound with spaces", input: " £ 51.77 ", want: 51.77},
		{name: "bare number", input: "10", want: 10},
		{name: "zero", input: "$0.00", want: 0},
		{name: "sentinel", input: "Price Unavailable", wantErr: true},
		{name: "negative", input: "$-5.00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "INVALID", wantErr: true},
		{name: "exponent overflow", input: "$1e308", wantErr: true},
		{name: "exponent", input: "$1e3", wantErr: true},
		{name: "hex float", input: "$0x1p4", wantErr: true},
		{name: "infinity", input: "$Inf", wantErr: true},
		{name: "misplaced separator", input: "$12,50", wantErr: true},
		{name: "trailing dot", input: "$12.", wantErr: true},
		{name: "huge plain amount", input: "$" + strings.Repeat("9", 400), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "star prefix", input: "⭐ 4.8", want: 4.8},
		{name: "star with scale", input: "⭐ 3.9 / 5", want: 3.9},
		{name: "integer", input: "5", want: 5},
		{name: "lower bound", input: "⭐ 0.0", want: 0},
		{name: "above scale", input: "⭐ 5.1", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "invalid sentinel", input: "Invalid Rating", wantErr: true},
		{name: "not rated sentinel", input: "Not Rated", wantErr: true},
		{name: "exponent", input: "⭐ 4e0", wantErr: true},
		{name: "hex float", input: "0x1p2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRating(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRating(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParseRating(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseColors(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "5 Colors", want: 5},
		{input: "3", want: 3},
		{input: "0 Colors", want: 0},
		{input: "No Colors", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColors(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColors(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseColors(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
