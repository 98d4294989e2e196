// Package parser turns catalog product cards into raw records and parses the
// numeric values printed on them.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-fashion-etl/models"
)

// FieldExtractor reads the text of one business field from a product card.
// It returns false when the card has no substructure for the field.
type FieldExtractor interface {
	Extract(card *goquery.Selection, field models.Field) (string, bool)
}

// CardParser builds RawRecords from card elements using a FieldExtractor.
type CardParser struct {
	extractor FieldExtractor
}

// NewCardParser returns a parser backed by extractor.
func NewCardParser(extractor FieldExtractor) *CardParser {
	return &CardParser{extractor: extractor}
}

// ForName returns the named extraction strategy.
func ForName(name string) (FieldExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fashion":
		return NewFashionExtractor(), nil
	case "attributes":
		return AttributeExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown field extractor %q", name)
	}
}

// Parse extracts every business field of card. Absent fields get their default sentinel.
func (p *CardParser) Parse(card *goquery.Selection, page, position int) models.RawRecord {
	rec := models.RawRecord{SourcePage: page, Position: position}
	for _, f := range models.Fields {
		text, ok := p.extractor.Extract(card, f)
		if !ok || strings.TrimSpace(text) == "" {
			rec.Set(f, models.MissingField(f))
			continue
		}
		rec.Set(f, models.NewRawField(f, text))
	}
	return rec
}

// ParseDocument parses every card matching selector in document order.
func (p *CardParser) ParseDocument(doc *goquery.Document, selector string, page int) []models.RawRecord {
	cards := doc.Find(selector)
	out := make([]models.RawRecord, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		out = append(out, p.Parse(card, page, i))
	})
	return out
}

var (
	leadingNonNumeric = regexp.MustCompile(`^[^\d.+-]+`)
	// plain decimal amounts with optional thousands groups, e.g. 1,250.50
	priceGrammar  = regexp.MustCompile(`^\d+(?:,\d{3})*(?:\.\d+)?$`)
	ratingGrammar = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// ParsePrice strips a leading currency symbol and thousands separators and
// returns the non-negative amount.
func ParsePrice(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
	if !priceGrammar.MatchString(s) {
		return 0, fmt.Errorf("price %q is not a plain decimal amount", text)
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("price %q out of range", text)
	}
	return value, nil
}

// ParseRating removes the leading marker glyph and any "/ 5" suffix and
// returns a rating within [0, MaxRating].
func ParseRating(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	s = leadingNonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return 0, fmt.Errorf("rating %q has no number", text)
	}
	if !ratingGrammar.MatchString(s) {
		return 0, fmt.Errorf("rating %q is not a plain decimal", text)
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rating %q: %w", text, err)
	}
	if math.IsNaN(value) || value < 0 || value > models.MaxRating {
		return 0, fmt.Errorf("rating %q out of range", text)
	}
	return value, nil
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseColors returns the first integer found in text, e.g. 5 for "5 Colors".
func ParseColors(text string) (int, error) {
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("colors %q has no count", text)
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("parse colors %q: %w", text, err)
	}
	return n, nil
}
