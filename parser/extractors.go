package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-fashion-etl/models"
)

// paragraphRule extracts a field from the first info paragraph that contains
// Keyword and matches Pattern; the first non-empty capture group is the value.
type paragraphRule struct {
	Keyword string
	Pattern *regexp.Regexp
}

// FashionExtractor reads the fashion catalog card layout: the title and price
// come from fixed selectors, the remaining attributes from "Label: value" paragraphs.
type FashionExtractor struct {
	TitleSelector  string
	PriceSelectors []string
	Paragraphs     map[models.Field]paragraphRule
}

// NewFashionExtractor returns the extractor for the default catalog markup.
func NewFashionExtractor() *FashionExtractor {
	return &FashionExtractor{
		TitleSelector:  ".product-details h3.product-title",
		PriceSelectors: []string{"div.price-container", ".price"},
		Paragraphs: map[models.Field]paragraphRule{
			models.FieldRating: {
				Keyword: "Rating",
				Pattern: regexp.MustCompile(`Rating:\s*(⭐\s*\d+(?:\.\d+)?)|Rating:\s*(?:⭐\s*)?(Invalid Rating|Not Rated)`),
			},
			models.FieldColors: {
				Keyword: "Colors",
				Pattern: regexp.MustCompile(`(\d+)\s*Colors`),
			},
			models.FieldSize: {
				Keyword: "Size",
				Pattern: regexp.MustCompile(`Size:\s*(\w+)`),
			},
			models.FieldGender: {
				Keyword: "Gender",
				Pattern: regexp.MustCompile(`Gender:\s*(\w+)`),
			},
		},
	}
}

// Extract implements FieldExtractor.
func (e *FashionExtractor) Extract(card *goquery.Selection, field models.Field) (string, bool) {
	switch field {
	case models.FieldTitle:
		return firstText(card, e.TitleSelector)
	case models.FieldPrice:
		for _, sel := range e.PriceSelectors {
			if text, ok := firstText(card, sel); ok {
				return text, true
			}
		}
		return "", false
	}

	rule, ok := e.Paragraphs[field]
	if !ok {
		return "", false
	}
	var (
		value string
		found bool
	)
	card.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := p.Text()
		if !strings.Contains(text, rule.Keyword) {
			return true
		}
		match := rule.Pattern.FindStringSubmatch(text)
		for _, group := range match[min(1, len(match)):] {
			if group = strings.TrimSpace(group); group != "" {
				value, found = group, true
				return false
			}
		}
		return true
	})
	return value, found
}

func firstText(card *goquery.Selection, selector string) (string, bool) {
	sel := card.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(sel.Text())
	return text, text != ""
}

// AttributeExtractor reads fields from data-* attributes on the card element,
// e.g. <div data-title="Hoodie 3" data-price="$496.88">.
type AttributeExtractor struct{}

// Extract implements FieldExtractor.
func (AttributeExtractor) Extract(card *goquery.Selection, field models.Field) (string, bool) {
	value, ok := card.Attr("data-" + field.Key())
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
