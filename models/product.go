// Package models defines data structures shared by the extract, transform and load stages.
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout renders CleanRecord timestamps as ISO-8601 with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Sentinel texts the catalog prints when it has no real value for a field.
const (
	SentinelUnknownProduct   = "Unknown Product"
	SentinelPriceUnavailable = "Price Unavailable"
	SentinelInvalidRating    = "Invalid Rating"
	SentinelNotRated         = "Not Rated"
	SentinelNoColors         = "No Colors"
	SentinelUnknown          = "Unknown"
)

// fieldSentinels lists the markers the source prints per field. The second
// title and price entries are legacy defaults of older catalog markup.
var fieldSentinels = map[Field][]string{
	FieldTitle:  {SentinelUnknownProduct, "Unknown Title"},
	FieldPrice:  {SentinelPriceUnavailable, "Price Not Available"},
	FieldRating: {SentinelInvalidRating, SentinelNotRated},
	FieldColors: {SentinelNoColors},
	FieldSize:   {SentinelUnknown},
	FieldGender: {SentinelUnknown},
}

// Field identifies one of the six business fields of a product card.
type Field int

const (
	FieldTitle Field = iota
	FieldPrice
	FieldRating
	FieldColors
	FieldSize
	FieldGender
)

// Fields lists every business field in card order.
var Fields = []Field{FieldTitle, FieldPrice, FieldRating, FieldColors, FieldSize, FieldGender}

// Key returns the lowercase column name of the field.
func (f Field) Key() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldPrice:
		return "price"
	case FieldRating:
		return "rating"
	case FieldColors:
		return "colors"
	case FieldSize:
		return "size"
	case FieldGender:
		return "gender"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) String() string {
	return f.Key()
}

// Sentinels returns the markers the source prints when it has no value for the field.
func (f Field) Sentinels() []string {
	return fieldSentinels[f]
}

// IsSentinel reports whether text is one of the field's sentinel markers.
func (f Field) IsSentinel(text string) bool {
	text = strings.TrimSpace(text)
	for _, s := range fieldSentinels[f] {
		if text == s {
			return true
		}
	}
	return false
}

// Default returns the sentinel used when the card has no substructure for the field.
func (f Field) Default() string {
	switch f {
	case FieldTitle:
		return SentinelUnknownProduct
	case FieldPrice:
		return SentinelPriceUnavailable
	case FieldRating:
		return SentinelInvalidRating
	case FieldColors:
		return SentinelNoColors
	default:
		return SentinelUnknown
	}
}

// FieldState tags where a raw field value came from.
type FieldState int

const (
	// FieldPresent holds text scraped from the card.
	FieldPresent FieldState = iota
	// FieldMissing means the card lacked the substructure; Text holds the field default.
	FieldMissing
	// FieldFlagged means the source printed one of its own sentinel markers.
	FieldFlagged
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldMissing:
		return "missing"
	case FieldFlagged:
		return "flagged"
	default:
		return "unknown"
	}
}

// RawField is one scraped text value tagged with its provenance.
type RawField struct {
	Text  string
	State FieldState
}

// NewRawField wraps scraped text for f, flagging the field's sentinel markers.
func NewRawField(f Field, text string) RawField {
	text = strings.TrimSpace(text)
	if f.IsSentinel(text) {
		return RawField{Text: text, State: FieldFlagged}
	}
	return RawField{Text: text, State: FieldPresent}
}

// MissingField returns the default sentinel value for an absent field.
func MissingField(f Field) RawField {
	return RawField{Text: f.Default(), State: FieldMissing}
}

// Usable reports whether the field carries a real scraped value.
func (r RawField) Usable() bool {
	return r.State == FieldPresent && strings.TrimSpace(r.Text) != ""
}

func (r RawField) String() string {
	return r.Text
}

// RawRecord is one product card as scraped, before validation.
type RawRecord struct {
	Title      RawField
	Price      RawField
	Rating     RawField
	Colors     RawField
	Size       RawField
	Gender     RawField
	SourcePage int
	Position   int
}

// Get returns the raw value for f.
func (r RawRecord) Get(f Field) RawField {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldPrice:
		return r.Price
	case FieldRating:
		return r.Rating
	case FieldColors:
		return r.Colors
	case FieldSize:
		return r.Size
	default:
		return r.Gender
	}
}

// Set stores v as the raw value for f.
func (r *RawRecord) Set(f Field, v RawField) {
	switch f {
	case FieldTitle:
		r.Title = v
	case FieldPrice:
		r.Price = v
	case FieldRating:
		r.Rating = v
	case FieldColors:
		r.Colors = v
	case FieldSize:
		r.Size = v
	case FieldGender:
		r.Gender = v
	}
}

// CleanRecord is a validated, normalized product ready for the sinks.
type CleanRecord struct {
	Title     string    `csv:"title" json:"title" db:"title"`
	Price     float64   `csv:"price" json:"price" db:"price"`
	Rating    float64   `csv:"rating" json:"rating" db:"rating"`
	Colors    int       `csv:"colors" json:"colors" db:"colors"`
	Size      Size      `csv:"size" json:"size" db:"size"`
	Gender    Gender    `csv:"gender" json:"gender" db:"gender"`
	Timestamp time.Time `csv:"timestamp" json:"timestamp" db:"timestamp"`
}

// Validate checks every CleanRecord invariant.
func (c CleanRecord) Validate() error {
	if strings.TrimSpace(c.Title) == "" || FieldTitle.IsSentinel(c.Title) {
		return fmt.Errorf("record has no title")
	}
	if math.IsNaN(c.Price) || math.IsInf(c.Price, 0) {
		return fmt.Errorf("record %q has non-finite price %v", c.Title, c.Price)
	}
	if c.Price < 0 {
		return fmt.Errorf("record %q has negative price %v", c.Title, c.Price)
	}
	if math.IsNaN(c.Rating) || c.Rating < 0 || c.Rating > MaxRating {
		return fmt.Errorf("record %q rating %v out of range", c.Title, c.Rating)
	}
	if c.Colors < 0 {
		return fmt.Errorf("record %q has negative colors %d", c.Title, c.Colors)
	}
	if _, err := ParseSize(string(c.Size)); err != nil {
		return err
	}
	if _, err := ParseGender(string(c.Gender)); err != nil {
		return err
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("record %q has no timestamp", c.Title)
	}
	return nil
}

// FormattedTimestamp renders the timestamp with TimestampLayout.
func (c CleanRecord) FormattedTimestamp() string {
	return c.Timestamp.Format(TimestampLayout)
}

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// Columns is the column order shared by every tabular destination.
var Columns = []string{"title", "price", "rating", "colors", "size", "gender", "timestamp"}

// Row renders the record as strings in Columns order.
func (c CleanRecord) Row() []string {
	return []string{
		c.Title,
		strconv.FormatFloat(c.Price, 'f', -1, 64),
		strconv.FormatFloat(c.Rating, 'f', -1, 64),
		strconv.Itoa(c.Colors),
		string(c.Size),
		string(c.Gender),
		c.FormattedTimestamp(),
	}
}
