package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() CleanRecord {
	return CleanRecord{
		Title:     "T-shirt 2",
		Price:     1634400,
		Rating:    3.9,
		Colors:    3,
		Size:      SizeM,
		Gender:    GenderWomen,
		Timestamp: time.Date(2025, 6, 29, 10, 15, 30, 123456000, time.UTC),
	}
}

func TestNewRawField(t *testing.T) {
	tests := []struct {
		name   string
		field  Field
		text   string
		state  FieldState
		usable bool
	}{
		{"plain title", FieldTitle, "  Hoodie 3 ", FieldPresent, true},
		{"title sentinel", FieldTitle, "Unknown Product", FieldFlagged, false},
		{"legacy title sentinel", FieldTitle, "Unknown Title", FieldFlagged, false},
		{"price sentinel", FieldPrice, "Price Unavailable", FieldFlagged, false},
		{"rating sentinel", FieldRating, "Not Rated", FieldFlagged, false},
		{"gender sentinel", FieldGender, "Unknown", FieldFlagged, false},
		{"empty title", FieldTitle, "", FieldPresent, false},
		{"title named Unknown", FieldTitle, "Unknown", FieldPresent, true},
		{"title named No Colors", FieldTitle, "No Colors", FieldPresent, true},
		{"title named Not Rated", FieldTitle, "Not Rated", FieldPresent, true},
		{"price text of another field", FieldPrice, "Invalid Rating", FieldPresent, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRawField(tt.field, tt.text)
			assert.Equal(t, tt.state, f.State)
			assert.Equal(t, tt.usable, f.Usable())
		})
	}
}

func TestFieldSentinelsArePerField(t *testing.T) {
	for _, f := range Fields {
		assert.Contains(t, f.Sentinels(), f.Default(), f.Key())
	}
	assert.True(t, FieldColors.IsSentinel(" No Colors "))
	assert.False(t, FieldTitle.IsSentinel("No Colors"))
	assert.False(t, FieldSize.IsSentinel("Not Rated"))
}

func TestMissingFieldDefaults(t *testing.T) {
	assert.Equal(t, RawField{Text: SentinelUnknownProduct, State: FieldMissing}, MissingField(FieldTitle))
	assert.Equal(t, SentinelPriceUnavailable, MissingField(FieldPrice).Text)
	assert.Equal(t, SentinelUnknown, MissingField(FieldGender).Text)
	assert.False(t, MissingField(FieldSize).Usable())
}

func TestRawRecordGetSet(t *testing.T) {
	var r RawRecord
	for _, f := range Fields {
		r.Set(f, NewRawField(f, f.Key()))
	}
	for _, f := range Fields {
		assert.Equal(t, f.Key(), r.Get(f).Text)
	}
}

func TestParseSizeAndGender(t *testing.T) {
	s, err := ParseSize(" xl ")
	require.NoError(t, err)
	assert.Equal(t, SizeXL, s)

	_, err = ParseSize("XXXL")
	assert.Error(t, err)

	g, err := ParseGender("unisex")
	require.NoError(t, err)
	assert.Equal(t, GenderUnisex, g)

	_, err = ParseGender("Kids")
	assert.Error(t, err)
}

func TestCleanRecordValidate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := map[string]func(*CleanRecord){
		"blank title":    func(r *CleanRecord) { r.Title = " " },
		"sentinel title": func(r *CleanRecord) { r.Title = SentinelUnknownProduct },
		"negative price": func(r *CleanRecord) { r.Price = -1 },
		"infinite price": func(r *CleanRecord) { r.Price = math.Inf(1) },
		"NaN price":      func(r *CleanRecord) { r.Price = math.NaN() },
		"NaN rating":     func(r *CleanRecord) { r.Rating = math.NaN() },
		"rating too big": func(r *CleanRecord) { r.Rating = 5.1 },
		"negative color": func(r *CleanRecord) { r.Colors = -1 },
		"unknown size":   func(r *CleanRecord) { r.Size = "XXXL" },
		"unknown gender": func(r *CleanRecord) { r.Gender = "" },
		"zero timestamp": func(r *CleanRecord) { r.Timestamp = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := validRecord()
			mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestCleanRecordValidateAcceptsSentinelLikeTitles(t *testing.T) {
	for _, title := range []string{"Unknown", "No Colors", "Not Rated", "Price Unavailable"} {
		r := validRecord()
		r.Title = title
		assert.NoError(t, r.Validate(), title)
	}
}

func TestCleanRecordRow(t *testing.T) {
	row := validRecord().Row()
	require.Len(t, row, len(Columns))
	assert.Equal(t, []string{"T-shirt 2", "1634400", "3.9", "3", "M", "Women", "2025-06-29T10:15:30.123456Z"}, row)
}

func TestLoadReport(t *testing.T) {
	var r LoadReport
	assert.True(t, r.AllSucceeded())
	assert.Equal(t, "0/0 destinations successful", r.Summary())

	r.Add(LoadOutcome{Destination: "csv", Success: true})
	r.Add(LoadOutcome{Destination: "postgres", Err: errors.New("connection refused")})
	r.Add(LoadOutcome{Destination: "sheets", Success: true})

	assert.Equal(t, "2/3 destinations successful", r.Summary())
	assert.False(t, r.AllSucceeded())
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, "postgres", r.Failed()[0].Destination)
	assert.Equal(t, "connection refused", r.Failed()[0].Error())
	assert.Empty(t, r.Outcomes[0].Error())
}
