package models

import (
	"fmt"
	"strings"
)

// Size is a canonical garment size.
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Sizes lists the accepted sizes.
var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// ParseSize maps text onto a Size, ignoring case and surrounding whitespace.
func ParseSize(text string) (Size, error) {
	text = strings.TrimSpace(text)
	for _, s := range Sizes {
		if strings.EqualFold(text, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown size %q", text)
}

// Gender is a canonical target audience.
type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderUnisex Gender = "Unisex"
)

// Genders lists the accepted genders.
var Genders = []Gender{GenderMen, GenderWomen, GenderUnisex}

// ParseGender maps text onto a Gender, ignoring case and surrounding whitespace.
func ParseGender(text string) (Gender, error) {
	text = strings.TrimSpace(text)
	for _, g := range Genders {
		if strings.EqualFold(text, string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown gender %q", text)
}
