package models

import (
	"encoding/json"
	"strconv"
)

// RatingKind distinguishes the two forms a category rating can take.
type RatingKind int

const (
	// RatingNumeric is a bounded score in [0, 10].
	RatingNumeric RatingKind = iota
	// RatingText is a free-form verdict ("excellent", "8 but wobbly", ...).
	RatingText
)

const MaxScore = 10

// Rating is one category's value: either a bounded numeric score or free
// text. Consumers must handle both kinds explicitly; Score gives a numeric
// view for sorting where unparsable text counts as zero.
type Rating struct {
	Kind  RatingKind
	Value float64
	Text  string
}

func NumericRating(v float64) Rating {
	return Rating{Kind: RatingNumeric, Value: clampScore(v)}
}

func TextRating(s string) Rating {
	return Rating{Kind: RatingText, Text: s}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Score coerces the rating to a number for sorting. Text that does not parse
// as a number contributes 0.
func (r Rating) Score() float64 {
	if r.Kind == RatingNumeric {
		return r.Value
	}
	if v, err := strconv.ParseFloat(r.Text, 64); err == nil {
		return v
	}
	return 0
}

// Display renders the rating for presentation: numeric scores as numbers,
// text verbatim.
func (r Rating) Display() string {
	if r.Kind == RatingText {
		return r.Text
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON writes the store's loose number-or-string form.
func (r Rating) MarshalJSON() ([]byte, error) {
	if r.Kind == RatingText {
		return json.Marshal(r.Text)
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a JSON number or string. A numeric string like "8"
// stays textual, matching how it was stored; Score still treats it as 8.
func (r *Rating) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*r = NumericRating(value)
	case string:
		*r = TextRating(value)
	default:
		*r = NumericRating(0)
	}
	return nil
}

// Ratings is the fixed category set of an entry. The overall category is the
// default sort and display rating.
type Ratings struct {
	Design  Rating `json:"design"`
	Comfort Rating `json:"comfort"`
	Scenery Rating `json:"scenery"`
	Bonus   Rating `json:"bonus"`
	Overall Rating `json:"overall"`
}
