// Package types provides type definitions for structured data used throughout the comparable-finder system.
package types

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default placeholder values used when the model omits a field.
const (
	NotAvailable    = "Not available"
	UnknownExchange = "Unknown"
)

// TargetCompany is the user-supplied profile of the company to find comparables for.
type TargetCompany struct {
	Name                          string `json:"name" validate:"required,min=3"`
	URL                           string `json:"url" validate:"required,url,startswith=http"`
	BusinessDescription           string `json:"business_description" validate:"required,min=50,max=5000"`
	PrimaryIndustryClassification string `json:"primary_industry_classification" validate:"required,min=3"`
}

// Normalize trims surrounding whitespace from all fields.
func (t *TargetCompany) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.URL = strings.TrimSpace(t.URL)
	t.BusinessDescription = strings.TrimSpace(t.BusinessDescription)
	t.PrimaryIndustryClassification = strings.TrimSpace(t.PrimaryIndustryClassification)
}

// Validate validates the TargetCompany using the validator.
func (t *TargetCompany) Validate() error {
	validate := validator.New()
	return validate.Struct(t)
}

// CandidateCompany is a validated comparable company produced by the pipeline.
// All text fields are guaranteed non-empty; scores are 0-10 integers.
type CandidateCompany struct {
	Name                    string `json:"name"`
	Ticker                  string `json:"ticker"`
	Exchange                string `json:"exchange"`
	URL                     string `json:"url"`
	BusinessActivity        string `json:"business_activity"`
	CustomerSegment         string `json:"customer_segment"`
	SICIndustry             string `json:"sic_industry"`
	ProductsSimilarityScore int    `json:"products_similarity_score"`
	CustomerSimilarityScore int    `json:"customer_similarity_score"`
}

// RawCandidate mirrors one entry of the model's JSON payload before coercion.
// Scores arrive as untyped values because models return them as numbers,
// numeric strings, or null interchangeably.
type RawCandidate struct {
	Name                    string          `json:"name"`
	Ticker                  string          `json:"ticker"`
	Exchange                string          `json:"exchange"`
	URL                     string          `json:"url"`
	BusinessActivity        string          `json:"business_activity"`
	CustomerSegment         string          `json:"customer_segment"`
	SICIndustry             string          `json:"sic_industry"`
	IsComparable            *bool           `json:"is_comparable"`
	Reason                  string          `json:"reason"`
	ProductsSimilarityScore json.RawMessage `json:"products_similarity_score"`
	CustomerSimilarityScore json.RawMessage `json:"customer_similarity_score"`
}

// CandidateFromRaw coerces a raw payload entry into a CandidateCompany,
// applying placeholder defaults for missing text fields. The returned bool is
// the model's own comparability flag; a missing flag is treated as false
// (fail-closed), matching the score-coercion policy.
func CandidateFromRaw(raw RawCandidate) (CandidateCompany, bool) {
	ticker, exchange := SplitTicker(raw.Ticker, raw.Exchange)

	c := CandidateCompany{
		Name:                    strings.TrimSpace(raw.Name),
		Ticker:                  ticker,
		Exchange:                exchange,
		URL:                     strings.TrimSpace(raw.URL),
		BusinessActivity:        defaultIfEmpty(raw.BusinessActivity, NotAvailable),
		CustomerSegment:         defaultIfEmpty(raw.CustomerSegment, NotAvailable),
		SICIndustry:             defaultIfEmpty(raw.SICIndustry, NotAvailable),
		ProductsSimilarityScore: CoerceScore(raw.ProductsSimilarityScore),
		CustomerSimilarityScore: CoerceScore(raw.CustomerSimilarityScore),
	}

	comparable := raw.IsComparable != nil && *raw.IsComparable
	return c, comparable
}

// SplitTicker normalizes a ticker that may arrive as "EXCHANGE:SYMBOL".
// The explicit exchange field wins when present; otherwise the prefix is used.
func SplitTicker(ticker, exchange string) (string, string) {
	ticker = strings.TrimSpace(ticker)
	exchange = strings.TrimSpace(exchange)

	if prefix, symbol, ok := strings.Cut(ticker, ":"); ok {
		ticker = strings.TrimSpace(symbol)
		if exchange == "" {
			exchange = strings.TrimSpace(prefix)
		}
	}
	if exchange == "" {
		exchange = UnknownExchange
	}
	return ticker, exchange
}

// CoerceScore converts an untyped similarity score to an int in [0, 10].
// Any conversion failure yields 0, so a malformed score fails the acceptance
// bar rather than passing it.
func CoerceScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var score int
	s := strings.TrimSpace(string(raw))

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		score = int(n)
	} else {
		// Models occasionally quote scores ("7" or "7/10").
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return 0
		}
		str = strings.TrimSpace(str)
		if idx := strings.Index(str, "/"); idx >= 0 {
			str = strings.TrimSpace(str[:idx])
		}
		v, err := strconv.Atoi(str)
		if err != nil {
			return 0
		}
		score = v
	}

	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func defaultIfEmpty(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
