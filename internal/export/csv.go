// Package export serializes result sets to CSV and Excel.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jonathan/comparable-finder/internal/types"
)

// Columns is the fixed export column order for both formats.
var Columns = []string{
	"name",
	"ticker",
	"exchange",
	"url",
	"business_activity",
	"customer_segment",
	"sic_industry",
	"products_similarity_score",
	"customer_similarity_score",
}

// row flattens one candidate in Columns order.
func row(c types.CandidateCompany) []string {
	return []string{
		c.Name,
		c.Ticker,
		c.Exchange,
		c.URL,
		c.BusinessActivity,
		c.CustomerSegment,
		c.SICIndustry,
		strconv.Itoa(c.ProductsSimilarityScore),
		strconv.Itoa(c.CustomerSimilarityScore),
	}
}

// WriteCSV writes the results as CSV with a header row.
func WriteCSV(w io.Writer, results []types.CandidateCompany) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range results {
		if err := cw.Write(row(c)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", c.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
