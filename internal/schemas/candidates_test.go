package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCandidateList(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		doc := `{
			"companies": [
				{
					"name": "Huron Consulting Group",
					"ticker": "NASDAQ:HURN",
					"exchange": "NASDAQ",
					"url": "https://www.huronconsultinggroup.com",
					"business_activity": "Consulting",
					"customer_segment": "Healthcare",
					"sic_industry": "Management Consulting Services",
					"is_comparable": true,
					"reason": "Similar services",
					"products_similarity_score": 8,
					"customer_similarity_score": 7
				}
			]
		}`
		assert.NoError(t, ValidateCandidateList(doc))
	})

	t.Run("scores as strings and nulls allowed", func(t *testing.T) {
		doc := `{
			"companies": [
				{"name": "A", "products_similarity_score": "7", "customer_similarity_score": null}
			]
		}`
		assert.NoError(t, ValidateCandidateList(doc))
	})

	t.Run("empty companies list is valid", func(t *testing.T) {
		assert.NoError(t, ValidateCandidateList(`{"companies": []}`))
	})

	t.Run("missing companies key", func(t *testing.T) {
		err := ValidateCandidateList(`{"results": []}`)
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		require.NotEmpty(t, ve.Errors)
		assert.Equal(t, "(root)", ve.Errors[0].Field)
	})

	t.Run("companies as object rejected", func(t *testing.T) {
		var ve *ValidationError
		err := ValidateCandidateList(`{"companies": {"name": "A"}}`)
		require.ErrorAs(t, err, &ve)
	})

	t.Run("entry without name rejected", func(t *testing.T) {
		var ve *ValidationError
		err := ValidateCandidateList(`{"companies": [{"ticker": "NYSE:X"}]}`)
		require.ErrorAs(t, err, &ve)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		var ve *ValidationError
		err := ValidateCandidateList(`{"companies": [{"name": ""}]}`)
		require.ErrorAs(t, err, &ve)
	})

	t.Run("not JSON at all", func(t *testing.T) {
		err := ValidateCandidateList("plain text")
		require.Error(t, err)

		var ve *ValidationError
		assert.False(t, errors.As(err, &ve))
	})
}
