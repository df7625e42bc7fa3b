package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/gotoon/internal/converter"
)

func TestIntegration_ConvertThenFormat(t *testing.T) {
	// Full pipeline: parse -> encode -> metrics -> stats report
	jsonInput := `{
		"user_id": 123,
		"username": "johndoe",
		"is_active": true,
		"profile": {
			"full_name": "John Doe",
			"email": "john.doe@example.com"
		}
	}`

	result, err := converter.Convert(jsonInput)
	require.NoError(t, err)

	expectedToon := "user_id,123\n" +
		"username,johndoe\n" +
		"is_active,true\n" +
		"profile.full_name,John Doe\n" +
		"profile.email,john.doe@example.com"
	require.Equal(t, expectedToon, result.ToonOutput)

	formatter := NewFormatter()
	stats := formatter.FormatStats(result.Metrics)

	// The report carries the numbers the metrics hold
	assert.Contains(t, stats, "JSON tokens:")
	assert.Contains(t, stats, "TOON tokens:")
	assert.Contains(t, stats, "Tokens saved:")
	assert.Contains(t, stats, result.Metrics.ReductionPercent+"%")
	assert.Positive(t, result.Metrics.TokensSaved)
}
