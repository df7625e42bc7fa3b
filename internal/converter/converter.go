package converter

import (
	"github.com/mcncl/gotoon/internal/encoder"
	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/parser"
	"github.com/mcncl/gotoon/internal/tokens"
)

// Convert parses a JSON text, encodes it as TOON, and reports token metrics
// for the pair. Parse failures come back typed, so callers can tell client
// mistakes from internal ones.
func Convert(jsonText string) (models.ConversionResult, error) {
	value, err := parser.ParseString(jsonText)
	if err != nil {
		return models.ConversionResult{}, err
	}
	return ConvertValue(value, jsonText)
}

// ConvertValue is Convert for callers that already hold a parsed value. The
// original JSON text is still needed for the metrics comparison.
func ConvertValue(value models.Value, jsonText string) (models.ConversionResult, error) {
	toon, err := encoder.Encode(value)
	if err != nil {
		return models.ConversionResult{}, err
	}
	return models.ConversionResult{
		ToonOutput: toon,
		Metrics:    tokens.ComputeMetrics(jsonText, toon),
	}, nil
}
