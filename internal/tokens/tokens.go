package tokens

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/gotoon/internal/models"
)

const (
	charsPerToken     = 4
	charWeight        = 0.6
	wordWeight        = 0.4
	specialCharWeight = 0.5
)

// specialChars are the structural syntax characters that tokenizers tend to
// split on, counted at half weight in the word estimate.
const specialChars = "{}[]:,\n"

// EstimateTokens approximates how many language-model tokens a text would
// consume. It blends a character-length estimate with a word-and-syntax
// estimate; it is a deterministic heuristic, not a real tokenizer. Rounding
// is half away from zero.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	charCount := utf8.RuneCountInString(text)
	wordCount := len(strings.Fields(text))
	specialCount := 0
	for _, r := range text {
		if strings.ContainsRune(specialChars, r) {
			specialCount++
		}
	}
	charEstimate := float64(charCount) / charsPerToken
	wordEstimate := float64(wordCount) + float64(specialCount)*specialCharWeight
	return int(math.Round(charEstimate*charWeight + wordEstimate*wordWeight))
}

// ComputeMetrics derives compression metrics from the original JSON text and
// the TOON text it produced. TokensSaved and ReductionPercent go negative
// when the TOON text costs more than the JSON; that is reported, not
// clamped. ReductionPercent is the literal "0" when the JSON estimate is
// zero.
func ComputeMetrics(jsonText, toonText string) models.Metrics {
	jsonTokens := EstimateTokens(jsonText)
	toonTokens := EstimateTokens(toonText)
	saved := jsonTokens - toonTokens

	reduction := "0"
	if jsonTokens > 0 {
		reduction = fmt.Sprintf("%.1f", float64(saved)/float64(jsonTokens)*100)
	}

	return models.Metrics{
		JSONTokens:       jsonTokens,
		ToonTokens:       toonTokens,
		TokensSaved:      saved,
		ReductionPercent: reduction,
	}
}
