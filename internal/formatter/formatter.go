// Package formatter renders conversion metrics as human-readable text for
// terminal output.
package formatter

import (
	"fmt"
	"strings"

	"github.com/mcncl/gotoon/internal/models"
)

// Formatter renders token statistics for a finished conversion
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatStats returns an aligned label/value report of the token counts for
// a conversion. Values line up in a single column regardless of label width.
func (f *Formatter) FormatStats(metrics models.Metrics) string {
	rows := []struct {
		label string
		value string
	}{
		{"JSON tokens", fmt.Sprintf("%d", metrics.JSONTokens)},
		{"TOON tokens", fmt.Sprintf("%d", metrics.ToonTokens)},
		{"Tokens saved", fmt.Sprintf("%d", metrics.TokensSaved)},
		{"Reduction", metrics.ReductionPercent + "%"},
	}

	// Find the longest label so the values align.
	maxLabelLen := 0
	for _, row := range rows {
		if len(row.label) > maxLabelLen {
			maxLabelLen = len(row.label)
		}
	}

	var builder strings.Builder
	for _, row := range rows {
		builder.WriteString(fmt.Sprintf("%-*s %s\n", maxLabelLen+1, row.label+":", row.value))
	}
	return builder.String()
}
