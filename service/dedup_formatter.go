package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apigovern/gatekeeper/domain"
)

// OutputFormat selects how dedup results are rendered.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat maps a user-supplied format name to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", domain.NewInvalidInputError(fmt.Sprintf("unsupported output format: %s", s), nil)
	}
}

// DedupFormatter renders dedup results for the CLI and MCP surfaces.
type DedupFormatter struct{}

// NewDedupFormatter creates a formatter.
func NewDedupFormatter() *DedupFormatter {
	return &DedupFormatter{}
}

// Format renders a result in the requested format.
func (f *DedupFormatter) Format(result domain.DedupResult, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", domain.NewInternalError("failed to encode result", err)
		}
		return string(data), nil
	case FormatText, "":
		return f.formatText(result), nil
	default:
		return "", domain.NewInvalidInputError(fmt.Sprintf("unsupported output format: %s", format), nil)
	}
}

func (f *DedupFormatter) formatText(result domain.DedupResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "API: %s (organization: %s)\n", result.QueryAPIUUID, result.Organization)
	fmt.Fprintf(&sb, "Threshold: %.0f%%\n", result.Threshold*100)
	sb.WriteString(result.Message)
	sb.WriteString("\n")

	for i, report := range result.ConflictReports {
		fmt.Fprintf(&sb, "\nConflict %d:\n", i+1)
		fmt.Fprintf(&sb, "  Matched API: %s\n", report.MatchedAPIUUID)
		fmt.Fprintf(&sb, "  Similarity:  %.1f%%\n", report.SimilarityScore*100)
		if report.Recommendation != "" {
			fmt.Fprintf(&sb, "  Recommendation: %s\n", report.Recommendation)
		}
	}
	return sb.String()
}
