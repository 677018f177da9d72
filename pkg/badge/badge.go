package badge

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Classification is the health of a coverage percentage against the thresholds.
type Classification string

const (
	Pass    Classification = "pass"
	Warning Classification = "warning"
	Fail    Classification = "fail"
)

const (
	// Endpoint is the base address of the badge rendering service.
	Endpoint = "https://img.shields.io/badge"
	// DefaultLabel is used when no label is given.
	DefaultLabel = "coverage"
	// EndpointFileName is the name of the shields endpoint file written by WriteEndpoint.
	EndpointFileName = "coverage.json"
)

// Classify returns Pass when pct >= upper, Warning when lower <= pct < upper,
// and Fail otherwise.
func Classify(pct, upper, lower float64) Classification {
	if pct >= upper {
		return Pass
	}
	if pct >= lower {
		return Warning
	}
	return Fail
}

// Color returns the shields color keyword of the classification.
func (c Classification) Color() string {
	switch c {
	case Pass:
		return "brightgreen"
	case Warning:
		return "yellow"
	default:
		return "red"
	}
}

// BuildURL builds the static badge address for the given percentage.
// An empty label falls back to DefaultLabel.
func BuildURL(label string, upper, lower, pct float64) string {
	if label == "" {
		label = DefaultLabel
	}
	color := Classify(pct, upper, lower).Color()
	message := fmt.Sprintf("%.2f%%", pct)
	return fmt.Sprintf("%s/%s-%s-%s", Endpoint, escape(label), escape(message), color)
}

// escape applies the shields dash/underscore escaping and then url path escaping.
func escape(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	s = strings.ReplaceAll(s, "_", "__")
	return url.PathEscape(s)
}

// Markdown returns the markdown image of the coverage badge. The classification
// is used as alt text and title, so it's still readable when the image fails to load.
func Markdown(upper, lower, pct float64) string {
	alt := Classify(pct, upper, lower)
	return fmt.Sprintf("![%s](%s \"%s\")", alt, BuildURL("", upper, lower, pct), alt)
}

// EndpointBadge is the JSON document understood by the shields endpoint badge.
type EndpointBadge struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// NewEndpointBadge builds the endpoint document for the given percentage.
func NewEndpointBadge(label string, upper, lower, pct float64) *EndpointBadge {
	if label == "" {
		label = DefaultLabel
	}
	return &EndpointBadge{
		SchemaVersion: 1,
		Label:         label,
		Message:       fmt.Sprintf("%.2f%%", pct),
		Color:         Classify(pct, upper, lower).Color(),
	}
}

// WriteEndpoint writes the endpoint document into dir and returns the written file.
func WriteEndpoint(dir, label string, upper, lower, pct float64) (string, error) {
	data, err := json.MarshalIndent(NewEndpointBadge(label, upper, lower, pct), "", "  ")
	if err != nil {
		return "", fmt.Errorf("badge json marshal: %w", err)
	}

	filename := filepath.Join(dir, EndpointFileName)
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write badge %s: %w", filename, err)
	}
	return filename, nil
}
