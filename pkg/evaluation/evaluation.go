// Package evaluation holds the analyzer's verdict on a conversation.
package evaluation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Recommendation is the suggested disposition of a conversation.
type Recommendation string

const (
	Keep    Recommendation = "Keep"
	Archive Recommendation = "Archive"
	Delete  Recommendation = "Delete"
)

// Palette is a background/foreground colour pair in CSS hex notation.
type Palette struct {
	Background string
	Foreground string
}

var palettes = map[Recommendation]Palette{
	Keep:    {Background: "#0d6b0d", Foreground: "#fff"},
	Archive: {Background: "#b8860b", Foreground: "#fff"},
	Delete:  {Background: "#b91c1c", Foreground: "#fff"},
}

// ParseRecommendation matches s case-insensitively against the known values.
func ParseRecommendation(s string) (Recommendation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep":
		return Keep, true
	case "archive":
		return Archive, true
	case "delete":
		return Delete, true
	}
	return "", false
}

// Palette returns the colours for r. Unrecognized values use Keep's colours.
func (r Recommendation) Palette() Palette {
	if known, ok := ParseRecommendation(string(r)); ok {
		return palettes[known]
	}
	return palettes[Keep]
}

// Evaluation is the analyzer's structured judgment of a transcript.
type Evaluation struct {
	Summary        string         `json:"summary"`
	Category       string         `json:"category"`
	Value          float64        `json:"value"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
}

// Validation errors.
var (
	ErrValueRange            = errors.New("value must be between 1 and 10")
	ErrConfidenceRange       = errors.New("confidence must be between 1 and 5")
	ErrInvalidRecommendation = errors.New("recommendation must be Keep, Archive or Delete")
)

// Validate checks ranges and canonicalizes the recommendation's spelling.
func (e *Evaluation) Validate() error {
	if e.Value < 1 || e.Value > 10 {
		return fmt.Errorf("%w (got %v)", ErrValueRange, e.Value)
	}
	if e.Confidence < 1 || e.Confidence > 5 {
		return fmt.Errorf("%w (got %v)", ErrConfidenceRange, e.Confidence)
	}
	rec, ok := ParseRecommendation(string(e.Recommendation))
	if !ok {
		return fmt.Errorf("%w (got %q)", ErrInvalidRecommendation, e.Recommendation)
	}
	e.Recommendation = rec
	return nil
}

// DisplayRecommendation is the recommendation as shown to users, Keep when unset.
func (e Evaluation) DisplayRecommendation() string {
	if e.Recommendation == "" {
		return string(Keep)
	}
	return string(e.Recommendation)
}

// FormatValue renders the score without trailing zeros.
func (e Evaluation) FormatValue() string {
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

// BadgeText is the indicator label, e.g. "7/10 · Keep".
func (e Evaluation) BadgeText() string {
	return fmt.Sprintf("%s/10 · %s", e.FormatValue(), e.DisplayRecommendation())
}
