// Package episode prepares size-bounded episode content from GeoChunks.
package episode

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// DefaultMaxLength is the default episode content budget in characters.
const DefaultMaxLength = 6000

// Truncation markers appended to cut content.
const (
	SoftTruncationMarker = "\n[TRUNCATED - Additional infrastructure details available]"
	HardTruncationMarker = "\n[TRUNCATED]"
)

// boundaryRatio is the earliest point, as a fraction of the budget, at which
// a section boundary may be used as the cut.
const boundaryRatio = 0.7

// sectionBoundaries are safe cut points in priority order.
var sectionBoundaries = []string{"\n--- ", "\n=== ", ". \n", "\n\n"}

// Preparer bounds chunk content for ingestion.
type Preparer struct {
	// MaxLength is the content budget in characters. Zero means DefaultMaxLength.
	MaxLength int

	logger *slog.Logger
}

// NewPreparer creates a preparer with the given budget.
func NewPreparer(maxLength int, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{MaxLength: maxLength, logger: logger}
}

func (p *Preparer) maxLength() int {
	if p.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return p.MaxLength
}

// Prepare returns the chunk content bounded to MaxLength characters plus at
// most one truncation marker. Content that fits is returned unchanged, with
// a [Source: name] prefix only when the prefixed text still fits.
func (p *Preparer) Prepare(chunk *types.GeoChunk, sourceName string) string {
	content, truncated := Truncate(chunk.Content, p.maxLength())
	if truncated {
		logger := p.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Truncated geo chunk",
			"zone_id", chunk.ZoneID,
			"original_length", utf8.RuneCountInString(chunk.Content),
			"truncated_length", utf8.RuneCountInString(content))
		return content
	}

	if sourceName == "" {
		return content
	}
	prefixed := fmt.Sprintf("[Source: %s]\n\n%s", sourceName, content)
	if utf8.RuneCountInString(prefixed) <= p.maxLength() {
		return prefixed
	}
	return content
}

// Truncate bounds content to maxLength characters. When content is too long
// it cuts at the last section boundary in the final 30% of the budget,
// trying boundaries in priority order, and falls back to a hard cut. The
// first boundary kind that qualifies wins even when a lower priority kind
// occurs later, so the cut is not always the furthest boundary. The
// returned flag reports whether content was cut.
func Truncate(content string, maxLength int) (string, bool) {
	if utf8.RuneCountInString(content) <= maxLength {
		return content, false
	}

	cut := runePrefix(content, maxLength)
	threshold := boundaryRatio * float64(maxLength)
	for _, boundary := range sectionBoundaries {
		idx := strings.LastIndex(cut, boundary)
		if idx < 0 {
			continue
		}
		if float64(utf8.RuneCountInString(cut[:idx])) >= threshold {
			return cut[:idx] + SoftTruncationMarker, true
		}
	}
	return cut + HardTruncationMarker, true
}

// runePrefix returns the first n characters of s.
func runePrefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
