package episode

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// contentWithMarker builds ASCII content of the given length with marker
// placed at offset.
func contentWithMarker(length, offset int, marker string) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("x", offset))
	b.WriteString(marker)
	b.WriteString(strings.Repeat("y", length-offset-len(marker)))
	return b.String()
}

func TestTruncate(t *testing.T) {
	t.Run("section boundary in tail is used", func(t *testing.T) {
		content := contentWithMarker(8000, 4500, "\n--- INFRASTRUCTURE ---")
		got, truncated := Truncate(content, 6000)
		assert.True(t, truncated)
		assert.Equal(t, content[:4500]+SoftTruncationMarker, got)
	})

	t.Run("boundary below threshold forces hard cut", func(t *testing.T) {
		content := contentWithMarker(8000, 3000, "\n--- INFRASTRUCTURE ---")
		got, truncated := Truncate(content, 6000)
		assert.True(t, truncated)
		assert.Equal(t, content[:6000]+HardTruncationMarker, got)
		assert.True(t, strings.HasSuffix(got, "[TRUNCATED]"))
	})

	t.Run("boundary exactly at threshold is used", func(t *testing.T) {
		content := contentWithMarker(8000, 4200, "\n\nmore")
		got, _ := Truncate(content, 6000)
		assert.Equal(t, content[:4200]+SoftTruncationMarker, got)
	})

	t.Run("higher priority boundary wins", func(t *testing.T) {
		content := strings.Repeat("a", 4300) + "\n--- A" + strings.Repeat("b", 1000) + "\n\nB" + strings.Repeat("c", 3000)
		got, _ := Truncate(content, 6000)
		assert.Equal(t, content[:4300]+SoftTruncationMarker, got)
	})

	t.Run("lower priority boundary used when higher is too early", func(t *testing.T) {
		content := strings.Repeat("a", 1000) + "\n--- A" + strings.Repeat("b", 4000) + "\n\nB" + strings.Repeat("c", 3000)
		got, _ := Truncate(content, 6000)
		idx := strings.Index(content, "\n\nB")
		assert.Equal(t, content[:idx]+SoftTruncationMarker, got)
	})

	t.Run("boundary past the cut is ignored", func(t *testing.T) {
		content := contentWithMarker(8000, 5998, "\n--- X")
		got, _ := Truncate(content, 6000)
		assert.Equal(t, content[:6000]+HardTruncationMarker, got)
	})

	t.Run("fits unchanged", func(t *testing.T) {
		got, truncated := Truncate("short", 6000)
		assert.False(t, truncated)
		assert.Equal(t, "short", got)
	})

	t.Run("multibyte content is cut on characters", func(t *testing.T) {
		content := strings.Repeat("•", 100)
		got, truncated := Truncate(content, 10)
		assert.True(t, truncated)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("•", 10)+HardTruncationMarker, got)
	})

	t.Run("length bound holds", func(t *testing.T) {
		for _, n := range []int{0, 100, 5999, 6000, 6001, 9000} {
			content := strings.Repeat("line of text\n\n", n/14+1)[:n]
			got, _ := Truncate(content, 6000)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 6000+utf8.RuneCountInString(SoftTruncationMarker))
		}
	})
}

func TestPrepare(t *testing.T) {
	p := NewPreparer(0, nil)

	t.Run("default budget", func(t *testing.T) {
		assert.Equal(t, DefaultMaxLength, p.maxLength())
	})

	t.Run("adds source prefix when it fits", func(t *testing.T) {
		chunk := &types.GeoChunk{ZoneID: "zone_001", Content: "=== ZONE: A (zone_001) ==="}
		assert.Equal(t, "[Source: venue]\n\n=== ZONE: A (zone_001) ===", p.Prepare(chunk, "venue"))
	})

	t.Run("no prefix without source", func(t *testing.T) {
		chunk := &types.GeoChunk{Content: "body"}
		assert.Equal(t, "body", p.Prepare(chunk, ""))
	})

	t.Run("skips prefix when prefixed text would not fit", func(t *testing.T) {
		small := NewPreparer(20, nil)
		chunk := &types.GeoChunk{Content: strings.Repeat("z", 18)}
		assert.Equal(t, chunk.Content, small.Prepare(chunk, "venue"))
	})

	t.Run("truncated content gets no prefix", func(t *testing.T) {
		chunk := &types.GeoChunk{ZoneID: "zone_002", Content: contentWithMarker(8000, 4500, "\n--- X")}
		got := p.Prepare(chunk, "venue")
		assert.False(t, strings.HasPrefix(got, "[Source:"))
		assert.True(t, strings.HasSuffix(got, SoftTruncationMarker))
	})
}
