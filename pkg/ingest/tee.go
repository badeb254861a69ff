package ingest

import (
	"context"

	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/types"
)

type teeWriter []driver.EpisodeWriter

// Tee returns a writer that adds each episode to every writer in order,
// stopping at the first error. A failure after an earlier writer succeeded
// still fails the chunk, so writers that cannot take an episode twice go
// last.
func Tee(writers ...driver.EpisodeWriter) driver.EpisodeWriter {
	if len(writers) == 1 {
		return writers[0]
	}
	return teeWriter(writers)
}

func (t teeWriter) AddEpisode(ctx context.Context, episode types.Episode) error {
	for _, w := range t {
		if err := w.AddEpisode(ctx, episode); err != nil {
			return err
		}
	}
	return nil
}
