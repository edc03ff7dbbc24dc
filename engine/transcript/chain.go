package transcript

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries sources in strict priority order and keeps the first
// non-empty result. Source failures are contained: rate limits, disabled
// captions, and transient network errors all count as "found nothing".
type Chain struct {
	sources []Source
	log     *slog.Logger
}

// NewChain builds a chain over the given sources in priority order.
// At least one source is required.
func NewChain(log *slog.Logger, sources ...Source) (*Chain, error) {
	if len(sources) == 0 {
		return nil, errors.New("transcript: no sources configured")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Chain{sources: sources, log: log}, nil
}

// Acquire returns the first source's non-empty result, tagged with that
// source's name. When every source comes up empty the zero Result is
// returned; callers check Absent().
func (c *Chain) Acquire(ctx context.Context, videoID string) Result {
	for _, s := range c.sources {
		res, err := s.Fetch(ctx, videoID)
		if err != nil {
			if errors.Is(err, ErrNoTranscript) {
				c.log.Debug("transcript source miss", "source", s.Name(), "video_id", videoID)
			} else {
				c.log.Warn("transcript source failed", "source", s.Name(), "video_id", videoID, "error", err)
			}
			continue
		}
		if res.Absent() {
			continue
		}
		res.Provenance = s.Name()
		return res
	}
	return Result{}
}
