package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalreel/signalreel/engine/feed"
	"github.com/signalreel/signalreel/engine/signal"
	"github.com/signalreel/signalreel/engine/transcript"
	"github.com/signalreel/signalreel/pkg/fn"
)

// failureBackoff is the politeness delay after a failed channel, so an
// upstream outage is not hammered. Not a retry; the pass moves on.
const failureBackoff = 300 * time.Millisecond

// VideoResolver finds the latest video for a channel.
type VideoResolver interface {
	Latest(ctx context.Context, ch feed.Channel) (feed.VideoRef, error)
}

// TranscriptAcquirer obtains transcript text for a video. An absent result
// is a normal outcome.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, videoID string) transcript.Result
}

// Config wires an Assembler. Channels, Resolver, Transcripts, Extractor,
// and Labeler are required.
type Config struct {
	Channels    []feed.Channel
	Resolver    VideoResolver
	Transcripts TranscriptAcquirer
	Extractor   *signal.Extractor
	Labeler     signal.Labeler
	Logger      *slog.Logger

	// Sleep is the backoff hook; tests inject a no-op. Nil means time.Sleep.
	Sleep func(time.Duration)
	// Now supplies the batch timestamp. Nil means time.Now.
	Now func() time.Time
}

// Assembler runs one full pass: for every channel, resolve the latest
// video, acquire a transcript, extract the signal, and emit a row. Channels
// are processed sequentially and independently; one channel's failure never
// costs another its row.
type Assembler struct {
	cfg Config
	log *slog.Logger
}

// New validates the wiring. Missing capabilities are configuration errors,
// raised here rather than swallowed at run time.
func New(cfg Config) (*Assembler, error) {
	switch {
	case len(cfg.Channels) == 0:
		return nil, errors.New("report: no channels configured")
	case cfg.Resolver == nil:
		return nil, errors.New("report: resolver is required")
	case cfg.Transcripts == nil:
		return nil, errors.New("report: transcript acquirer is required")
	case cfg.Extractor == nil:
		return nil, errors.New("report: extractor is required")
	case cfg.Labeler == nil:
		return nil, errors.New("report: labeler is required")
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{cfg: cfg, log: log}, nil
}

// Run executes one pass and returns the batch. The previous pass's rows are
// fully replaced by the caller; rows carry no identity beyond the channel.
func (a *Assembler) Run(ctx context.Context) Batch {
	rows := make([]Row, 0, len(a.cfg.Channels))
	for _, ch := range a.cfg.Channels {
		row := a.buildRow(ctx, ch)
		rows = append(rows, row)
		if row.Error != "" {
			a.cfg.Sleep(failureBackoff)
		}
	}
	return Batch{
		LastUpdated: a.cfg.Now().UTC().Format(time.RFC3339),
		Rows:        rows,
	}
}

// acquired carries a resolved video and its transcript through the stages.
type acquired struct {
	ref   feed.VideoRef
	res   transcript.Result
	clean string
}

func (a *Assembler) buildRow(ctx context.Context, ch feed.Channel) Row {
	resolve := fn.Traced("feed.resolve", func(ctx context.Context, ch feed.Channel) fn.Result[feed.VideoRef] {
		ref, err := a.cfg.Resolver.Latest(ctx, ch)
		if err != nil {
			return fn.Err[feed.VideoRef](err)
		}
		return fn.Ok(ref)
	})
	acquire := fn.Traced("transcript.acquire", func(ctx context.Context, ref feed.VideoRef) fn.Result[acquired] {
		return fn.Ok(acquired{ref: ref, res: a.cfg.Transcripts.Acquire(ctx, ref.VideoID)})
	})
	normalize := fn.MapStage(func(in acquired) acquired {
		in.clean = signal.Normalize(in.res.Text)
		return in
	})
	note := fn.TapStage(func(_ context.Context, in acquired) {
		if in.clean == "" {
			a.log.Info("transcript unavailable", "channel", ch.Name, "video_id", in.ref.VideoID)
			return
		}
		a.log.Info("transcript acquired",
			"channel", ch.Name,
			"video_id", in.ref.VideoID,
			"source", in.res.Provenance,
			"lang", in.res.Lang,
			"translated", in.res.Translated,
		)
	})
	pipeline := fn.Then(resolve, fn.Then(acquire, fn.Then(normalize, note)))

	in, err := pipeline(ctx, ch).Unwrap()
	if err != nil {
		a.log.Warn("feed resolution failed", "channel", ch.Name, "error", err)
		return errorRow(ch, err)
	}

	row := Row{
		Name:       ch.Name,
		VideoTitle: in.ref.Title,
		Published:  in.ref.Published,
		URL:        in.ref.URL,
		VideoID:    in.ref.VideoID,
	}

	if in.clean == "" {
		row.Summary = "Transcript unavailable."
		row.Sentiment = signal.Unknown.Display()
		row.KeyPoints = []string{}
		row.Entities = signal.EmptyEntities()
		return row
	}

	bundle := a.cfg.Extractor.Extract(in.clean)
	sample := signal.Sample(in.clean, signal.LabelSampleBudget)
	row.Summary = bundle.Summary
	row.Sentiment = a.cfg.Labeler.Label(ctx, sample).Display()
	row.KeyPoints = bundle.KeyPoints
	row.Entities = bundle.Entities
	row.TranscriptNote = provenanceNote(in.res)
	return row
}

// provenanceNote renders the human-readable transcript annotation.
func provenanceNote(res transcript.Result) string {
	switch {
	case res.Translated && res.Lang != "":
		return fmt.Sprintf("(auto-translated from %s)", res.Lang)
	case res.Lang != "":
		return fmt.Sprintf("(lang: %s)", res.Lang)
	default:
		return ""
	}
}

// errorRow keeps the channel visible when even its VideoRef could not be
// resolved.
func errorRow(ch feed.Channel, err error) Row {
	return Row{
		Name:       ch.Name,
		VideoTitle: "Unavailable",
		Summary:    "Error: " + err.Error(),
		Sentiment:  signal.Unknown.Display(),
		KeyPoints:  []string{},
		Entities:   signal.EmptyEntities(),
		Error:      err.Error(),
	}
}
