// Command ingest runs one full pipeline pass over the configured channels
// and writes the resulting batch as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"

	"github.com/signalreel/signalreel/engine/feed"
	"github.com/signalreel/signalreel/engine/report"
	"github.com/signalreel/signalreel/engine/signal"
	"github.com/signalreel/signalreel/engine/transcript"
	"github.com/signalreel/signalreel/pkg/classifier"
)

func main() {
	var (
		out           = flag.String("out", "feed.json", "output file for the batch")
		channelsFile  = flag.String("channels", "", "JSON file with the channel roster (default: built-in roster)")
		classifierURL = flag.String("classifier", os.Getenv("CLASSIFIER_URL"), "polarity classifier base URL (empty: keyword heuristic)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*out, *channelsFile, *classifierURL, logger); err != nil {
		logger.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(out, channelsFile, classifierURL string, logger *slog.Logger) error {
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channels, err := loadChannels(channelsFile)
	if err != nil {
		return err
	}

	chain, err := transcript.NewChain(logger,
		transcript.NewInnertubeSource(nil, nil),
		transcript.NewWatchPageSource(nil, nil),
	)
	if err != nil {
		return err
	}

	vocab := signal.DefaultVocabulary()
	var labeler signal.Labeler = signal.NewKeywordLabeler(vocab)
	if classifierURL != "" {
		labeler = signal.NewClassifierLabeler(
			classifier.NewClient(classifierURL, nil),
			signal.NewKeywordLabeler(vocab),
			logger,
		)
	}

	asm, err := report.New(report.Config{
		Channels:    channels,
		Resolver:    feed.NewResolver(nil),
		Transcripts: chain,
		Extractor:   signal.NewExtractor(vocab),
		Labeler:     labeler,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("pass starting", "channels", len(channels))
	batch := asm.Run(ctx)

	errs := 0
	for _, r := range batch.Rows {
		if r.Error != "" {
			errs++
		}
	}
	logger.Info("pass complete", "rows", len(batch.Rows), "errors", errs)

	return writeBatch(out, batch)
}

func loadChannels(path string) ([]feed.Channel, error) {
	if path == "" {
		return feed.DefaultChannels, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}
	var channels []feed.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("parse channels file: %w", err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("channels file %s is empty", path)
	}
	return channels, nil
}

// writeBatch writes via a temp file and rename so readers never see a
// half-written batch.
func writeBatch(path string, batch report.Batch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
