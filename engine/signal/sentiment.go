package signal

import (
	"context"
	"log/slog"
	"strings"
)

// Sentiment is the polarity label for one transcript sample.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
	Unknown Sentiment = "unknown"
)

// Display returns the label form the display layer depends on.
func (s Sentiment) Display() string {
	switch s {
	case Bullish:
		return "🟢 Bullish"
	case Bearish:
		return "🔴 Bearish"
	case Neutral:
		return "🟡 Neutral"
	default:
		return "🟣 Unknown"
	}
}

const (
	// LabelSampleBudget bounds the prefix a Labeler sees.
	LabelSampleBudget = 1024
	// ClassifierSampleBudget bounds the prefix handed to an external classifier.
	ClassifierSampleBudget = 512
)

// Labeler maps a text sample to Bullish, Bearish, or Neutral. Unknown is
// reserved for the no-transcript case and is never returned by a Labeler.
// Implementations must be deterministic for identical input.
type Labeler interface {
	Label(ctx context.Context, sample string) Sentiment
}

// KeywordLabeler is the heuristic labeler: positive keyword occurrences
// minus negative ones over the lowercased sample.
type KeywordLabeler struct {
	positive []string
	negative []string
}

// NewKeywordLabeler builds a labeler from the vocabulary's sentiment sets.
func NewKeywordLabeler(v Vocabulary) *KeywordLabeler {
	return &KeywordLabeler{positive: lowerAll(v.Positive), negative: lowerAll(v.Negative)}
}

func (l *KeywordLabeler) Label(_ context.Context, sample string) Sentiment {
	low := strings.ToLower(sample)
	score := 0
	for _, w := range l.positive {
		score += strings.Count(low, w)
	}
	for _, w := range l.negative {
		score -= strings.Count(low, w)
	}
	switch {
	case score > 0:
		return Bullish
	case score < 0:
		return Bearish
	default:
		return Neutral
	}
}

// Classifier is the external binary-polarity classifier capability.
type Classifier interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// ClassifierLabeler delegates to an external classifier, mapping its
// POSITIVE/NEGATIVE output to Bullish/Bearish and anything else to Neutral.
// A transport failure degrades to the fallback labeler for that sample so
// one flaky classifier call never costs a channel its row.
type ClassifierLabeler struct {
	client   Classifier
	fallback Labeler
	log      *slog.Logger
}

// NewClassifierLabeler wraps a classifier capability. fallback may be nil,
// in which case classifier errors yield Neutral.
func NewClassifierLabeler(client Classifier, fallback Labeler, log *slog.Logger) *ClassifierLabeler {
	if log == nil {
		log = slog.Default()
	}
	return &ClassifierLabeler{client: client, fallback: fallback, log: log}
}

func (l *ClassifierLabeler) Label(ctx context.Context, sample string) Sentiment {
	sample = truncate(sample, ClassifierSampleBudget)
	label, _, err := l.client.Classify(ctx, sample)
	if err != nil {
		l.log.Warn("classifier call failed, using fallback", "error", err)
		if l.fallback != nil {
			return l.fallback.Label(ctx, sample)
		}
		return Neutral
	}
	switch strings.ToUpper(label) {
	case "POSITIVE":
		return Bullish
	case "NEGATIVE":
		return Bearish
	default:
		return Neutral
	}
}
