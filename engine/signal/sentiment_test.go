package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSentimentDisplay(t *testing.T) {
	tests := []struct {
		in   Sentiment
		want string
	}{
		{Bullish, "🟢 Bullish"},
		{Bearish, "🔴 Bearish"},
		{Neutral, "🟡 Neutral"},
		{Unknown, "🟣 Unknown"},
		{Sentiment("garbage"), "🟣 Unknown"},
	}
	for _, tt := range tests {
		if got := tt.in.Display(); got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeywordLabeler(t *testing.T) {
	l := NewKeywordLabeler(DefaultVocabulary())
	ctx := context.Background()

	tests := []struct {
		name, sample string
		want         Sentiment
	}{
		{"positive", "a clean breakout and a strong rally with more upside", Bullish},
		{"negative", "bearish breakdown, expect another dump", Bearish},
		{"balanced", "rally into a dump", Neutral},
		{"no keywords", "the market did things today", Neutral},
		{"case insensitive", "BULLISH BREAKOUT RALLY", Bullish},
	}
	for _, tt := range tests {
		if got := l.Label(ctx, tt.sample); got != tt.want {
			t.Errorf("%s: Label = %q, want %q", tt.name, got, tt.want)
		}
	}
}

type fakeClassifier struct {
	label string
	err   error
	seen  string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (string, float64, error) {
	f.seen = text
	return f.label, 0.9, f.err
}

func TestClassifierLabelerMapping(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		label string
		want  Sentiment
	}{
		{"POSITIVE", Bullish},
		{"positive", Bullish},
		{"NEGATIVE", Bearish},
		{"NEUTRAL", Neutral},
		{"", Neutral},
	}
	for _, tt := range tests {
		l := NewClassifierLabeler(&fakeClassifier{label: tt.label}, nil, nil)
		if got := l.Label(ctx, "some text"); got != tt.want {
			t.Errorf("label %q: got %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestClassifierLabelerFallback(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClassifier{err: errors.New("connection refused")}
	l := NewClassifierLabeler(fc, NewKeywordLabeler(DefaultVocabulary()), nil)

	if got := l.Label(ctx, "a strong rally with more upside"); got != Bullish {
		t.Fatalf("fallback Label = %q, want bullish", got)
	}
}

func TestClassifierLabelerNoFallback(t *testing.T) {
	fc := &fakeClassifier{err: errors.New("boom")}
	l := NewClassifierLabeler(fc, nil, nil)
	if got := l.Label(context.Background(), "rally rally rally"); got != Neutral {
		t.Fatalf("Label = %q, want neutral", got)
	}
}

func TestClassifierLabelerTruncatesSample(t *testing.T) {
	fc := &fakeClassifier{label: "POSITIVE"}
	l := NewClassifierLabeler(fc, nil, nil)
	l.Label(context.Background(), strings.Repeat("a", 2048))
	if len(fc.seen) != ClassifierSampleBudget {
		t.Fatalf("classifier saw %d bytes, want %d", len(fc.seen), ClassifierSampleBudget)
	}
}
