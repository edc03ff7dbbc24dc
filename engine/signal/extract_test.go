package signal

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   \t\n  ", ""},
		{"hello   world", "hello world"},
		{"  line one\nline two\r\n  line three  ", "line one line two line three"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSentences(t *testing.T) {
	var got []string
	for s := range Sentences("Hello world. Second one! Third? No terminal") {
		got = append(got, s)
	}
	want := []string{"Hello world.", "Second one!", "Third?", "No terminal"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSentencesDecimalNotSplit(t *testing.T) {
	var got []string
	for s := range Sentences("Price is $45.5 right now. Next sentence.") {
		got = append(got, s)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %v", got)
	}
	if got[0] != "Price is $45.5 right now." {
		t.Fatalf("decimal was split: %q", got[0])
	}
}

func TestSentencesRestartable(t *testing.T) {
	seq := Sentences("One. Two. Three.")
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Fatalf("sequence not restartable: %d then %d", first, second)
	}
}

func TestScore(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())

	// +2 pct, +4 two prices, +2 level word, +1 BTC mention.
	s := "BTC broke $45,000 resistance today, up 5%, and I think we could see $50,000 if support holds."
	if got := e.Score(s); got != 9 {
		t.Fatalf("Score = %d, want 9", got)
	}

	if got := e.Score("The weather was nice this morning."); got != 0 {
		t.Fatalf("neutral sentence scored %d, want 0", got)
	}

	// $TICKER mentions are worth 3 each.
	if got := e.Score("$BTC $ETH"); got < 6 {
		t.Fatalf("dollar tickers scored %d, want >= 6", got)
	}
}

func TestScoreAssetSubstring(t *testing.T) {
	// Asset scoring is substring containment, so an asset symbol embedded
	// in a longer token still counts.
	e := NewExtractor(DefaultVocabulary())
	if got := e.Score("The WBTC wrapper traded flat."); got != 1 {
		t.Fatalf("embedded symbol scored %d, want 1", got)
	}
}

func TestKeyPoints(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	text := strings.Join([]string{
		"The weather was nice this morning in the city again.",
		"BTC broke $45,000 resistance today with heavy buying, up 5%.",
		"I had a cup of coffee before the market opened today.",
	}, " ")

	points := e.KeyPoints(text)
	if len(points) != 3 {
		t.Fatalf("expected 3 key points, got %d", len(points))
	}
	if !strings.Contains(points[0], "$45,000") {
		t.Fatalf("highest scored sentence not first: %q", points[0])
	}
}

func TestKeyPointsShortSentencesExcluded(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	// High score but under the length floor.
	points := e.KeyPoints("BTC up 5% at $45,000.")
	if len(points) != 0 {
		t.Fatalf("short sentence should be excluded, got %v", points)
	}
}

func TestKeyPointsDedupe(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	s := "BTC broke $45,000 resistance today with heavy buying."
	text := s + " " + strings.ToUpper(s)
	points := e.KeyPoints(text)
	if len(points) != 1 {
		t.Fatalf("case-insensitive duplicate not dropped: %v", points)
	}
}

func TestKeyPointsCap(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("BTC support at $45,000 looks strong on timeframe number ")
		sb.WriteString(strings.Repeat("x", i+1))
		sb.WriteString(". ")
	}
	points := e.KeyPoints(sb.String())
	if len(points) != MaxKeyPoints {
		t.Fatalf("expected %d points, got %d", MaxKeyPoints, len(points))
	}
}

func TestKeyPointsTiesKeepOriginalOrder(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	a := "First sentence mentioning BTC in passing here today."
	b := "Second sentence mentioning BTC in passing here today."
	points := e.KeyPoints(a + " " + b)
	if len(points) != 2 || points[0] != a || points[1] != b {
		t.Fatalf("tie order not preserved: %v", points)
	}
}

func TestExtractEntities(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	text := "I think $BTC and SOL look strong. Inflation and the fed matter. My entry is $45,000 with stop at $42,000, down 3.5% risk."

	got := e.ExtractEntities(text)

	if !reflect.DeepEqual(got.Tickers, []string{"BTC", "SOL"}) {
		t.Errorf("Tickers = %v", got.Tickers)
	}
	if !reflect.DeepEqual(got.Macro, []string{"fed", "inflation"}) {
		t.Errorf("Macro = %v", got.Macro)
	}
	if !reflect.DeepEqual(got.Actions, []string{"entry", "stop"}) {
		t.Errorf("Actions = %v", got.Actions)
	}
	if len(got.Levels) != 1 {
		t.Fatalf("Levels = %v", got.Levels)
	}
	wantLevel := "My entry is $45,000 with stop at $42,000, down 3.5% risk." +
		"  ➜ $45,000 $42,000, 3.5%"
	if got.Levels[0] != wantLevel {
		t.Errorf("Levels[0] = %q\nwant       %q", got.Levels[0], wantLevel)
	}
}

func TestExtractEntitiesPlainTickerNeedsAssetMatch(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	// NASA is uppercase 2-5 letters but not a configured asset.
	got := e.ExtractEntities("NASA launched a rocket while BTC held steady.")
	if !reflect.DeepEqual(got.Tickers, []string{"BTC"}) {
		t.Fatalf("Tickers = %v, want [BTC]", got.Tickers)
	}
}

func TestExtractEntitiesLevelWithoutNumbers(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	got := e.ExtractEntities("Watch that support very closely this week, folks.")
	if len(got.Levels) != 1 {
		t.Fatalf("Levels = %v", got.Levels)
	}
	if strings.Contains(got.Levels[0], "➜") {
		t.Fatalf("no numeric hits should mean no annotation: %q", got.Levels[0])
	}
}

func TestExtractEntitiesLevelsCap(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		sb.WriteString("Support sits at $1,000 here. ")
	}
	got := e.ExtractEntities(sb.String())
	if len(got.Levels) != MaxLevels {
		t.Fatalf("expected %d levels, got %d", MaxLevels, len(got.Levels))
	}
}

func TestExtractEntitiesLiteralHitsCapped(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	got := e.ExtractEntities("Targets are $1,000 $2,000 $3,000 $4,000 $5,000 on this move.")
	if len(got.Levels) != 1 {
		t.Fatalf("Levels = %v", got.Levels)
	}
	if strings.Count(got.Levels[0], "$") != 5+3 {
		// 5 in the sentence itself plus at most 3 annotated.
		t.Fatalf("annotation not capped at 3 prices: %q", got.Levels[0])
	}
}

func TestSummary(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())

	if got := e.Summary(""); got != "" {
		t.Fatalf("empty input summary = %q", got)
	}

	got := e.Summary("One. Two. Three. Four. Five. Six. Seven.")
	if got != "One. Two. Three. Four. Five." {
		t.Fatalf("Summary = %q", got)
	}

	got = e.Summary("No terminal punctuation here")
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("summary missing terminal period: %q", got)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	got := e.Extract("")
	if got.Summary != "" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.KeyPoints == nil || len(got.KeyPoints) != 0 {
		t.Errorf("KeyPoints should be empty non-nil, got %#v", got.KeyPoints)
	}
	if got.Entities.Tickers == nil || got.Entities.Levels == nil {
		t.Error("entity lists should be empty non-nil")
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	text := "BTC broke $45,000 resistance today, up 5%. Inflation data hits tomorrow. My entry is $44,000."
	a := e.Extract(text)
	b := e.Extract(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("extraction not deterministic:\n%#v\n%#v", a, b)
	}
}

func TestSampleRuneSafe(t *testing.T) {
	// Cutting inside the two-byte é must back off to the rune start.
	if got := Sample("héllo", 2); got != "h" {
		t.Fatalf("Sample = %q, want %q", got, "h")
	}
	if got := Sample("short", 100); got != "short" {
		t.Fatalf("Sample = %q", got)
	}
	if got := Sample("anything", 0); got != "anything" {
		t.Fatalf("zero budget should disable truncation, got %q", got)
	}
}

func TestSampleBudgetBoundsExtraction(t *testing.T) {
	e := NewExtractor(DefaultVocabulary())
	e.SampleBudget = 40
	text := "The start has nothing interesting at all. BTC broke $45,000 resistance today."
	got := e.ExtractEntities(text)
	if len(got.Tickers) != 0 {
		t.Fatalf("content past the budget leaked into extraction: %v", got.Tickers)
	}
}
