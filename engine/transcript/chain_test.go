package transcript

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

type stubSource struct {
	name  string
	res   Result
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context, _ string) (Result, error) {
	s.calls++
	return s.res, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewChainRequiresSources(t *testing.T) {
	if _, err := NewChain(testLogger()); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	first := &stubSource{name: "captions", res: Result{Text: "from first", Lang: "en"}}
	second := &stubSource{name: "watch-page", res: Result{Text: "from second"}}
	c, err := NewChain(testLogger(), first, second)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Acquire(context.Background(), "vid123")
	if got.Text != "from first" {
		t.Fatalf("got %q", got.Text)
	}
	if got.Provenance != "captions" {
		t.Fatalf("Provenance = %q", got.Provenance)
	}
	if second.calls != 0 {
		t.Fatal("second source should not be consulted")
	}
}

func TestChainMissFallsThrough(t *testing.T) {
	first := &stubSource{name: "captions", err: ErrNoTranscript}
	second := &stubSource{name: "watch-page", res: Result{Text: "recovered", Lang: "de", Translated: true}}
	c, _ := NewChain(testLogger(), first, second)

	got := c.Acquire(context.Background(), "vid123")
	if got.Text != "recovered" || got.Provenance != "watch-page" {
		t.Fatalf("got %+v", got)
	}
	if !got.Translated || got.Lang != "de" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestChainHardErrorContained(t *testing.T) {
	first := &stubSource{name: "captions", err: errors.New("429 too many requests")}
	second := &stubSource{name: "watch-page", res: Result{Text: "recovered"}}
	c, _ := NewChain(testLogger(), first, second)

	got := c.Acquire(context.Background(), "vid123")
	if got.Text != "recovered" {
		t.Fatalf("hard error should not stop the chain, got %+v", got)
	}
}

func TestChainEmptyResultSkipped(t *testing.T) {
	// A source may return a zero Result with nil error; that is a miss.
	first := &stubSource{name: "captions"}
	second := &stubSource{name: "watch-page", res: Result{Text: "text"}}
	c, _ := NewChain(testLogger(), first, second)

	got := c.Acquire(context.Background(), "vid123")
	if got.Provenance != "watch-page" {
		t.Fatalf("got %+v", got)
	}
}

func TestChainAllAbsent(t *testing.T) {
	c, _ := NewChain(testLogger(),
		&stubSource{name: "captions", err: ErrNoTranscript},
		&stubSource{name: "watch-page", err: errors.New("blocked")},
	)

	got := c.Acquire(context.Background(), "vid123")
	if !got.Absent() {
		t.Fatalf("expected absent result, got %+v", got)
	}
	if got.Provenance != "" {
		t.Fatalf("absent result should carry no provenance: %q", got.Provenance)
	}
}
