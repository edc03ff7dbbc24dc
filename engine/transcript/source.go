// Package transcript acquires caption text for a video through an ordered
// chain of source adapters with graceful degradation. A video with no
// obtainable transcript is a normal terminal outcome, not an error.
package transcript

import (
	"context"
	"errors"
)

// PreferredLangs is the default language preference order.
var PreferredLangs = []string{"en", "en-US", "en-GB"}

// ErrNoTranscript means a source legitimately found nothing. It is the
// adapter-miss outcome; the chain treats it the same as an empty result.
var ErrNoTranscript = errors.New("no transcript available")

// Result is one adapter's answer for a video. Empty Text with a nil error
// is valid and means absent.
type Result struct {
	// Text is the raw caption text, possibly empty.
	Text string
	// Lang is the source language code when known.
	Lang string
	// Translated marks text machine-translated from Lang.
	Translated bool
	// Provenance names the adapter that produced the text. Empty when absent.
	Provenance string
}

// Absent reports whether no transcript text was obtained.
func (r Result) Absent() bool { return r.Text == "" }

// Source is one transcript acquisition strategy.
type Source interface {
	Name() string
	// Fetch attempts to produce caption text for the video. ErrNoTranscript
	// signals a legitimate miss; any other error is a hard failure of this
	// source. Neither stops the chain.
	Fetch(ctx context.Context, videoID string) (Result, error)
}
