package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	watchURLPrefix = "https://www.youtube.com/watch?v="
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// playerResponseMarker precedes the embedded player JSON in watch pages.
	playerResponseMarker = "ytInitialPlayerResponse = "

	maxWatchPageBody = 6 << 20
)

// WatchPageSource is the secondary adapter: it scrapes the watch page for
// the embedded player response, enumerates caption tracks there, and pulls
// the chosen track as a VTT payload that is stripped down to plain text.
// Human tracks win over machine-generated ones, preferred languages over
// the rest.
type WatchPageSource struct {
	client  *http.Client
	limiter *rate.Limiter
	langs   []string
}

// NewWatchPageSource creates the secondary source. client may be nil.
func NewWatchPageSource(client *http.Client, langs []string) *WatchPageSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if len(langs) == 0 {
		langs = PreferredLangs
	}
	return &WatchPageSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		langs:   langs,
	}
}

func (s *WatchPageSource) Name() string { return "watch-page" }

func (s *WatchPageSource) Fetch(ctx context.Context, videoID string) (Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURLPrefix+videoID, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("watch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBody))
	if err != nil {
		return Result{}, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return Result{}, ErrNoTranscript
	}
	raw := extractJSONObject(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return Result{}, fmt.Errorf("player response JSON not extractable")
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return Result{}, fmt.Errorf("decode player response: %w", err)
	}
	tracks := player.tracks()
	if len(tracks) == 0 {
		return Result{}, ErrNoTranscript
	}

	track, ok := s.pickTrack(tracks)
	if !ok {
		return Result{}, ErrNoTranscript
	}

	text, err := s.fetchVTT(ctx, track.BaseURL+"&fmt=vtt")
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, ErrNoTranscript
	}
	return Result{Text: text, Lang: track.LanguageCode}, nil
}

// pickTrack orders candidates: human in a preferred language, automatic in
// a preferred language, then any human track, then any automatic track.
func (s *WatchPageSource) pickTrack(tracks []captionTrack) (captionTrack, bool) {
	var human, auto []captionTrack
	for _, t := range tracks {
		if t.Kind == "asr" {
			auto = append(auto, t)
		} else {
			human = append(human, t)
		}
	}
	for _, group := range [][]captionTrack{human, auto} {
		for _, lang := range s.langs {
			for _, t := range group {
				if t.LanguageCode == lang {
					return t, true
				}
			}
		}
	}
	if len(human) > 0 {
		return human[0], true
	}
	if len(auto) > 0 {
		return auto[0], true
	}
	return captionTrack{}, false
}

func (s *WatchPageSource) fetchVTT(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch captions: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBody))
	if err != nil {
		return "", err
	}
	return stripVTT(string(body)), nil
}

// extractJSONObject returns the balanced JSON object at the start of data,
// or nil. Brace depth is tracked outside string literals.
func extractJSONObject(data []byte) []byte {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if escaped {
			escaped = false
			continue
		}
		switch b {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return data[:i+1]
				}
			}
		}
	}
	return nil
}
